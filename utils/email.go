package utils

import (
	"fmt"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"gopkg.in/gomail.v2"
)

// EmailSender delivers one message. Tests replace it to capture outgoing mail.
var EmailSender = SendEmail

// SendEmail sends an HTML email through the configured SMTP server. When no SMTP host is
// configured the message is logged and dropped.
func SendEmail(to, subject, body string) error {
	cfg := config.AppConfig
	if cfg == nil || cfg.SMTPHost == "" {
		LogDebug("SMTP not configured, skipping email to %s: %s", to, subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.SMTPFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendEmailAsync sends without blocking the request; failures are only logged
func SendEmailAsync(to, subject, body string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError("Panic while sending email to %s: %v", to, r)
			}
		}()
		if err := EmailSender(to, subject, body); err != nil {
			LogError("Failed to send email to %s (%s): %v", to, subject, err)
			return
		}
		LogInfo("Email sent to %s: %s", to, subject)
	}()
}

func frontendURL() string {
	if config.AppConfig != nil {
		return config.AppConfig.FrontendURL
	}
	return ""
}

// SendApplicationReceivedEmail confirms that a paid application is waiting for review
func SendApplicationReceivedEmail(app *models.Application, planName string) {
	body := fmt.Sprintf(`
		<h2>Application received</h2>
		<p>Hi %s,</p>
		<p>We received your application for <strong>%s</strong> and your payment of %s.</p>
		<p>You will hear from us once it has been reviewed.</p>
	`, app.FirstName, planName, FormatAmount(app.FinalAmount))
	SendEmailAsync(app.Email, fmt.Sprintf("Your %s application", AppName), body)
}

// SendApplicationApprovedEmail welcomes a new member
func SendApplicationApprovedEmail(app *models.Application, sub *models.Subscription, planName string) {
	body := fmt.Sprintf(`
		<h2>Welcome to %s!</h2>
		<p>Hi %s,</p>
		<p>Your application for <strong>%s</strong> has been approved.</p>
		<p>Your member number is <strong>%s</strong>.</p>
		<p><a href="%s/subscriptions">View your membership</a></p>
	`, planName, app.FirstName, planName, sub.MemberNumber, frontendURL())
	SendEmailAsync(app.Email, "Your membership has been approved", body)
}

// SendApplicationRejectedEmail tells the applicant the outcome of the review
func SendApplicationRejectedEmail(app *models.Application, planName string) {
	reason := app.RejectionReason
	if reason == "" {
		reason = "No reason was given."
	}
	body := fmt.Sprintf(`
		<h2>Application update</h2>
		<p>Hi %s,</p>
		<p>Unfortunately your application for <strong>%s</strong> was not approved.</p>
		<p>%s</p>
	`, app.FirstName, planName, reason)
	SendEmailAsync(app.Email, "Your membership application", body)
}

func renewalReminderBody(name, planName string, endDate time.Time, expired bool) string {
	if expired {
		return fmt.Sprintf(`
		<h2>Your membership has expired</h2>
		<p>Hi %s,</p>
		<p>Your <strong>%s</strong> membership ended on %s. Renew to keep your benefits.</p>
		<p><a href="%s/subscriptions">Renew now</a></p>
	`, name, planName, endDate.Format("02 Jan 2006"), frontendURL())
	}
	return fmt.Sprintf(`
		<h2>Your membership renews soon</h2>
		<p>Hi %s,</p>
		<p>Your <strong>%s</strong> membership ends on %s.</p>
		<p><a href="%s/subscriptions">Renew now</a></p>
	`, name, planName, endDate.Format("02 Jan 2006"), frontendURL())
}
