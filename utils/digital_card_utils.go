package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"
)

// Default card presentation when a plan has no template
const (
	DefaultCardPrimaryColor   = "#1E3A8A"
	DefaultCardSecondaryColor = "#3B82F6"
	DefaultCardTextColor      = "#FFFFFF"
	DefaultCardBarcodeType    = "qr"
)

// FindCardTemplate returns the template to clone for plan, or nil if there is none.
// Templates owned by the plan's creator win over templates shared by plan id alone.
func FindCardTemplate(db *gorm.DB, plan *models.Plan) (*models.DigitalCard, error) {
	candidates := []func(*gorm.DB) *gorm.DB{
		func(q *gorm.DB) *gorm.DB { return q.Where("created_by = ? AND plan_id = ?", plan.CreatedBy, plan.ID) },
		func(q *gorm.DB) *gorm.DB { return q.Where("created_by = ? AND plan_id IS NULL", plan.CreatedBy) },
		func(q *gorm.DB) *gorm.DB { return q.Where("plan_id = ?", plan.ID) },
	}

	for _, scope := range candidates {
		var template models.DigitalCard
		err := scope(db.Where("is_template = ?", true)).Order("updated_at DESC").First(&template).Error
		if err == nil {
			return &template, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, WrapError(err, "failed to look up card template")
		}
	}
	return nil, nil
}

// ProvisionDigitalCard issues the card for an active subscription. An existing card is returned
// unchanged, and the unique subscription_id index rejects a concurrent duplicate.
func ProvisionDigitalCard(db *gorm.DB, sub *models.Subscription, plan *models.Plan) (*models.DigitalCard, error) {
	existing, err := findIssuedCard(db, sub)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		DigitalCardsTotal.WithLabelValues("existing").Inc()
		LogDebug("Subscription %d already has card %d", sub.ID, existing.ID)
		return existing, nil
	}

	var user models.User
	if err := db.First(&user, sub.UserID).Error; err != nil {
		return nil, WrapError(err, fmt.Sprintf("failed to load user %d", sub.UserID))
	}

	subID, userID, planID := sub.ID, sub.UserID, plan.ID
	card := models.DigitalCard{
		IsTemplate:     false,
		PlanID:         &planID,
		CreatedBy:      plan.CreatedBy,
		SubscriptionID: &subID,
		UserID:         &userID,
		MemberNumber:   sub.MemberNumber,
		HolderName:     Title(user.FullName()),
		PlanName:       plan.Name,
		Title:          plan.Name,
		PrimaryColor:   DefaultCardPrimaryColor,
		SecondaryColor: DefaultCardSecondaryColor,
		TextColor:      DefaultCardTextColor,
		ShowBarcode:    true,
		BarcodeType:    DefaultCardBarcodeType,
		ValidUntil:     sub.EndDate,
	}

	template, err := FindCardTemplate(db, plan)
	if err != nil {
		LogWarn("Card template lookup failed for plan %d, using defaults: %v", plan.ID, err)
	} else if template == nil {
		LogWarn("No card template for plan %d, using defaults", plan.ID)
	} else {
		if template.Title != "" {
			card.Title = template.Title
		}
		card.LogoURL = template.LogoURL
		card.PrimaryColor = template.PrimaryColor
		card.SecondaryColor = template.SecondaryColor
		card.TextColor = template.TextColor
		card.ShowBarcode = template.ShowBarcode
		card.BarcodeType = template.BarcodeType
	}

	if err := db.Create(&card).Error; err != nil {
		// lost a race with another delivery of the same event
		if again, findErr := findIssuedCard(db, sub); findErr == nil && again != nil {
			DigitalCardsTotal.WithLabelValues("existing").Inc()
			return again, nil
		}
		return nil, WrapError(err, "failed to create digital card")
	}

	DigitalCardsTotal.WithLabelValues("issued").Inc()
	LogInfo("Digital card %d issued for subscription %d (%s)", card.ID, sub.ID, sub.MemberNumber)
	return &card, nil
}

func findIssuedCard(db *gorm.DB, sub *models.Subscription) (*models.DigitalCard, error) {
	var card models.DigitalCard
	err := db.Where("is_template = ? AND subscription_id = ? AND user_id = ?", false, sub.ID, sub.UserID).First(&card).Error
	if err == nil {
		return &card, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, WrapError(err, "failed to look up digital card")
}

func hexToRGB(color, fallback string) (int, int, int) {
	if color == "" || !ValidateHexColor(color) {
		color = fallback
	}
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// RenderCardPDF draws an issued card on a credit-card sized page
func RenderCardPDF(card *models.DigitalCard) ([]byte, error) {
	const width, height = 85.6, 53.98

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	r, g, b := hexToRGB(card.PrimaryColor, DefaultCardPrimaryColor)
	pdf.SetFillColor(r, g, b)
	pdf.Rect(0, 0, width, height, "F")

	r, g, b = hexToRGB(card.SecondaryColor, DefaultCardSecondaryColor)
	pdf.SetFillColor(r, g, b)
	pdf.Rect(0, height-10, width, 10, "F")

	r, g, b = hexToRGB(card.TextColor, DefaultCardTextColor)
	pdf.SetTextColor(r, g, b)

	pdf.SetXY(5, 5)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(width-10, 6, card.Title, "", 1, "L", false, 0, "")

	pdf.SetX(5)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(width-10, 5, card.PlanName, "", 1, "L", false, 0, "")

	pdf.SetXY(5, 22)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(width-10, 7, card.HolderName, "", 1, "L", false, 0, "")

	pdf.SetX(5)
	pdf.SetFont("Courier", "B", 10)
	pdf.CellFormat(width-10, 6, card.MemberNumber, "", 1, "L", false, 0, "")

	pdf.SetXY(5, height-8)
	pdf.SetFont("Arial", "", 7)
	validity := "No expiry"
	if card.ValidUntil != nil {
		validity = "Valid until " + card.ValidUntil.Format("02 Jan 2006")
	}
	pdf.CellFormat(width/2, 6, validity, "", 0, "L", false, 0, "")

	if card.ShowBarcode {
		pdf.SetFont("Courier", "", 7)
		pdf.CellFormat(width/2-10, 6, strings.ToUpper(card.BarcodeType)+" "+card.MemberNumber, "", 0, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render card PDF: %v", err)
	}
	return buf.Bytes(), nil
}
