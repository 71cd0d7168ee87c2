package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// LogStats collects membership activity counters from one day of logs
type LogStats struct {
	ApplicationsCreated  int
	CouponsRejected      int
	PaymentsRecorded     int
	PaymentsRejected     int
	LowerAmountsAccepted int
	PaymentsCompleted    map[string]int
	PaymentsFailed       int
	Activations          int
	CardsIssued          int
	CardFailures         int
	RemindersSent        map[string]int
	PastDue              int
	EmailFailures        int
	TotalErrors          int
	TotalWarnings        int
	ApplicantActivity    map[string]int
	ErrorPatterns        map[string]int
}

var (
	emailRegex         = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	completedViaRegex  = regexp.MustCompile(`Payment \d+ completed via (\S+)`)
	reminderKindRegex  = regexp.MustCompile(`Sent (\S+) reminder to`)
	logLinePrefixRegex = regexp.MustCompile(`^(INFO|WARN|ERROR|DEBUG): \S+ \S+ \S+: `)
)

func main() {
	logDir := flag.String("dir", "./logs", "directory holding the dated log files")
	day := flag.String("date", time.Now().Format("2006-01-02"), "day to analyze (YYYY-MM-DD)")
	flag.Parse()

	stats := &LogStats{
		PaymentsCompleted: make(map[string]int),
		RemindersSent:     make(map[string]int),
		ApplicantActivity: make(map[string]int),
		ErrorPatterns:     make(map[string]int),
	}

	scanLog(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *day)), stats, analyzeInfoLine)
	scanLog(filepath.Join(*logDir, fmt.Sprintf("warn-%s.log", *day)), stats, analyzeWarnLine)
	scanLog(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *day)), stats, analyzeErrorLine)

	printReport(*day, stats)
}

func scanLog(logFile string, stats *LogStats, analyze func(string, *LogStats)) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		analyze(scanner.Text(), stats)
	}
}

func analyzeInfoLine(line string, stats *LogStats) {
	switch {
	case strings.Contains(line, "Application ") && strings.Contains(line, " created for "):
		stats.ApplicationsCreated++
		extractApplicant(line, stats)
	case strings.Contains(line, "Coupon rejected on application"):
		stats.CouponsRejected++
		extractApplicant(line, stats)
	case strings.Contains(line, "payment recorded:"):
		stats.PaymentsRecorded++
	case strings.Contains(line, " marked failed"):
		stats.PaymentsFailed++
	case strings.Contains(line, " is now past due"):
		stats.PastDue++
	case strings.Contains(line, " activated until "):
		stats.Activations++
	case strings.Contains(line, "Digital card ") && strings.Contains(line, " issued for "):
		stats.CardsIssued++
	}

	if m := completedViaRegex.FindStringSubmatch(line); m != nil {
		stats.PaymentsCompleted[m[1]]++
	}
	if m := reminderKindRegex.FindStringSubmatch(line); m != nil {
		stats.RemindersSent[m[1]]++
	}
}

func analyzeWarnLine(line string, stats *LogStats) {
	stats.TotalWarnings++
	switch {
	case strings.Contains(line, "payment rejected: expected"):
		stats.PaymentsRejected++
	case strings.Contains(line, "accepted lower client amount"):
		stats.LowerAmountsAccepted++
	}
}

func analyzeErrorLine(line string, stats *LogStats) {
	// Stack traces span several lines; only count the headers
	if !logLinePrefixRegex.MatchString(line) {
		return
	}
	stats.TotalErrors++

	switch {
	case strings.Contains(line, "Digital card provisioning failed"):
		stats.CardFailures++
	case strings.Contains(line, "Failed to send email"):
		stats.EmailFailures++
		extractApplicant(line, stats)
	}

	extractErrorPattern(line, stats)
}

func extractApplicant(line string, stats *LogStats) {
	if email := emailRegex.FindString(line); email != "" {
		stats.ApplicantActivity[email]++
	}
}

// extractErrorPattern strips the logger prefix and any numbers so repeated
// failures for different rows group together.
func extractErrorPattern(line string, stats *LogStats) {
	msg := logLinePrefixRegex.ReplaceAllString(line, "")
	if idx := strings.Index(msg, ": "); idx > 0 {
		msg = msg[:idx]
	}
	msg = regexp.MustCompile(`\d+`).ReplaceAllString(msg, "N")
	stats.ErrorPatterns[strings.TrimSpace(msg)]++
}

func printReport(day string, stats *LogStats) {
	fmt.Println("\n=== Membership Log Report ===")
	fmt.Println("Day:", day)
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n1. Applications:")
	fmt.Printf("   Created: %d\n", stats.ApplicationsCreated)
	fmt.Printf("   Coupons Rejected: %d\n", stats.CouponsRejected)

	fmt.Println("\n2. Payments:")
	fmt.Printf("   Recorded: %d\n", stats.PaymentsRecorded)
	fmt.Printf("   Amount Mismatches: %d\n", stats.PaymentsRejected)
	fmt.Printf("   Lower Amounts Accepted: %d\n", stats.LowerAmountsAccepted)
	fmt.Printf("   Failed: %d\n", stats.PaymentsFailed)
	fmt.Println("   Completed by source:")
	printTop(stats.PaymentsCompleted, 10, "payments")

	fmt.Println("\n3. Subscriptions and Cards:")
	fmt.Printf("   Activated: %d\n", stats.Activations)
	fmt.Printf("   Past Due: %d\n", stats.PastDue)
	fmt.Printf("   Cards Issued: %d\n", stats.CardsIssued)
	fmt.Printf("   Card Failures: %d\n", stats.CardFailures)

	fmt.Println("\n4. Reminders:")
	printTop(stats.RemindersSent, 10, "sent")
	fmt.Printf("   Email Failures: %d\n", stats.EmailFailures)

	fmt.Println("\n5. Problems:")
	fmt.Printf("   Total Warnings: %d\n", stats.TotalWarnings)
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)

	fmt.Println("\n6. Most Active Applicants:")
	printTop(stats.ApplicantActivity, 5, "events")

	fmt.Println("\n7. Most Common Errors:")
	printTop(stats.ErrorPatterns, 5, "occurrences")
}

func printTop(counts map[string]int, limit int, unit string) {
	type entry struct {
		key   string
		count int
	}

	var entries []entry
	for key, count := range counts {
		entries = append(entries, entry{key, count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].key < entries[j].key
		}
		return entries[i].count > entries[j].count
	})

	if len(entries) == 0 {
		fmt.Println("   (none)")
		return
	}
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d %s\n", e.key, e.count, unit)
	}
}
