package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/cadence/internal/engine"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/monthly"
)

const dateLayout = "2006-01-02"

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

// table wraps a tabwriter and remembers the first write error.
type table struct {
	tw  *tabwriter.Writer
	err error
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	styled := make([]string, len(headers))
	underline := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
		underline[i] = strings.Repeat("-", len(h))
	}
	t.row(styled...)
	t.row(underline...)
	return t
}

func (t *table) row(cells ...string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.tw, strings.Join(cells, "\t"))
}

func (t *table) flush() error {
	if t.err != nil {
		return t.err
	}
	return t.tw.Flush()
}

func writeLines(w io.Writer, lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDetectionSummary prints the outcome of one user's detection run.
func RenderDetectionSummary(w io.Writer, summary *engine.Summary) error {
	if err := writeLines(w, FormatTitle("Recurring patterns for "+summary.UserID)); err != nil {
		return err
	}

	if len(summary.Patterns) == 0 {
		return writeLines(w, InfoStyle.Render("No recurring patterns detected."))
	}

	t := newTable(w, "Merchant", "Frequency", "Confidence", "Charges")
	for _, p := range summary.Patterns {
		t.row(p.Merchant, string(p.Frequency), formatPercent(p.Confidence), fmt.Sprintf("%d", p.TransactionCount))
	}
	if err := t.flush(); err != nil {
		return err
	}

	lines := []string{""}
	status := fmt.Sprintf("%d detected, %d saved in %s", summary.PatternsDetected, summary.PatternsPersisted, summary.Duration.Round(time.Millisecond))
	if len(summary.Errors) == 0 {
		lines = append(lines, FormatSuccess(status))
	} else {
		lines = append(lines, FormatWarning(status))
		for _, merr := range summary.Errors {
			lines = append(lines, FormatError(merr.Error()))
		}
	}
	return writeLines(w, lines...)
}

// RenderPatterns prints persisted recurring patterns.
func RenderPatterns(w io.Writer, patterns []model.RecurringPattern) error {
	if len(patterns) == 0 {
		return writeLines(w, InfoStyle.Render("No recurring patterns found. Run 'cadence detect' first."))
	}

	t := newTable(w, "Merchant", "Category", "Frequency", "Avg Amount", "Day", "Confidence", "Last Charge")
	for _, p := range patterns {
		t.row(
			p.Merchant,
			orDash(p.Category),
			string(p.Frequency),
			decimal.NewFromFloat(p.AvgAmount).StringFixed(2),
			fmt.Sprintf("%d", p.ExpectedDate),
			formatPercent(p.Confidence),
			p.LastOccurrence.Format(dateLayout),
		)
	}
	return t.flush()
}

// RenderSubscriptions prints tracked subscriptions, flagging likely zombies.
func RenderSubscriptions(w io.Writer, subs []model.CardSubscription) error {
	if len(subs) == 0 {
		return writeLines(w, InfoStyle.Render("No subscriptions tracked. Promote a pattern with 'cadence subscriptions promote'."))
	}

	t := newTable(w, "ID", "Merchant", "Amount", "Frequency", "Next Charge", "Status", "Confirmed", "Reminder", "Zombie")
	for _, s := range subs {
		reminder := "off"
		if s.CancelReminderEnabled {
			reminder = fmt.Sprintf("%dd before", s.CancelReminderDaysBefore)
		}
		zombie := formatPercent(s.ZombieScore)
		if s.ZombieScore >= ZombieWarningScore {
			zombie = WarningStyle.Render(ZombieIcon + " " + zombie)
		}
		t.row(
			s.ID,
			s.DisplayName(),
			monthly.FromCents(s.AmountCents).StringFixed(2),
			string(s.Frequency),
			s.NextExpectedDate.Format(dateLayout),
			string(s.Status),
			yesNo(s.IsConfirmed),
			reminder,
			zombie,
		)
	}
	return t.flush()
}

// ZombieWarningScore is the score at which a subscription is highlighted as likely forgotten.
const ZombieWarningScore = 0.5

// RenderReport prints monthly-equivalent totals.
func RenderReport(w io.Writer, userID string, report monthly.Report) error {
	if err := writeLines(w, FormatTitle("Monthly subscription cost for "+userID)); err != nil {
		return err
	}
	if report.ActiveCount == 0 {
		return writeLines(w, InfoStyle.Render("No active subscriptions."))
	}

	t := newTable(w, "Merchant", "Category", "Frequency", "Charge", "Per Month")
	for _, line := range report.Lines {
		t.row(line.Merchant, line.Category, string(line.Frequency), line.Charge.StringFixed(2), line.Monthly.StringFixed(2))
	}
	if err := t.flush(); err != nil {
		return err
	}

	var breakdown []string
	for _, freq := range []model.Frequency{model.FrequencyWeekly, model.FrequencyMonthly, model.FrequencyQuarterly, model.FrequencyYearly} {
		if total, ok := report.ByFrequency[freq]; ok {
			breakdown = append(breakdown, fmt.Sprintf("%s %s", freq, total.StringFixed(2)))
		}
	}

	categories := make([]string, 0, len(report.ByCategory))
	for category := range report.ByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	byCategory := make([]string, 0, len(categories))
	for _, category := range categories {
		byCategory = append(byCategory, fmt.Sprintf("%s %s", category, report.ByCategory[category].StringFixed(2)))
	}

	summary := strings.Join([]string{
		BoldStyle.Render("Monthly: ") + report.TotalMonthly.StringFixed(2),
		BoldStyle.Render("Yearly:  ") + report.TotalYearly.StringFixed(2),
		SubtleStyle.Render("By frequency: " + strings.Join(breakdown, ", ")),
		SubtleStyle.Render("By category:  " + strings.Join(byCategory, ", ")),
	}, "\n")

	return writeLines(w, "", RenderBox(fmt.Sprintf("%d active subscriptions", report.ActiveCount), summary))
}

// RenderReminders prints the reminders that fired.
func RenderReminders(w io.Writer, events []model.ReminderEvent) error {
	if len(events) == 0 {
		return writeLines(w, InfoStyle.Render("No reminders due."))
	}

	t := newTable(w, "Merchant", "Amount", "Due", "In")
	for _, e := range events {
		t.row(e.MerchantName, monthly.FromCents(e.AmountCents).StringFixed(2), e.DueDate.Format(dateLayout), formatDays(e.DaysUntilDue))
	}
	return t.flush()
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func formatDays(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
