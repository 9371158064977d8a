package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter renders a report as an ASCII table.
type TableFormatter struct{}

// FormatReport renders the report as a table with a pass/fail summary footer.
func (f *TableFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// The summary footer stays lowercase as written.
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})

	for _, c := range report.Checks {
		t.AppendRow(table.Row{c.Name, statusLabel(c.Status), c.Detail})
	}

	ok, warn, fail, skip := report.Counts()
	summary := fmt.Sprintf("%d ok", ok)
	if warn > 0 {
		summary += fmt.Sprintf(", %d warning(s)", warn)
	}
	if fail > 0 {
		summary += fmt.Sprintf(", %d failed", fail)
	}
	if skip > 0 {
		summary += fmt.Sprintf(", %d skipped", skip)
	}
	t.AppendFooter(table.Row{"", summary, ""})

	return t.Render(), nil
}

func statusLabel(status Status) string {
	switch status {
	case StatusOK:
		return "✅ ok"
	case StatusWarn:
		return "⚠️  warn"
	case StatusFail:
		return "❌ fail"
	case StatusSkip:
		return "➖ skip"
	default:
		return string(status)
	}
}
