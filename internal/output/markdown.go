package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a report as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders the report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Diagnostics\n\n")
	sb.WriteString("| Check | Status | Detail |\n")
	sb.WriteString("|-------|--------|--------|\n")

	for _, c := range report.Checks {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(c.Name),
			escapeMarkdownCell(statusLabel(c.Status)),
			escapeMarkdownCell(c.Detail),
		))
	}

	ok, warn, fail, skip := report.Counts()
	sb.WriteString(fmt.Sprintf("\n**Summary**: %d ok, %d warning(s), %d failed, %d skipped\n", ok, warn, fail, skip))

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
