package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	r := &Report{}
	r.Add("config", StatusOK, "defaults")
	r.Add("telegram", StatusWarn, "bot token not set")
	r.Add("redis", StatusSkip, "not configured")
	return r
}

func TestParseFormat(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  Format
	}{
		{"", FormatTable},
		{"table", FormatTable},
		{" JSON ", FormatJSON},
		{"markdown", FormatMarkdown},
	} {
		got, err := ParseFormat(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseFormat("yaml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestReportHealth(t *testing.T) {
	r := sampleReport()
	assert.True(t, r.Healthy())

	r.Add("geoip", StatusFail, "file missing")
	assert.False(t, r.Healthy())

	ok, warn, fail, skip := r.Counts()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, warn)
	assert.Equal(t, 1, fail)
	assert.Equal(t, 1, skip)
}

func TestTableFormatter(t *testing.T) {
	rendered, err := (&TableFormatter{}).FormatReport(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, rendered, "telegram")
	assert.Contains(t, rendered, "bot token not set")
	assert.Contains(t, rendered, "1 ok, 1 warning(s), 1 skipped")
}

func TestJSONFormatter(t *testing.T) {
	rendered, err := (&JSONFormatter{Indent: true}).FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded.Checks, 3)
	assert.Equal(t, StatusWarn, decoded.Checks[1].Status)
}

func TestMarkdownFormatter(t *testing.T) {
	r := sampleReport()
	r.Add("odd|name", StatusOK, "pipe|detail")

	rendered, err := (&MarkdownFormatter{}).FormatReport(r)
	require.NoError(t, err)
	assert.Contains(t, rendered, "| Check | Status | Detail |")
	assert.Contains(t, rendered, `odd\|name`)
	assert.True(t, strings.Contains(rendered, "**Summary**"))
}

func TestFormattersNilReport(t *testing.T) {
	for _, f := range []Formatter{&TableFormatter{}, &JSONFormatter{}, &MarkdownFormatter{}} {
		rendered, err := f.FormatReport(nil)
		require.NoError(t, err)
		assert.Empty(t, rendered)
	}
}
