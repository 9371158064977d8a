package gate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("Budi Santoso"))
	require.NoError(t, ValidateName("O'Connor-Smith, Jr."))

	require.Error(t, ValidateName(""))
	require.Error(t, ValidateName("   "))
	require.Error(t, ValidateName("<script>alert(1)</script>"))
	require.Error(t, ValidateName("Budi123"))
	require.Error(t, ValidateName(strings.Repeat("a", 51)))
	require.NoError(t, ValidateName(strings.Repeat("a", 50)))
}

func TestSanitizeMessage(t *testing.T) {
	require.Equal(t, "", SanitizeMessage("   "))
	require.Equal(t, "halo", SanitizeMessage(" halo "))
	require.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", SanitizeMessage("<b>bold</b>"))

	long := strings.Repeat("x", 400)
	require.Len(t, SanitizeMessage(long), 300)
}
