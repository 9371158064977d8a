package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	chromeAndroidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0"
	googlebotUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestEnrichMobile(t *testing.T) {
	e, err := NewEnricher("")
	require.NoError(t, err)
	defer e.Close()

	info := e.Enrich(chromeAndroidUA, "1.2.3.4")
	require.Contains(t, info.Browser, "Chrome")
	require.Contains(t, info.OS, "Android")
	require.Contains(t, info.Device, "mobile")
	require.Equal(t, "-", info.Location)
	require.False(t, info.Bot)
}

func TestEnrichDesktop(t *testing.T) {
	e, err := NewEnricher("")
	require.NoError(t, err)

	info := e.Enrich(firefoxLinuxUA, "")
	require.Contains(t, info.Browser, "Firefox")
	require.Contains(t, info.OS, "Linux")
	require.Equal(t, "Desktop", info.Device)
}

func TestEnrichBot(t *testing.T) {
	e, err := NewEnricher("")
	require.NoError(t, err)

	info := e.Enrich(googlebotUA, "")
	require.True(t, info.Bot)
	require.NotEmpty(t, info.BotName)

	require.True(t, IsBot(googlebotUA))
	require.True(t, IsBot("my-custom-crawler/1.0"))
	require.False(t, IsBot(firefoxLinuxUA))
	require.False(t, IsBot(""))
}

func TestEnrichEmptyUserAgent(t *testing.T) {
	e, err := NewEnricher("")
	require.NoError(t, err)

	info := e.Enrich("", "1.2.3.4")
	require.Equal(t, "-", info.Browser)
	require.Equal(t, "-", info.OS)
	require.Equal(t, "Desktop", info.Device)
}

func TestNewEnricherBadPath(t *testing.T) {
	_, err := NewEnricher("/nonexistent/geoip.mmdb")
	require.Error(t, err)
}
