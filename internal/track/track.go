// Package track enriches visit events with client details parsed from
// the user agent and, when a GeoIP database is configured, a coarse
// location for the caller's IP.
package track

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	ua "github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang/v2"
)

var botPattern = regexp.MustCompile(`(?i)bot|crawl|spider|slurp|baidu|yandex|bing|google|yahoo|duckduckgo`)

// ClientInfo is what a raw user agent and IP resolve to.
type ClientInfo struct {
	Browser  string
	OS       string
	Device   string
	Location string
	Bot      bool
	BotName  string
}

// Enricher parses user agents and resolves IP locations. The GeoIP
// reader is optional; without one Location stays "-".
type Enricher struct {
	geo *geoip2.Reader
}

// NewEnricher opens the GeoIP database when a path is given.
func NewEnricher(geoIPPath string) (*Enricher, error) {
	e := &Enricher{}
	if geoIPPath != "" {
		reader, err := geoip2.Open(geoIPPath)
		if err != nil {
			return nil, fmt.Errorf("open geoip database: %w", err)
		}
		e.geo = reader
	}
	return e, nil
}

// Close releases the GeoIP reader.
func (e *Enricher) Close() error {
	if e == nil || e.geo == nil {
		return nil
	}
	return e.geo.Close()
}

// Enrich resolves the user agent and IP into client details. Parsing
// is best effort; unknown values come back as "-".
func (e *Enricher) Enrich(userAgent, ip string) ClientInfo {
	info := ClientInfo{
		Browser:  "-",
		OS:       "-",
		Device:   "Desktop",
		Location: "-",
	}

	if strings.TrimSpace(userAgent) != "" {
		parsed := ua.Parse(userAgent)
		if parsed.Name != "" {
			info.Browser = strings.TrimSpace(parsed.Name + " " + parsed.Version)
		}
		if parsed.OS != "" {
			info.OS = strings.TrimSpace(parsed.OS + " " + parsed.OSVersion)
		}
		switch {
		case parsed.Mobile:
			info.Device = "mobile"
		case parsed.Tablet:
			info.Device = "tablet"
		default:
			info.Device = "Desktop"
		}
		if parsed.Device != "" && info.Device != "Desktop" {
			info.Device = fmt.Sprintf("%s (%s)", info.Device, parsed.Device)
		}
		if parsed.Bot || botPattern.MatchString(userAgent) {
			info.Bot = true
			info.BotName = parsed.Name
			if info.BotName == "" {
				info.BotName = "unknown bot"
			}
		}
	}

	if e != nil && e.geo != nil {
		if loc := e.lookupLocation(ip); loc != "" {
			info.Location = loc
		}
	}
	return info
}

func (e *Enricher) lookupLocation(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	record, err := e.geo.City(addr)
	if err != nil || record == nil {
		return ""
	}
	if record.Country.ISOCode != "" {
		return record.Country.ISOCode
	}
	return ""
}

// IsBot reports whether the user agent matches a known crawler.
func IsBot(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return false
	}
	return ua.Parse(userAgent).Bot || botPattern.MatchString(userAgent)
}
