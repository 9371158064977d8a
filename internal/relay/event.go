// Package relay delivers guest events to outside notification channels.
// Delivery is best effort: each target is attempted independently and a
// single success is enough for the event to count as delivered.
package relay

import "time"

// Event kinds understood by the formatters.
const (
	KindRSVP      = "rsvp"
	KindGuestbook = "guestbook"
	KindVisit     = "visit"
)

// Event is a guest action worth relaying.
type Event interface {
	Kind() string
}

// RSVP records an attendance reply from a guest.
type RSVP struct {
	Name           string
	Attending      bool
	Guests         int
	FoodPreference string
	Message        string
}

func (RSVP) Kind() string { return KindRSVP }

// AttendanceLabel returns the human label used in notifications.
func (r RSVP) AttendanceLabel() string {
	if r.Attending {
		return "Hadir"
	}
	return "Tidak Hadir"
}

// Guestbook records a public guestbook entry.
type Guestbook struct {
	Name    string
	Message string
}

func (Guestbook) Kind() string { return KindGuestbook }

// Visit records an invitation page open, enriched with client details.
type Visit struct {
	GuestLabel string
	UserAgent  string
	Timestamp  time.Time
	SessionID  string
	IP         string
	Referrer   string
	Browser    string
	OS         string
	Device     string
	Location   string
	Bot        bool
	BotName    string
	Path       string
}

func (Visit) Kind() string { return KindVisit }
