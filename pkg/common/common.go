package common

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EventType tags a collaboration event with its source kind.
type EventType string

const (
	EventTypeEmail   EventType = "email"
	EventTypeMeeting EventType = "meeting"
)

// UnknownOrganization is reported for identities without a usable domain.
const UnknownOrganization = "Unknown"

// Person is an email identity taking part in the collaboration. The
// organization is inferred from the domain of the address.
type Person struct {
	Email        string `json:"email"`
	Organization string `json:"organization"`
}

// NewPerson returns the Person for email. Identities that do not look like an
// address (no "@") are rejected.
func NewPerson(email string) (Person, bool) {
	if !IsIdentity(email) {
		return Person{}, false
	}
	return Person{Email: email, Organization: Organization(email)}, true
}

// Event is the common view over the two kinds of collaboration records.
// The set of implementations is closed: EmailThread and Meeting.
type Event interface {
	EventID() string
	EventType() EventType
	StartTime() time.Time
	EndTime() time.Time
	Title() string
	// ParticipantSet returns the identities that took part in the event.
	// For meetings this is the attendee list; the organizer is a separate
	// membership.
	ParticipantSet() []string

	isEvent()
}

// EmailThread is a conversation of one or more emails sharing a subject.
type EmailThread struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Participants []string  `json:"participants"`
	FirstDate    time.Time `json:"first_date"`
	LastDate     time.Time `json:"last_date"`
	EmailCount   int       `json:"email_count"`
}

func (t EmailThread) EventID() string          { return t.ID }
func (t EmailThread) EventType() EventType     { return EventTypeEmail }
func (t EmailThread) StartTime() time.Time     { return t.FirstDate }
func (t EmailThread) EndTime() time.Time       { return t.LastDate }
func (t EmailThread) Title() string            { return t.Subject }
func (t EmailThread) ParticipantSet() []string { return t.Participants }
func (EmailThread) isEvent()                   {}

// Meeting is a calendar event.
type Meeting struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Organizer   string    `json:"organizer"`
	Attendees   []string  `json:"attendees"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

func (m Meeting) EventID() string          { return m.UID }
func (m Meeting) EventType() EventType     { return EventTypeMeeting }
func (m Meeting) StartTime() time.Time     { return m.Start }
func (m Meeting) EndTime() time.Time       { return m.End }
func (m Meeting) Title() string            { return m.Summary }
func (m Meeting) ParticipantSet() []string { return m.Attendees }
func (Meeting) isEvent()                   {}

// TimelineEntry is the normalized projection of an Event used by all
// detectors. Type specific fields are zero for the other kind.
type TimelineEntry struct {
	Date             time.Time `json:"date"`
	Type             EventType `json:"type"`
	EventID          string    `json:"event_id"`
	Subject          string    `json:"subject"`
	Participants     []string  `json:"participants"`
	ParticipantCount int       `json:"participant_count"`

	// email threads
	EmailCount   int `json:"email_count,omitempty"`
	DurationDays int `json:"duration_days,omitempty"`

	// meetings
	DurationHours float64 `json:"duration_hours,omitempty"`
	Organizer     string  `json:"organizer,omitempty"`
	Location      string  `json:"location,omitempty"`
}

// IsIdentity reports whether s can be used as a person identity.
func IsIdentity(s string) bool {
	return strings.Contains(s, "@")
}

// Domain returns the lower-cased part of an address after the last "@".
func Domain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// Organization infers an organization name from the first label of the
// address domain, skipping a leading "www.".
//
//	Organization("jane@acme.co.uk")   // "Acme"
//	Organization("bob@www.globex.io") // "Globex"
//	Organization("nobody")            // "Unknown"
func Organization(email string) string {
	domain := strings.TrimPrefix(Domain(email), "www.")
	label, _, _ := strings.Cut(domain, ".")
	if label == "" {
		return UnknownOrganization
	}
	return TitleCase(label)
}

// TitleCase upper-cases the first letter of every word.
func TitleCase(s string) string {
	// cases.Caser keeps state and must not be shared between goroutines.
	return cases.Title(language.Und).String(s)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
