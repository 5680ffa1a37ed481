package timeline

import (
	"sort"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
)

// Timeline is the chronologically ordered list of all collaboration events.
// It is immutable once built and safe to share between goroutines.
type Timeline struct {
	entries []common.TimelineEntry
}

// New builds a timeline from email threads and meetings. Entries are sorted
// by date; on equal dates emails come before meetings and input order is
// kept.
func New(emails []common.EmailThread, meetings []common.Meeting) *Timeline {
	entries := make([]common.TimelineEntry, 0, len(emails)+len(meetings))
	for _, e := range emails {
		entries = append(entries, FromEmail(e))
	}
	for _, m := range meetings {
		entries = append(entries, FromMeeting(m))
	}
	return FromEntries(entries)
}

// FromEntries builds a timeline from already projected entries.
func FromEntries(entries []common.TimelineEntry) *Timeline {
	sorted := make([]common.TimelineEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &Timeline{entries: sorted}
}

// FromEmail projects an email thread onto a timeline entry.
func FromEmail(e common.EmailThread) common.TimelineEntry {
	return common.TimelineEntry{
		Date:             e.FirstDate,
		Type:             common.EventTypeEmail,
		EventID:          e.ID,
		Subject:          e.Subject,
		Participants:     e.Participants,
		ParticipantCount: len(e.Participants),
		EmailCount:       e.EmailCount,
		DurationDays:     wholeDays(e.LastDate.Sub(e.FirstDate)),
	}
}

// FromMeeting projects a meeting onto a timeline entry.
func FromMeeting(m common.Meeting) common.TimelineEntry {
	return common.TimelineEntry{
		Date:             m.Start,
		Type:             common.EventTypeMeeting,
		EventID:          m.UID,
		Subject:          m.Summary,
		Participants:     m.Attendees,
		ParticipantCount: len(m.Attendees),
		DurationHours:    m.End.Sub(m.Start).Hours(),
		Organizer:        m.Organizer,
		Location:         m.Location,
	}
}

// wholeDays truncates a duration to full days, rounding toward negative
// infinity like a calendar day count.
func wholeDays(d time.Duration) int {
	days := d / (24 * time.Hour)
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return int(days)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return wholeDays(b.Sub(a))
}

// Entries returns the sorted entries. The slice must not be modified.
func (t *Timeline) Entries() []common.TimelineEntry {
	return t.entries
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Empty reports whether the timeline has no entries.
func (t *Timeline) Empty() bool {
	return len(t.entries) == 0
}

// Filter returns the entries of the given type in timeline order.
func (t *Timeline) Filter(kind common.EventType) []common.TimelineEntry {
	var out []common.TimelineEntry
	for _, e := range t.entries {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// CountBetween counts entries with after < date <= until. When kinds are
// given only entries of those types are counted.
func (t *Timeline) CountBetween(after, until time.Time, kinds ...common.EventType) int {
	lo := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Date.After(after)
	})
	count := 0
	for _, e := range t.entries[lo:] {
		if e.Date.After(until) {
			break
		}
		if len(kinds) == 0 || containsType(kinds, e.Type) {
			count++
		}
	}
	return count
}

func containsType(kinds []common.EventType, k common.EventType) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
