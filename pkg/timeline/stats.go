package timeline

import (
	"sort"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
)

// Stats summarizes the extent of a timeline.
type Stats struct {
	Events   int       `json:"events"`
	Emails   int       `json:"emails"`
	Meetings int       `json:"meetings"`
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
	SpanDays int       `json:"span_days"`
	// Density is events per day, using at least one day as the span.
	Density float64 `json:"density"`
}

// Stats computes the timeline summary. The zero Stats is returned for an
// empty timeline.
func (t *Timeline) Stats() Stats {
	if t.Empty() {
		return Stats{}
	}
	s := Stats{
		Events: len(t.entries),
		First:  t.entries[0].Date,
		Last:   t.entries[len(t.entries)-1].Date,
	}
	for _, e := range t.entries {
		switch e.Type {
		case common.EventTypeEmail:
			s.Emails++
		case common.EventTypeMeeting:
			s.Meetings++
		}
	}
	s.SpanDays = DaysBetween(s.First, s.Last)
	s.Density = float64(s.Events) / float64(max(s.SpanDays, 1))
	return s
}

// Activity counts the events a participant appears in.
type Activity struct {
	Total    int `json:"total"`
	Emails   int `json:"emails"`
	Meetings int `json:"meetings"`
}

// Activity returns per-participant event counts.
func (t *Timeline) Activity() map[string]Activity {
	out := make(map[string]Activity)
	for _, e := range t.entries {
		for _, p := range e.Participants {
			a := out[p]
			a.Total++
			switch e.Type {
			case common.EventTypeEmail:
				a.Emails++
			case common.EventTypeMeeting:
				a.Meetings++
			}
			out[p] = a
		}
	}
	return out
}

// Participation describes when a participant was active.
type Participation struct {
	Participant string    `json:"participant"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	TenureDays  int       `json:"tenure_days"`
	TotalEvents int       `json:"total_events"`
	// ActivityFrequency is events per day of tenure, with a tenure of at
	// least one day.
	ActivityFrequency float64 `json:"activity_frequency"`
}

// Participation returns the participation pattern of every participant,
// ordered by first appearance.
func (t *Timeline) Participation() []Participation {
	byPerson := make(map[string]*Participation)
	var order []string
	for _, e := range t.entries {
		for _, p := range e.Participants {
			rec, ok := byPerson[p]
			if !ok {
				rec = &Participation{Participant: p, FirstSeen: e.Date}
				byPerson[p] = rec
				order = append(order, p)
			}
			rec.LastSeen = e.Date
			rec.TotalEvents++
		}
	}

	out := make([]Participation, 0, len(order))
	for _, p := range order {
		rec := byPerson[p]
		rec.TenureDays = DaysBetween(rec.FirstSeen, rec.LastSeen)
		rec.ActivityFrequency = float64(rec.TotalEvents) / float64(max(rec.TenureDays, 1))
		out = append(out, *rec)
	}
	return out
}

// ParticipantStat is the engagement of one identity across sources.
type ParticipantStat struct {
	Email        string `json:"email"`
	Organization string `json:"organization"`
	EmailThreads int    `json:"email_threads"`
	// Meetings counts meetings attended or organized.
	Meetings    int `json:"meetings"`
	TotalEvents int `json:"total_events"`
}

// ParticipantStats computes per-identity engagement from the raw sources,
// sorted by total events descending and then by email.
func ParticipantStats(emails []common.EmailThread, meetings []common.Meeting) []ParticipantStat {
	stats := make(map[string]*ParticipantStat)
	get := func(identity string) *ParticipantStat {
		if !common.IsIdentity(identity) {
			return nil
		}
		s, ok := stats[identity]
		if !ok {
			s = &ParticipantStat{Email: identity, Organization: common.Organization(identity)}
			stats[identity] = s
		}
		return s
	}

	for _, e := range emails {
		for _, p := range dedupe(e.Participants) {
			if s := get(p); s != nil {
				s.EmailThreads++
			}
		}
	}
	for _, m := range meetings {
		members := dedupe(append([]string{m.Organizer}, m.Attendees...))
		for _, p := range members {
			if s := get(p); s != nil {
				s.Meetings++
			}
		}
	}

	out := make([]ParticipantStat, 0, len(stats))
	for _, s := range stats {
		s.TotalEvents = s.EmailThreads + s.Meetings
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalEvents != out[j].TotalEvents {
			return out[i].TotalEvents > out[j].TotalEvents
		}
		return out[i].Email < out[j].Email
	})
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
