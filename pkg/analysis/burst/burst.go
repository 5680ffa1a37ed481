package burst

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"
)

// maxOverlap is the share of a burst's duration another burst may cover
// before the later one is treated as a duplicate.
const maxOverlap = 0.7

// Burst is a period of intense collaboration.
type Burst struct {
	ID           int       `json:"burst_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Participants []string  `json:"participants"`
	EventCount   int       `json:"event_count"`
	// EventTypes holds the type of every event in the window, in order.
	EventTypes    []common.EventType `json:"event_types"`
	Confidence    float64            `json:"confidence"`
	TriggerEvents []string           `json:"trigger_events"`
}

// Duration returns the time between the first and the last event.
func (b Burst) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Detector finds collaboration bursts with a sliding window.
type Detector struct {
	params Params
}

// NewDetector creates a detector using params. Use AdaptiveParams to derive
// them from the data.
func NewDetector(params Params) *Detector {
	return &Detector{params: params}
}

// Params returns the parameters the detector runs with.
func (d *Detector) Params() Params {
	return d.params
}

// Detect scans the timeline. For every start event the window grows while
// events stay within WindowHours of the start; the scan stops at the first
// event outside. A window becomes a burst when it has at least MinEvents
// events and its participant union is within [MinParticipants,
// MaxParticipants]. Candidates overlapping an accepted burst by more than
// 70% of either duration are dropped.
func (d *Detector) Detect(tl *timeline.Timeline) []Burst {
	if tl.Empty() {
		logger.Warn("[Burst] Empty timeline provided")
		return nil
	}

	entries := tl.Entries()
	window := time.Duration(d.params.WindowHours * float64(time.Hour))

	var bursts []Burst
	for i, start := range entries {
		end := start.Date.Add(window)

		participants := make(map[string]struct{})
		j := i
		for ; j < len(entries) && !entries[j].Date.After(end); j++ {
			for _, p := range entries[j].Participants {
				participants[p] = struct{}{}
			}
		}
		events := entries[i:j]

		if len(events) < d.params.MinEvents {
			continue
		}
		if len(participants) < d.params.MinParticipants || len(participants) > d.params.MaxParticipants {
			continue
		}

		candidate := newBurst(events, participants)
		if overlapsAny(candidate, bursts) {
			continue
		}
		candidate.ID = len(bursts)
		bursts = append(bursts, candidate)
		logger.Debug(
			"[Burst] Burst detected",
			"events", candidate.EventCount,
			"participants", len(candidate.Participants),
			"confidence", candidate.Confidence,
		)
	}

	logger.Info("[Burst] Detected collaboration bursts", "count", len(bursts))
	return bursts
}

func newBurst(events []common.TimelineEntry, participants map[string]struct{}) Burst {
	b := Burst{
		Start:         events[0].Date,
		End:           events[len(events)-1].Date,
		Participants:  make([]string, 0, len(participants)),
		EventCount:    len(events),
		EventTypes:    make([]common.EventType, 0, len(events)),
		TriggerEvents: make([]string, 0, len(events)),
	}
	for p := range participants {
		b.Participants = append(b.Participants, p)
	}
	sort.Strings(b.Participants)
	for _, e := range events {
		b.EventTypes = append(b.EventTypes, e.Type)
		b.TriggerEvents = append(b.TriggerEvents, e.EventID)
	}
	b.Confidence = confidence(events)
	return b
}

// confidence weighs event density (0.4), participant balance (0.3) and the
// mix of email and meeting activity (0.3).
func confidence(events []common.TimelineEntry) float64 {
	if len(events) == 0 {
		return 0
	}

	hours := math.Max(events[len(events)-1].Date.Sub(events[0].Date).Hours(), 1)
	density := math.Min(1, float64(len(events))/(hours*2))

	counts := make(map[string]float64)
	types := make(map[common.EventType]struct{})
	for _, e := range events {
		for _, p := range e.Participants {
			counts[p]++
		}
		types[e.Type] = struct{}{}
	}

	balance := 0.0
	if len(counts) > 0 {
		values := make([]float64, 0, len(counts))
		for _, c := range counts {
			values = append(values, c)
		}
		balance = 1 - Gini(values)
	}
	diversity := float64(len(types)) / 2

	return math.Min(1, 0.4*density+0.3*balance+0.3*diversity)
}

// Gini returns the Gini coefficient of values using the rank-weighted form
// over ascending values:
//
//	G = 2*sum(i*x_i) / (n*sum(x)) - (n+1)/n,  i = 1..n
//
// It is 0 for equal values and approaches (n-1)/n when one value dominates.
// Empty input and an all-zero total yield 0.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var total, weighted float64
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total == 0 {
		return 0
	}
	fn := float64(n)
	return 2*weighted/(fn*total) - (fn+1)/fn
}

func overlapsAny(candidate Burst, accepted []Burst) bool {
	for _, existing := range accepted {
		if overlaps(candidate, existing) {
			return true
		}
	}
	return false
}

// overlaps reports whether the shared time span of a and b exceeds 70% of
// the duration of either burst. Zero-length bursts never overlap.
func overlaps(a, b Burst) bool {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !start.Before(end) {
		return false
	}
	shared := end.Sub(start).Seconds()
	for _, d := range []float64{a.Duration().Seconds(), b.Duration().Seconds()} {
		if d > 0 && shared/d > maxOverlap {
			return true
		}
	}
	return false
}

// Summary is one row of the burst overview table.
type Summary struct {
	BurstID          int       `json:"burst_id"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	DurationHours    float64   `json:"duration_hours"`
	EventCount       int       `json:"event_count"`
	ParticipantCount int       `json:"participant_count"`
	Confidence       float64   `json:"confidence"`
	Emails           int       `json:"emails"`
	Meetings         int       `json:"meetings"`
}

// Summarize builds the overview table of bursts.
func Summarize(bursts []Burst) []Summary {
	out := make([]Summary, 0, len(bursts))
	for _, b := range bursts {
		s := Summary{
			BurstID:          b.ID,
			Start:            b.Start,
			End:              b.End,
			DurationHours:    b.Duration().Hours(),
			EventCount:       b.EventCount,
			ParticipantCount: len(b.Participants),
			Confidence:       b.Confidence,
		}
		for _, t := range b.EventTypes {
			switch t {
			case common.EventTypeEmail:
				s.Emails++
			case common.EventTypeMeeting:
				s.Meetings++
			}
		}
		out = append(out, s)
	}
	return out
}
