package handoff

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/analysis/influence"
	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"
)

// Type classifies a participant change.
type Type string

const (
	TypeGapResumption Type = "gap_resumption"
	TypeTeamExpansion Type = "team_expansion"
	TypeTeamTurnover  Type = "team_turnover"
	// TypeDeparture marks people leaving without replacement. It is not a
	// transfer of work but is reported alongside handoffs.
	TypeDeparture Type = "departure"
)

// roleTransitionConfidence is fixed for every role transition.
const roleTransitionConfidence = 0.8

// Params controls handoff classification.
type Params struct {
	TimeGapDays        int     `json:"time_gap_days" yaml:"time_gap_days" validate:"gte=0"`
	MinNewParticipants int     `json:"min_new_participants" yaml:"min_new_participants" validate:"gte=1"`
	TurnoverThreshold  float64 `json:"turnover_threshold" yaml:"turnover_threshold" validate:"gte=0,lte=1"`
}

// DefaultParams returns a 14 day gap, 2 new people and 70% turnover.
func DefaultParams() Params {
	return Params{TimeGapDays: 14, MinNewParticipants: 2, TurnoverThreshold: 0.7}
}

// Handoff is a change in the participant set between consecutive events.
type Handoff struct {
	ID                   int              `json:"handoff_id"`
	Date                 time.Time        `json:"date"`
	Type                 Type             `json:"handoff_type"`
	NewParticipants      []string         `json:"new_participants"`
	DepartedParticipants []string         `json:"departed_participants"`
	NewCount             int              `json:"new_count"`
	DepartedCount        int              `json:"departed_count"`
	TimeGapDays          int              `json:"time_gap_days"`
	EventSubject         string           `json:"event_subject"`
	EventType            common.EventType `json:"event_type"`
	Confidence           float64          `json:"confidence"`
	Description          string           `json:"description"`
}

// RoleTransition is a leader leaving while new people join.
type RoleTransition struct {
	Date           time.Time `json:"date"`
	LeaderDeparted []string  `json:"leader_departed"`
	NewMembers     []string  `json:"new_members"`
	Event          string    `json:"event"`
	Confidence     float64   `json:"confidence"`
}

// change is the participant delta between two consecutive entries.
type change struct {
	gapDays  int
	newcomer []string
	departed []string
	turnover float64
}

type rule struct {
	kind     Type
	matches  func(Params, change) bool
	score    func(change) float64
	describe func(change) string
}

// rules are tried in order; the first match classifies the change.
var rules = []rule{
	{
		kind: TypeGapResumption,
		matches: func(p Params, c change) bool {
			return c.gapDays > p.TimeGapDays && len(c.newcomer) >= 1
		},
		score: func(c change) float64 {
			return min(1, float64(len(c.newcomer))/3*float64(c.gapDays)/30)
		},
		describe: func(c change) string {
			return fmt.Sprintf("%d new participant(s) after %d-day gap", len(c.newcomer), c.gapDays)
		},
	},
	{
		kind: TypeTeamExpansion,
		matches: func(p Params, c change) bool {
			return len(c.newcomer) >= p.MinNewParticipants
		},
		score: func(c change) float64 {
			return min(1, float64(len(c.newcomer))/5)
		},
		describe: func(c change) string {
			return fmt.Sprintf("Team expanded by %d people", len(c.newcomer))
		},
	},
	{
		kind: TypeTeamTurnover,
		matches: func(p Params, c change) bool {
			return c.turnover >= p.TurnoverThreshold && len(c.newcomer) >= 1
		},
		score: func(c change) float64 { return c.turnover },
		describe: func(c change) string {
			return fmt.Sprintf("Team turnover: %d left, %d joined", len(c.departed), len(c.newcomer))
		},
	},
	{
		kind: TypeDeparture,
		matches: func(_ Params, c change) bool {
			return len(c.departed) >= 1 && len(c.newcomer) == 0
		},
		score: func(c change) float64 {
			return min(1, float64(len(c.departed))/3)
		},
		describe: func(c change) string {
			return fmt.Sprintf("%d participant(s) departed", len(c.departed))
		},
	},
}

// Detector classifies participant changes along the timeline.
type Detector struct {
	params Params
}

// NewDetector creates a detector. The zero Params selects DefaultParams.
// Otherwise values are used as given: a gap or turnover threshold of 0 is
// valid. MinNewParticipants below 1 would flag every change and falls back
// to the default with a warning.
func NewDetector(params Params) *Detector {
	def := DefaultParams()
	if params == (Params{}) {
		return &Detector{params: def}
	}
	if params.MinNewParticipants < 1 {
		logger.Warn("[Handoff] Invalid parameter, using default", "param", "min_new_participants", "value", params.MinNewParticipants, "default", def.MinNewParticipants)
		params.MinNewParticipants = def.MinNewParticipants
	}
	return &Detector{params: params}
}

// Detect compares every pair of consecutive timeline entries. Pairs with an
// unchanged participant set are skipped, the others are classified by the
// first matching rule.
func (d *Detector) Detect(tl *timeline.Timeline) []Handoff {
	if tl == nil || tl.Len() < 2 {
		logger.Warn("[Handoff] Insufficient data for handoff detection")
		return nil
	}

	entries := tl.Entries()
	var handoffs []Handoff
	for i := 1; i < len(entries); i++ {
		prev, curr := entries[i-1], entries[i]
		c, ok := diff(prev, curr)
		if !ok {
			continue
		}
		for _, r := range rules {
			if !r.matches(d.params, c) {
				continue
			}
			handoffs = append(handoffs, Handoff{
				ID:                   len(handoffs),
				Date:                 curr.Date,
				Type:                 r.kind,
				NewParticipants:      c.newcomer,
				DepartedParticipants: c.departed,
				NewCount:             len(c.newcomer),
				DepartedCount:        len(c.departed),
				TimeGapDays:          c.gapDays,
				EventSubject:         curr.Subject,
				EventType:            curr.Type,
				Confidence:           r.score(c),
				Description:          r.describe(c),
			})
			break
		}
	}

	if len(handoffs) == 0 {
		logger.Info("[Handoff] No handoffs detected")
		return nil
	}
	logger.Info("[Handoff] Detected handoff events", "count", len(handoffs), "types", CountByType(handoffs))
	return handoffs
}

func diff(prev, curr common.TimelineEntry) (change, bool) {
	before, after := set(prev.Participants), set(curr.Participants)
	c := change{
		gapDays:  timeline.DaysBetween(prev.Date, curr.Date),
		newcomer: minus(after, before),
		departed: minus(before, after),
	}
	if len(c.newcomer) == 0 && len(c.departed) == 0 {
		return c, false
	}
	if len(before) > 0 {
		c.turnover = float64(len(c.departed)) / float64(len(before))
	}
	return c, true
}

// CountByType tallies handoffs per type.
func CountByType(handoffs []Handoff) map[Type]int {
	counts := make(map[Type]int)
	for _, h := range handoffs {
		counts[h.Type]++
	}
	return counts
}

// RoleTransitions finds pairs of consecutive entries where a participant in
// a leader role leaves while new people join.
func RoleTransitions(tl *timeline.Timeline, scores []influence.Score) []RoleTransition {
	if tl == nil || tl.Empty() || len(scores) == 0 {
		return nil
	}
	leaders := influence.Leaders(scores)

	entries := tl.Entries()
	var out []RoleTransition
	for i := 1; i < len(entries); i++ {
		before, after := set(entries[i-1].Participants), set(entries[i].Participants)
		var left []string
		for _, p := range minus(before, after) {
			if _, ok := leaders[p]; ok {
				left = append(left, p)
			}
		}
		joined := minus(after, before)
		if len(left) == 0 || len(joined) == 0 {
			continue
		}
		out = append(out, RoleTransition{
			Date:           entries[i].Date,
			LeaderDeparted: left,
			NewMembers:     joined,
			Event:          entries[i].Subject,
			Confidence:     roleTransitionConfidence,
		})
	}
	logger.Info("[Handoff] Detected role transitions", "count", len(out))
	return out
}

func set(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// minus returns the sorted elements of a that are not in b.
func minus(a, b map[string]struct{}) []string {
	out := []string{}
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Summary renders handoffs grouped by type in order of first appearance.
func Summary(handoffs []Handoff) string {
	if len(handoffs) == 0 {
		return "No handoffs detected."
	}
	var order []Type
	groups := make(map[Type][]Handoff)
	for _, h := range handoffs {
		if _, ok := groups[h.Type]; !ok {
			order = append(order, h.Type)
		}
		groups[h.Type] = append(groups[h.Type], h)
	}

	var b strings.Builder
	line := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "\n%s\nHANDOFF EVENTS SUMMARY\n%s\n", line, line)
	for _, kind := range order {
		subset := groups[kind]
		name := common.TitleCase(strings.ReplaceAll(string(kind), "_", " "))
		fmt.Fprintf(&b, "\n%s (%d events):\n%s\n", name, len(subset), strings.Repeat("-", 70))
		for _, h := range subset {
			fmt.Fprintf(&b, "\n  [%s] %s\n", h.Date.Format(time.DateOnly), h.EventSubject)
			fmt.Fprintf(&b, "    Confidence: %.2f%%\n", h.Confidence*100)
			fmt.Fprintf(&b, "    %s\n", h.Description)
			if h.NewCount > 0 {
				fmt.Fprintf(&b, "    New: %s\n", names(h.NewParticipants))
			}
			if h.DepartedCount > 0 {
				fmt.Fprintf(&b, "    Departed: %s\n", names(h.DepartedParticipants))
			}
		}
	}
	fmt.Fprintf(&b, "\n%s\n", line)
	return b.String()
}

func names(people []string) string {
	if len(people) <= 3 {
		return strings.Join(people, ", ")
	}
	return fmt.Sprintf("%s (+ %d more)", strings.Join(people[:3], ", "), len(people)-3)
}
