package milestone

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"
)

// Type is the pattern a milestone was detected by.
type Type string

const (
	TypeDecisionPoint Type = "decision_point"
	TypeDeliverable   Type = "deliverable"
	TypePlanningPhase Type = "planning_phase"
)

const (
	// calmWindow follows the follow-up window of a decision point.
	calmWindow = 72 * time.Hour
	// maxCalmEvents is the most events the calm window may hold.
	maxCalmEvents = 3
	// planningWindow is where activity after a planning meeting is counted.
	planningWindow = 7 * 24 * time.Hour
	// minSubsequentEvents is the activity a planning meeting needs.
	minSubsequentEvents = 2
	// minDeliverableConfidence filters weak deliverable matches.
	minDeliverableConfidence = 0.5
)

// Params controls milestone detection.
type Params struct {
	LargeMeetingThreshold int      `json:"large_meeting_threshold" yaml:"large_meeting_threshold" validate:"gte=1"`
	FollowUpWindowHours   float64  `json:"follow_up_window_hours" yaml:"follow_up_window_hours" validate:"gt=0"`
	MinFollowUps          int      `json:"min_follow_ups" yaml:"min_follow_ups" validate:"gte=0"`
	DeliverableKeywords   []string `json:"deliverable_keywords" yaml:"deliverable_keywords"`
	PlanningKeywords      []string `json:"planning_keywords" yaml:"planning_keywords"`
}

// DefaultParams returns the default thresholds and keyword lists.
func DefaultParams() Params {
	return Params{
		LargeMeetingThreshold: 7,
		FollowUpWindowHours:   48,
		MinFollowUps:          3,
		DeliverableKeywords: []string{
			"presentation", "demo", "review", "showcase", "deliverable",
			"launch", "release", "delivery", "final", "approval",
		},
		PlanningKeywords: []string{
			"workshop", "briefing", "kickoff", "strategy", "planning",
			"brainstorm", "discovery", "scoping", "roadmap", "alignment",
		},
	}
}

// Milestone is a key project event.
type Milestone struct {
	ID               int       `json:"milestone_id"`
	Date             time.Time `json:"date"`
	Type             Type      `json:"type"`
	Title            string    `json:"title"`
	EventID          string    `json:"event_id"`
	Participants     []string  `json:"participants"`
	ParticipantCount int       `json:"participant_count"`
	Confidence       float64   `json:"confidence"`
	Description      string    `json:"description"`
	FollowUpCount    int       `json:"follow_up_count"`
	Keywords         []string  `json:"keywords,omitempty"`
}

// Detector runs the three milestone scans.
type Detector struct {
	params Params
}

// NewDetector creates a detector. Empty keyword lists select the default
// lists. MinFollowUps is used as given, 0 included. A meeting size below 1
// or a non-positive follow-up window cannot match and falls back to the
// default with a warning; the zero Params selects DefaultParams silently.
func NewDetector(params Params) *Detector {
	def := DefaultParams()
	unset := params.LargeMeetingThreshold == 0 && params.FollowUpWindowHours == 0 && params.MinFollowUps == 0
	if unset {
		params.MinFollowUps = def.MinFollowUps
	}
	if params.LargeMeetingThreshold < 1 {
		if !unset {
			logger.Warn("[Milestone] Invalid parameter, using default", "param", "large_meeting_threshold", "value", params.LargeMeetingThreshold, "default", def.LargeMeetingThreshold)
		}
		params.LargeMeetingThreshold = def.LargeMeetingThreshold
	}
	if params.FollowUpWindowHours <= 0 {
		if !unset {
			logger.Warn("[Milestone] Invalid parameter, using default", "param", "follow_up_window_hours", "value", params.FollowUpWindowHours, "default", def.FollowUpWindowHours)
		}
		params.FollowUpWindowHours = def.FollowUpWindowHours
	}
	if len(params.DeliverableKeywords) == 0 {
		params.DeliverableKeywords = def.DeliverableKeywords
	}
	if len(params.PlanningKeywords) == 0 {
		params.PlanningKeywords = def.PlanningKeywords
	}
	return &Detector{params: params}
}

// Detect runs the decision point, deliverable and planning scans over the
// meetings and concatenates the results sorted by date. A meeting may match
// more than one pattern. IDs are assigned after sorting.
func (d *Detector) Detect(meetings []common.Meeting, tl *timeline.Timeline) []Milestone {
	logger.Info("[Milestone] Detecting project milestones")
	if tl == nil {
		tl = timeline.New(nil, nil)
	}

	var milestones []Milestone

	decisions := d.decisionPoints(meetings, tl)
	logger.Debug("[Milestone] Detected decision points", "count", len(decisions))
	milestones = append(milestones, decisions...)

	deliverables := d.deliverables(meetings)
	logger.Debug("[Milestone] Detected deliverable events", "count", len(deliverables))
	milestones = append(milestones, deliverables...)

	planning := d.planningPhases(meetings, tl)
	logger.Debug("[Milestone] Detected planning phases", "count", len(planning))
	milestones = append(milestones, planning...)

	if len(milestones) == 0 {
		logger.Warn("[Milestone] No milestones detected")
		return nil
	}

	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].Date.Before(milestones[j].Date)
	})
	for i := range milestones {
		milestones[i].ID = i
	}

	logger.Info("[Milestone] Detected milestones", "count", len(milestones))
	return milestones
}

// decisionPoints finds large meetings followed by a spike of email activity
// and then a calm period.
func (d *Detector) decisionPoints(meetings []common.Meeting, tl *timeline.Timeline) []Milestone {
	window := time.Duration(d.params.FollowUpWindowHours * float64(time.Hour))

	var out []Milestone
	for _, m := range meetings {
		attendees := len(m.Attendees)
		if attendees < d.params.LargeMeetingThreshold {
			continue
		}

		followUpEnd := m.Start.Add(window)
		followUps := tl.CountBetween(m.Start, followUpEnd, common.EventTypeEmail)
		calm := tl.CountBetween(followUpEnd, followUpEnd.Add(calmWindow))
		if followUps < d.params.MinFollowUps || calm > maxCalmEvents {
			continue
		}

		confidence := 0.4*ratio(followUps, 10) +
			0.4*ratio(attendees, 15) +
			0.2*(1-ratio(calm, maxCalmEvents))

		out = append(out, d.newMilestone(m, TypeDecisionPoint, confidence,
			fmt.Sprintf("Major decision meeting with %d participants, %d follow-up communications", attendees, followUps),
			followUps, nil))
	}
	return out
}

// deliverables finds meetings whose subject names a deliverable. Meetings
// spanning more than one attendee domain score higher.
func (d *Detector) deliverables(meetings []common.Meeting) []Milestone {
	var out []Milestone
	for _, m := range meetings {
		matches := matchKeywords(m.Summary, d.params.DeliverableKeywords)
		if len(matches) == 0 {
			continue
		}

		crossOrg := 0.5
		if crossOrganization(m.Attendees) {
			crossOrg = 1
		}
		confidence := 0.5*ratio(len(matches), 2) +
			0.3*ratio(len(m.Attendees), 10) +
			0.2*crossOrg
		if confidence < minDeliverableConfidence {
			continue
		}

		out = append(out, d.newMilestone(m, TypeDeliverable, confidence,
			"Deliverable event: "+strings.Join(matches, ", "),
			0, matches))
	}
	return out
}

// planningPhases finds planning meetings followed by activity.
func (d *Detector) planningPhases(meetings []common.Meeting, tl *timeline.Timeline) []Milestone {
	var out []Milestone
	for _, m := range meetings {
		matches := matchKeywords(m.Summary, d.params.PlanningKeywords)
		if len(matches) == 0 {
			continue
		}

		subsequent := tl.CountBetween(m.Start, m.Start.Add(planningWindow))
		if subsequent < minSubsequentEvents {
			continue
		}
		confidence := 0.4*ratio(len(matches), 2) +
			0.3*ratio(len(m.Attendees), 12) +
			0.3*ratio(subsequent, 10)

		out = append(out, d.newMilestone(m, TypePlanningPhase, confidence,
			fmt.Sprintf("Planning phase: %s, %d subsequent events", strings.Join(matches, ", "), subsequent),
			subsequent, matches))
	}
	return out
}

func (d *Detector) newMilestone(m common.Meeting, kind Type, confidence float64, desc string, followUps int, keywords []string) Milestone {
	return Milestone{
		Date:             m.Start,
		Type:             kind,
		Title:            m.Summary,
		EventID:          m.UID,
		Participants:     m.Attendees,
		ParticipantCount: len(m.Attendees),
		Confidence:       common.Round(confidence, 3),
		Description:      desc,
		FollowUpCount:    followUps,
		Keywords:         keywords,
	}
}

// matchKeywords returns the keywords contained in subject, ignoring case,
// in keyword list order.
func matchKeywords(subject string, keywords []string) []string {
	lower := strings.ToLower(subject)
	var matches []string
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches = append(matches, kw)
		}
	}
	return matches
}

func crossOrganization(attendees []string) bool {
	domains := make(map[string]struct{})
	for _, a := range attendees {
		if !common.IsIdentity(a) {
			continue
		}
		domains[common.Domain(a)] = struct{}{}
		if len(domains) > 1 {
			return true
		}
	}
	return false
}

// ratio returns min(1, n/limit).
func ratio(n, limit int) float64 {
	return min(1, float64(n)/float64(limit))
}

// Summary renders milestones grouped by type as plain text.
func Summary(milestones []Milestone) string {
	if len(milestones) == 0 {
		return "No milestones detected."
	}

	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "\n%s\nPROJECT MILESTONES SUMMARY\n%s\n", rule, rule)
	for _, kind := range []Type{TypeDecisionPoint, TypeDeliverable, TypePlanningPhase} {
		var subset []Milestone
		for _, m := range milestones {
			if m.Type == kind {
				subset = append(subset, m)
			}
		}
		if len(subset) == 0 {
			continue
		}
		name := common.TitleCase(strings.ReplaceAll(string(kind), "_", " "))
		fmt.Fprintf(&b, "\n%ss (%d):\n%s\n", name, len(subset), strings.Repeat("-", 70))
		for _, m := range subset {
			fmt.Fprintf(&b, "\n  [%s] %s\n", m.Date.Format(time.DateOnly), m.Title)
			fmt.Fprintf(&b, "    Confidence: %.2f%%\n", m.Confidence*100)
			fmt.Fprintf(&b, "    Participants: %d\n", m.ParticipantCount)
			fmt.Fprintf(&b, "    %s\n", m.Description)
		}
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}
