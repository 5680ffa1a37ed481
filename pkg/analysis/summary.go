package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/analysis/burst"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/handoff"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/influence"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/milestone"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/phase"
	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/graph"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"
)

const topN = 10

// MonthCount is the number of events starting in a calendar month.
type MonthCount struct {
	Month  string `json:"month"`
	Events int    `json:"events"`
}

// Overview condenses a report into headline numbers.
type Overview struct {
	RunID           string                     `json:"run_id"`
	GeneratedAt     time.Time                  `json:"generated_at"`
	Timeline        timeline.Stats             `json:"timeline"`
	Graph           graph.Stats                `json:"graph"`
	Results         map[string]int             `json:"results"`
	TopParticipants []timeline.ParticipantStat `json:"top_participants"`
	TopInfluencers  []influence.Score          `json:"top_influencers"`
	Roles           map[influence.Role]int     `json:"roles"`
	MonthlyActivity []MonthCount               `json:"monthly_activity"`
	Errors          map[string]string          `json:"errors,omitempty"`
}

// Overview summarizes the report.
func (r *Report) Overview() Overview {
	return Overview{
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt,
		Timeline:    r.TimelineStats,
		Graph:       r.GraphStats,
		Results: map[string]int{
			DetectorBursts:          len(r.Bursts),
			DetectorInfluence:       len(r.Influence),
			DetectorMilestones:      len(r.Milestones),
			DetectorPhases:          len(r.Phases),
			DetectorHandoffs:        len(r.Handoffs),
			DetectorRoleTransitions: len(r.RoleTransitions),
		},
		TopParticipants: head(r.ParticipantStats, topN),
		TopInfluencers:  head(r.Influence, topN),
		Roles:           influence.RoleCounts(r.Influence),
		MonthlyActivity: r.monthlyActivity(),
		Errors:          r.Errors,
	}
}

func (r *Report) monthlyActivity() []MonthCount {
	if r.Timeline == nil {
		return nil
	}
	var out []MonthCount
	for _, e := range r.Timeline.Entries() {
		month := e.Date.Format("2006-01")
		if n := len(out); n > 0 && out[n-1].Month == month {
			out[n-1].Events++
			continue
		}
		out = append(out, MonthCount{Month: month, Events: 1})
	}
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Text renders the report as a plain text document.
func (r *Report) Text() string {
	var b strings.Builder
	heavy := strings.Repeat("=", 70)
	light := strings.Repeat("-", 70)
	section := func(title string) {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", light, title, light)
	}

	fmt.Fprintf(&b, "%s\n     COLLABORATION TIMELINE - ANALYSIS REPORT\n%s\n", heavy, heavy)
	fmt.Fprintf(&b, "\nGenerated: %s\nRun: %s\n", r.GeneratedAt.Format(time.DateTime), r.RunID)

	ts := r.TimelineStats
	section("PROJECT OVERVIEW")
	if ts.Events > 0 {
		fmt.Fprintf(&b, "Timeline Span: %s to %s\n", ts.First.Format(time.DateOnly), ts.Last.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "Total Duration: %d days\n", ts.SpanDays)
	fmt.Fprintf(&b, "Total Events: %d\n  Email Threads: %d\n  Meetings: %d\n", ts.Events, ts.Emails, ts.Meetings)

	gs := r.GraphStats
	section("GRAPH NETWORK STATISTICS")
	fmt.Fprintf(&b, "Total Nodes: %d\n  People: %d\n  Events: %d\n", gs.TotalNodes, gs.PersonNodes, gs.EventNodes)
	fmt.Fprintf(&b, "Total Edges: %d\n  Temporal Links: %d\n", gs.TotalEdges, gs.TemporalEdges)
	fmt.Fprintf(&b, "Graph Density: %.4f\nAverage Degree: %.2f\n", gs.Density, gs.AvgDegree)

	section("TOP PARTICIPANTS (by activity)")
	for i, p := range head(r.ParticipantStats, topN) {
		fmt.Fprintf(&b, "%2d. %-40s | %-15s | %3d events (%2dE, %2dM)\n",
			i+1, p.Email, p.Organization, p.TotalEvents, p.EmailThreads, p.Meetings)
	}

	section("COLLABORATION BURSTS")
	if len(r.Bursts) == 0 {
		b.WriteString("No collaboration bursts detected with current parameters.\n")
	} else {
		fmt.Fprintf(&b, "Total Bursts Detected: %d\n", len(r.Bursts))
		for _, s := range burst.Summarize(r.Bursts) {
			fmt.Fprintf(&b, "\nBurst #%d:\n", s.BurstID+1)
			fmt.Fprintf(&b, "  Period: %s to %s\n", s.Start.Format(time.DateOnly), s.End.Format(time.DateOnly))
			fmt.Fprintf(&b, "  Duration: %.1f hours\n", s.DurationHours)
			fmt.Fprintf(&b, "  Events: %d (%d emails, %d meetings)\n", s.EventCount, s.Emails, s.Meetings)
			fmt.Fprintf(&b, "  Participants: %d\n  Confidence: %.2f\n", s.ParticipantCount, s.Confidence)
		}
	}

	if len(r.Milestones) > 0 {
		b.WriteString(milestone.Summary(r.Milestones))
	}
	if len(r.Phases) > 0 {
		b.WriteString(phase.Summary(r.Phases))
	}

	if len(r.Influence) > 0 {
		section("TOP INFLUENCERS (PageRank)")
		for _, s := range head(r.Influence, topN) {
			fmt.Fprintf(&b, "%2d. %-40s | %-17s | Score: %.4f\n", s.Rank, s.Participant, s.Role, s.InfluenceScore)
		}
		b.WriteString("\nRole Distribution:\n")
		counts := influence.RoleCounts(r.Influence)
		roles := make([]string, 0, len(counts))
		for role := range counts {
			roles = append(roles, string(role))
		}
		sort.Strings(roles)
		for _, role := range roles {
			fmt.Fprintf(&b, "  %s: %d\n", role, counts[influence.Role(role)])
		}
	}

	if len(r.Handoffs) > 0 {
		b.WriteString(handoff.Summary(r.Handoffs))
	}

	section("COMMUNICATION PATTERNS")
	b.WriteString("\nMonthly Activity:\n")
	for _, m := range head(r.monthlyActivity(), topN) {
		fmt.Fprintf(&b, "  %s: %d events\n", m.Month, m.Events)
	}
	if ts.Events > 0 {
		b.WriteString("\nEvent Type Distribution:\n")
		for _, kind := range []common.EventType{common.EventTypeEmail, common.EventTypeMeeting} {
			n := ts.Emails
			if kind == common.EventTypeMeeting {
				n = ts.Meetings
			}
			fmt.Fprintf(&b, "  %s: %d (%.1f%%)\n", common.TitleCase(string(kind)), n, float64(n)/float64(ts.Events)*100)
		}
	}

	if len(r.Errors) > 0 {
		section("FAILED DETECTORS")
		names := make([]string, 0, len(r.Errors))
		for name := range r.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s: %s\n", name, r.Errors[name])
		}
	}

	fmt.Fprintf(&b, "\n%s\nEnd of Report\n%s\n", heavy, heavy)
	return b.String()
}
