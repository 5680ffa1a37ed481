package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/analysis"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/burst"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

// File names written by Write.
const (
	FileTimeline         = "timeline.csv"
	FileParticipantStats = "participant_stats.csv"
	FileParticipation    = "participation.csv"
	FileGraphStats       = "graph_stats.json"
	FileGraph            = "graphs/project_graph.json"
	FileBursts           = "collaboration_bursts.csv"
	FileMilestones       = "milestones.csv"
	FilePhases           = "phase_transitions.csv"
	FileInfluence        = "influence_scores.csv"
	FileHandoffs         = "handoffs.csv"
	FileRoleTransitions  = "role_transitions.json"
	FileReport           = "report.json"
	FileSummary          = "summary_report.txt"
)

const timeLayout = time.DateTime

type file struct {
	name   string
	render func(*analysis.Report) ([]byte, error)
}

var files = []file{
	{FileTimeline, timelineCSV},
	{FileParticipantStats, participantStatsCSV},
	{FileParticipation, participationCSV},
	{FileGraphStats, func(r *analysis.Report) ([]byte, error) { return marshal(r.GraphStats) }},
	{FileGraph, graphJSON},
	{FileBursts, burstsCSV},
	{FileMilestones, milestonesCSV},
	{FilePhases, phasesCSV},
	{FileInfluence, influenceCSV},
	{FileHandoffs, handoffsCSV},
	{FileRoleTransitions, func(r *analysis.Report) ([]byte, error) { return marshal(r.RoleTransitions) }},
	{FileReport, func(r *analysis.Report) ([]byte, error) { return marshal(r) }},
	{FileSummary, func(r *analysis.Report) ([]byte, error) { return []byte(r.Text()), nil }},
}

// Write renders every export of the report and stores it in sink. It
// returns the names written, in order.
func Write(ctx context.Context, sink Sink, report *analysis.Report) ([]string, error) {
	written := make([]string, 0, len(files))
	for _, f := range files {
		data, err := f.render(report)
		if err != nil {
			return written, fmt.Errorf("Failed to render %s:\n%w", f.name, err)
		}
		if err := sink.Write(ctx, f.name, data); err != nil {
			return written, fmt.Errorf("Failed to write %s:\n%w", f.name, err)
		}
		written = append(written, f.name)
	}
	logger.Info("[Export] Wrote exports", "run", report.RunID, "files", len(written))
	return written, nil
}

func marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func graphJSON(r *analysis.Report) ([]byte, error) {
	var buf bytes.Buffer
	if r.Graph == nil {
		return []byte("null"), nil
	}
	if err := r.Graph.WriteNodeLink(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func list(values []string) string { return strings.Join(values, ";") }

func timelineCSV(r *analysis.Report) ([]byte, error) {
	var rows [][]string
	if r.Timeline != nil {
		for _, e := range r.Timeline.Entries() {
			rows = append(rows, []string{
				ts(e.Date), string(e.Type), e.EventID, e.Subject, list(e.Participants),
				itoa(e.ParticipantCount), itoa(e.EmailCount), itoa(e.DurationDays),
				ftoa(e.DurationHours), e.Organizer, e.Location,
			})
		}
	}
	return writeCSV([]string{
		"date", "type", "event_id", "subject", "participants", "participant_count",
		"email_count", "duration_days", "duration_hours", "organizer", "location",
	}, rows)
}

func participantStatsCSV(r *analysis.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.ParticipantStats))
	for _, s := range r.ParticipantStats {
		rows = append(rows, []string{s.Email, s.Organization, itoa(s.EmailThreads), itoa(s.Meetings), itoa(s.TotalEvents)})
	}
	return writeCSV([]string{"email", "organization", "email_threads", "meetings", "total_events"}, rows)
}

func participationCSV(r *analysis.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Participation))
	for _, p := range r.Participation {
		rows = append(rows, []string{
			p.Participant, ts(p.FirstSeen), ts(p.LastSeen), itoa(p.TenureDays),
			itoa(p.TotalEvents), ftoa(p.ActivityFrequency),
		})
	}
	return writeCSV([]string{"participant", "first_seen", "last_seen", "tenure_days", "total_events", "activity_frequency"}, rows)
}

func burstsCSV(r *analysis.Report) ([]byte, error) {
	summaries := burst.Summarize(r.Bursts)
	rows := make([][]string, 0, len(summaries))
	for i, s := range summaries {
		rows = append(rows, []string{
			itoa(s.BurstID), ts(s.Start), ts(s.End), ftoa(s.DurationHours), itoa(s.EventCount),
			itoa(s.ParticipantCount), ftoa(s.Confidence), itoa(s.Emails), itoa(s.Meetings),
			list(r.Bursts[i].Participants),
		})
	}
	return writeCSV([]string{
		"burst_id", "start", "end", "duration_hours", "event_count", "participant_count",
		"confidence", "emails", "meetings", "participants",
	}, rows)
}

func milestonesCSV(r *analysis.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Milestones))
	for _, m := range r.Milestones {
		rows = append(rows, []string{
			itoa(m.ID), ts(m.Date), string(m.Type), m.Title, m.EventID, itoa(m.ParticipantCount),
			ftoa(m.Confidence), itoa(m.FollowUpCount), list(m.Keywords), m.Description,
		})
	}
	return writeCSV([]string{
		"milestone_id", "date", "type", "title", "event_id", "participant_count",
		"confidence", "follow_up_count", "keywords", "description",
	}, rows)
}

func phasesCSV(r *analysis.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Phases))
	for _, p := range r.Phases {
		rows = append(rows, []string{
			itoa(p.ID), ts(p.Date), p.PreviousPhase, p.NewPhase, list(p.PreviousKeywords),
			list(p.NewKeywords), ftoa(p.Similarity), ftoa(p.Confidence), itoa(p.EventCount), p.Description,
		})
	}
	return writeCSV([]string{
		"transition_id", "date", "previous_phase", "new_phase", "previous_keywords",
		"new_keywords", "similarity_score", "confidence", "event_count", "description",
	}, rows)
}

func influenceCSV(r *analysis.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Influence))
	for _, s := range r.Influence {
		rows = append(rows, []string{
			itoa(s.Rank), s.Participant, ftoa(s.InfluenceScore), ftoa(s.PageRank),
			ftoa(s.DegreeCentrality), ftoa(s.BetweennessCentrality), itoa(s.EventCount),
			itoa(s.EmailCount), itoa(s.MeetingCount), string(s.Role), s.Organization,
		})
	}
	return writeCSV([]string{
		"rank", "participant", "influence_score", "pagerank", "degree_centrality",
		"betweenness_centrality", "event_count", "email_count", "meeting_count", "role", "organization",
	}, rows)
}

func handoffsCSV(r *analysis.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Handoffs))
	for _, h := range r.Handoffs {
		rows = append(rows, []string{
			itoa(h.ID), ts(h.Date), string(h.Type), list(h.NewParticipants), list(h.DepartedParticipants),
			itoa(h.NewCount), itoa(h.DepartedCount), itoa(h.TimeGapDays), h.EventSubject,
			string(h.EventType), ftoa(h.Confidence), h.Description,
		})
	}
	return writeCSV([]string{
		"handoff_id", "date", "handoff_type", "new_participants", "departed_participants",
		"new_count", "departed_count", "time_gap_days", "event_subject", "event_type",
		"confidence", "description",
	}, rows)
}
