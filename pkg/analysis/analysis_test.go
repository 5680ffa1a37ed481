package analysis

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/common"
)

var base = time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC)

func dataset() ([]common.EmailThread, []common.Meeting) {
	people := []string{"ann@acme.com", "bob@acme.com", "cid@globex.io", "dee@globex.io", "eve@initech.org"}
	subjects := []string{"Brand design draft", "Design feedback", "Visual identity", "Deployment plan", "Release checklist", "Launch schedule"}

	var emails []common.EmailThread
	for i := 0; i < 24; i++ {
		at := base.Add(time.Duration(i*40) * time.Hour)
		emails = append(emails, common.EmailThread{
			ID:           fmt.Sprintf("email_thread_%d", i),
			Subject:      subjects[(i/4)%len(subjects)],
			Participants: []string{people[i%5], people[(i+1)%5], people[(i+2)%5]},
			FirstDate:    at,
			LastDate:     at.Add(2 * time.Hour),
			EmailCount:   2,
		})
	}
	meetings := []common.Meeting{
		{UID: "m-kickoff", Summary: "Project kickoff workshop", Start: base, End: base.Add(2 * time.Hour), Organizer: people[0], Attendees: people},
		{UID: "m-demo", Summary: "Final demo", Start: base.Add(20 * 24 * time.Hour), End: base.Add(20*24*time.Hour + time.Hour), Organizer: people[2], Attendees: people[1:4]},
	}
	return emails, meetings
}

func TestRunParallelMatchesSequential(t *testing.T) {
	emails, meetings := dataset()

	seq, err := NewAnalyzer(NewAnalyzerParams{Parallelism: 1}).Run(context.Background(), emails, meetings)
	if err != nil {
		t.Fatalf("sequential run: %v", err)
	}
	par, err := NewAnalyzer(NewAnalyzerParams{Parallelism: 4}).Run(context.Background(), emails, meetings)
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}

	if len(seq.Errors) != 0 || len(par.Errors) != 0 {
		t.Fatalf("unexpected errors: %v / %v", seq.Errors, par.Errors)
	}
	if seq.RunID == "" || seq.RunID == par.RunID {
		t.Errorf("run ids should be unique: %q / %q", seq.RunID, par.RunID)
	}

	checks := []struct {
		name string
		a, b any
	}{
		{"bursts", seq.Bursts, par.Bursts},
		{"influence", seq.Influence, par.Influence},
		{"milestones", seq.Milestones, par.Milestones},
		{"phases", seq.Phases, par.Phases},
		{"handoffs", seq.Handoffs, par.Handoffs},
		{"role transitions", seq.RoleTransitions, par.RoleTransitions},
		{"graph stats", seq.GraphStats, par.GraphStats},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.a, c.b) {
			t.Errorf("%s differ between sequential and parallel runs", c.name)
		}
	}

	if seq.TimelineStats.Events != 26 {
		t.Errorf("events = %d, want 26", seq.TimelineStats.Events)
	}
	if len(seq.Influence) != 5 {
		t.Errorf("influence scores = %d, want 5", len(seq.Influence))
	}
	if len(seq.Stages) < 7 {
		t.Errorf("expected a stage per step, got %+v", seq.Stages)
	}
}

func TestRunIsolatesDetectorFailure(t *testing.T) {
	emails, meetings := dataset()
	a := NewAnalyzer(NewAnalyzerParams{Parallelism: 2})
	a.hook = func(detector string) {
		if detector == DetectorInfluence {
			panic("boom")
		}
	}

	report, err := a.Run(context.Background(), emails, meetings)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(report.Errors[DetectorInfluence], "boom") {
		t.Errorf("influence error = %q", report.Errors[DetectorInfluence])
	}
	if !report.Failed(DetectorRoleTransitions) {
		t.Errorf("role transitions should be skipped without influence")
	}
	for _, name := range []string{DetectorBursts, DetectorMilestones, DetectorPhases, DetectorHandoffs} {
		if report.Failed(name) {
			t.Errorf("%s should not fail: %s", name, report.Errors[name])
		}
	}
	if len(report.Handoffs) == 0 {
		t.Errorf("handoffs should still be detected")
	}
}

func TestRunEmptyDataset(t *testing.T) {
	report, err := NewAnalyzer(NewAnalyzerParams{}).Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	if report.Bursts != nil || report.Influence != nil || report.Phases != nil || report.Handoffs != nil {
		t.Errorf("expected empty results, got %+v", report)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emails, meetings := dataset()
	if _, err := NewAnalyzer(NewAnalyzerParams{}).Run(ctx, emails, meetings); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEstimateDurationFromHistory(t *testing.T) {
	a := NewAnalyzer(NewAnalyzerParams{})
	if got := a.EstimateDuration(10, 2); got != 0 {
		t.Fatalf("estimate before first run = %v, want 0", got)
	}

	emails, meetings := dataset()
	if _, err := a.Run(context.Background(), emails, meetings); err != nil {
		t.Fatalf("run: %v", err)
	}
	seen := map[string]int64{}
	for _, st := range a.history.Stages() {
		seen[st.Name] += st.Items
	}
	want := int64(len(emails) + len(meetings))
	if seen[stageTimeline] != want || seen[stageGraph] != want {
		t.Fatalf("history items = %v, want %d for timeline and graph", seen, want)
	}

	b := NewAnalyzer(NewAnalyzerParams{})
	b.history.AddProcessingTime(stageTimeline, 10, 100*time.Millisecond)
	b.history.AddProcessingTime(stageGraph, 10, time.Second)
	if got := b.EstimateDuration(15, 5); got != 2200*time.Millisecond {
		t.Errorf("estimate = %v, want 2.2s", got)
	}
}
