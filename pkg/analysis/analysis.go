package analysis

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/OFFIS-RIT/pulse/internal/metrics"
	"github.com/OFFIS-RIT/pulse/internal/timing"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/burst"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/handoff"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/influence"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/milestone"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/phase"
	"github.com/OFFIS-RIT/pulse/pkg/common"
	"github.com/OFFIS-RIT/pulse/pkg/graph"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
	"github.com/OFFIS-RIT/pulse/pkg/timeline"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

// Detector names used as keys in Report.Errors, stage names and metric
// labels.
const (
	DetectorBursts          = "bursts"
	DetectorInfluence       = "influence"
	DetectorMilestones      = "milestones"
	DetectorPhases          = "phases"
	DetectorHandoffs        = "handoffs"
	DetectorRoleTransitions = "role_transitions"

	stageTimeline = "timeline"
	stageGraph    = "graph"
)

// Report is the combined output of one analysis run.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Emails   []common.EmailThread `json:"-"`
	Meetings []common.Meeting     `json:"-"`
	Timeline *timeline.Timeline   `json:"-"`
	Graph    *graph.Graph         `json:"-"`

	TimelineStats    timeline.Stats             `json:"timeline"`
	GraphStats       graph.Stats                `json:"graph"`
	ParticipantStats []timeline.ParticipantStat `json:"participant_stats"`
	Participation    []timeline.Participation   `json:"participation"`

	BurstParams     burst.Params             `json:"burst_params"`
	Bursts          []burst.Burst            `json:"bursts"`
	Influence       []influence.Score        `json:"influence"`
	Milestones      []milestone.Milestone    `json:"milestones"`
	Phases          []phase.Transition       `json:"phase_transitions"`
	Handoffs        []handoff.Handoff        `json:"handoffs"`
	RoleTransitions []handoff.RoleTransition `json:"role_transitions"`

	Stages []timing.Stage `json:"stages"`
	// Errors maps a detector name to the failure that stopped it.
	Errors map[string]string `json:"errors,omitempty"`
}

// Failed reports whether the named detector failed.
func (r *Report) Failed(detector string) bool {
	_, ok := r.Errors[detector]
	return ok
}

// Analyzer runs the graph builder and all detectors over one dataset.
type Analyzer struct {
	temporalWindowHours float64
	burstParams         *burst.Params
	influence           *influence.Mapper
	milestones          *milestone.Detector
	phases              *phase.Detector
	handoffs            *handoff.Detector
	parallelism         int
	metrics             *metrics.Metrics
	// history keeps the stages of every finished run for estimates.
	history *timing.Recorder

	// hook lets tests inject a failure into a detector.
	hook func(detector string)
}

// NewAnalyzerParams configures an Analyzer.
//
// Example:
//
//	a := analysis.NewAnalyzer(analysis.NewAnalyzerParams{
//		Parallelism: 4,
//		Metrics:     metrics.NewMetrics(),
//	})
//	report, err := a.Run(ctx, emails, meetings)
type NewAnalyzerParams struct {
	// TemporalWindowHours bounds temporal proximity edges. Defaults to 48.
	TemporalWindowHours float64
	// Burst fixes the burst parameters. When nil they are derived from the
	// event density of each dataset.
	Burst     *burst.Params
	Influence influence.NewMapperParams
	Milestone milestone.Params
	Phase     phase.Params
	Handoff   handoff.Params
	// Parallelism is the number of detectors run at once. Defaults to 1.
	Parallelism int
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(params NewAnalyzerParams) *Analyzer {
	if params.TemporalWindowHours <= 0 {
		params.TemporalWindowHours = graph.DefaultTemporalWindowHours
	}
	if params.Parallelism <= 0 {
		params.Parallelism = 1
	}
	return &Analyzer{
		temporalWindowHours: params.TemporalWindowHours,
		burstParams:         params.Burst,
		influence:           influence.NewMapper(params.Influence),
		milestones:          milestone.NewDetector(params.Milestone),
		phases:              phase.NewDetector(params.Phase),
		handoffs:            handoff.NewDetector(params.Handoff),
		parallelism:         params.Parallelism,
		metrics:             params.Metrics,
		history:             timing.NewRecorder(nil),
	}
}

// EstimateDuration predicts how long building the timeline and the graph
// takes for a dataset of the given size, based on earlier runs of this
// Analyzer. Returns 0 before the first run.
func (a *Analyzer) EstimateDuration(emails, meetings int) time.Duration {
	n := int64(emails + meetings)
	return a.history.PredictProcessingTime(stageTimeline, n) +
		a.history.PredictProcessingTime(stageGraph, n)
}

// Run builds the timeline and the collaboration graph, then runs the
// detectors. Detectors are independent: a panic in one is recorded in
// Report.Errors and the others still complete. Role transitions run last
// because they need influence roles. The returned error is only set when
// ctx is cancelled or the run id cannot be generated.
func (a *Analyzer) Run(ctx context.Context, emails []common.EmailThread, meetings []common.Meeting) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("Failed to generate run id:\n%w", err)
	}

	rec := timing.NewRecorder(a.metrics.ObserveStage)
	report := &Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Emails:      emails,
		Meetings:    meetings,
		Errors:      make(map[string]string),
	}
	logger.Info("[Analysis] Starting run", "run", runID, "emails", len(emails), "meetings", len(meetings))
	if eta := a.EstimateDuration(len(emails), len(meetings)); eta > 0 {
		logger.Debug("[Analysis] Estimated build time", "run", runID, "eta", eta)
	}

	stop := rec.Track(stageTimeline, int64(len(emails)+len(meetings)))
	report.Timeline = timeline.New(emails, meetings)
	report.TimelineStats = report.Timeline.Stats()
	report.ParticipantStats = timeline.ParticipantStats(emails, meetings)
	report.Participation = report.Timeline.Participation()
	stop()

	stop = rec.Track(stageGraph, int64(len(emails)+len(meetings)))
	report.Graph = graph.Build(graph.BuildParams{
		Emails:              emails,
		Meetings:            meetings,
		TemporalWindowHours: a.temporalWindowHours,
	})
	report.GraphStats = report.Graph.Stats()
	stop()

	if a.burstParams != nil {
		report.BurstParams = *a.burstParams
	} else {
		report.BurstParams = burst.AdaptiveParams(report.TimelineStats)
	}

	var mu sync.Mutex
	tasks := []struct {
		name string
		run  func() int
	}{
		{DetectorBursts, func() int {
			report.Bursts = burst.NewDetector(report.BurstParams).Detect(report.Timeline)
			return len(report.Bursts)
		}},
		{DetectorInfluence, func() int {
			report.Influence = a.influence.Calculate(report.Graph, report.Timeline)
			return len(report.Influence)
		}},
		{DetectorMilestones, func() int {
			report.Milestones = a.milestones.Detect(meetings, report.Timeline)
			return len(report.Milestones)
		}},
		{DetectorPhases, func() int {
			report.Phases = a.phases.Detect(report.Timeline)
			return len(report.Phases)
		}},
		{DetectorHandoffs, func() int {
			report.Handoffs = a.handoffs.Detect(report.Timeline)
			return len(report.Handoffs)
		}},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			if err := a.runDetector(rec, task.name, task.run); err != nil {
				mu.Lock()
				report.Errors[task.name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if report.Failed(DetectorInfluence) || report.Failed(DetectorHandoffs) {
		report.Errors[DetectorRoleTransitions] = "skipped: influence or handoff detection failed"
	} else if err := a.runDetector(rec, DetectorRoleTransitions, func() int {
		report.RoleTransitions = handoff.RoleTransitions(report.Timeline, report.Influence)
		return len(report.RoleTransitions)
	}); err != nil {
		report.Errors[DetectorRoleTransitions] = err.Error()
	}

	report.Stages = rec.Stages()
	for _, st := range report.Stages {
		a.history.AddProcessingTime(st.Name, st.Items, st.Duration)
	}
	if a.metrics != nil {
		a.metrics.RunsTotal.Inc()
	}
	logger.Info("[Analysis] Run finished", "run", runID, "failed", len(report.Errors))
	return report, nil
}

// runDetector times fn and converts a panic into an error.
func (a *Analyzer) runDetector(rec *timing.Recorder, name string, fn func() int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", name, r)
			logger.Error("[Analysis] Detector failed", "detector", name, "err", err, "stack", string(debug.Stack()))
			a.metrics.IncFailure(name)
		}
	}()

	defer rec.Track(name, 1)()
	if a.hook != nil {
		a.hook(name)
	}
	n := fn()
	a.metrics.SetResults(name, n)
	logger.Debug("[Analysis] Detector finished", "detector", name, "results", n)
	return nil
}
