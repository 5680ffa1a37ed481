package timing

import (
	"sync"
	"time"
)

// Stage is the measured duration of one processing step.
type Stage struct {
	Name     string        `json:"name"`
	Items    int64         `json:"items"`
	Duration time.Duration `json:"duration_ns"`
}

// Observer receives every recorded stage, e.g. to feed a histogram.
type Observer func(stage string, d time.Duration)

// Recorder collects stage durations. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	stages   []Stage
	observer Observer
}

// NewRecorder creates a recorder. observer may be nil.
func NewRecorder(observer Observer) *Recorder {
	return &Recorder{observer: observer}
}

// Track starts measuring a stage and returns the function that stops it.
//
//	defer rec.Track("graph", int64(n))()
func (r *Recorder) Track(name string, items int64) func() {
	start := time.Now()
	return func() {
		r.AddProcessingTime(name, items, time.Since(start))
	}
}

// AddProcessingTime records a finished stage.
func (r *Recorder) AddProcessingTime(name string, items int64, d time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.stages = append(r.stages, Stage{Name: name, Items: items, Duration: d})
	r.mu.Unlock()
	if r.observer != nil {
		r.observer(name, d)
	}
}

// Stages returns a copy of the recorded stages in recording order.
func (r *Recorder) Stages() []Stage {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// PredictProcessingTime estimates how long a stage takes for amount items
// from the average per-item duration recorded so far. Returns 0 without
// history.
func (r *Recorder) PredictProcessingTime(name string, amount int64) time.Duration {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var items int64
	var total time.Duration
	for _, s := range r.stages {
		if s.Name != name {
			continue
		}
		items += s.Items
		total += s.Duration
	}
	if items == 0 {
		return 0
	}
	return time.Duration(float64(total) / float64(items) * float64(amount))
}
