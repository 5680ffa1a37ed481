package timing

import (
	"sync"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	var observed []string
	rec := NewRecorder(func(stage string, _ time.Duration) {
		observed = append(observed, stage)
	})

	rec.AddProcessingTime("graph", 10, 100*time.Millisecond)
	rec.AddProcessingTime("graph", 30, 300*time.Millisecond)
	rec.AddProcessingTime("burst", 5, time.Second)

	stages := rec.Stages()
	if len(stages) != 3 || stages[2].Name != "burst" {
		t.Fatalf("unexpected stages %+v", stages)
	}
	if len(observed) != 3 {
		t.Errorf("observer called %d times", len(observed))
	}

	if got := rec.PredictProcessingTime("graph", 20); got != 200*time.Millisecond {
		t.Errorf("prediction = %v, want 200ms", got)
	}
	if got := rec.PredictProcessingTime("phase", 20); got != 0 {
		t.Errorf("prediction without history = %v", got)
	}
}

func TestTrackConcurrent(t *testing.T) {
	rec := NewRecorder(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Track("detector", 1)()
		}()
	}
	wg.Wait()
	if got := len(rec.Stages()); got != 8 {
		t.Fatalf("expected 8 stages, got %d", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	rec.AddProcessingTime("x", 1, time.Second)
	if rec.Stages() != nil || rec.PredictProcessingTime("x", 1) != 0 {
		t.Fatal("nil recorder should be a no-op")
	}
}
