package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/pulse/internal/metrics"
	mid "github.com/OFFIS-RIT/pulse/internal/server/middleware"
	"github.com/OFFIS-RIT/pulse/pkg/analysis"
	"github.com/OFFIS-RIT/pulse/pkg/common"
)

func testReport(t *testing.T) *analysis.Report {
	t.Helper()
	base := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	people := []string{"ann@acme.com", "bob@acme.com", "cid@globex.io", "dee@globex.io"}

	var emails []common.EmailThread
	for i := 0; i < 12; i++ {
		at := base.Add(time.Duration(i*30) * time.Hour)
		emails = append(emails, common.EmailThread{
			ID:           fmt.Sprintf("email_thread_%d", i),
			Subject:      "Design review notes",
			Participants: []string{people[i%4], people[(i+1)%4]},
			FirstDate:    at,
			LastDate:     at.Add(time.Hour),
			EmailCount:   2,
		})
	}
	meetings := []common.Meeting{
		{UID: "m-1", Summary: "Final demo", Start: base.Add(24 * time.Hour), End: base.Add(25 * time.Hour), Organizer: people[0], Attendees: people},
	}

	report, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{}).Run(context.Background(), emails, meetings)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func do(t *testing.T, app *mid.App, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(app)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, &mid.App{Report: testReport(t)}, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAPIKey(t *testing.T) {
	app := &mid.App{Report: testReport(t), APIKey: "secret"}

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong", header: map[string]string{mid.APIKeyHeader: "nope"}, want: http.StatusUnauthorized},
		{name: "valid", header: map[string]string{mid.APIKeyHeader: "secret"}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, app, "/api/summary", tt.header); rec.Code != tt.want {
				t.Errorf("code = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if rec := do(t, app, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("health should not need a key, got %d", rec.Code)
	}
}

func TestRoutes(t *testing.T) {
	app := &mid.App{Report: testReport(t)}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/summary", http.StatusOK},
		{"/api/timeline", http.StatusOK},
		{"/api/timeline?type=meeting", http.StatusOK},
		{"/api/timeline?type=chat", http.StatusBadRequest},
		{"/api/participation", http.StatusOK},
		{"/api/graph", http.StatusOK},
		{"/api/graph/stats", http.StatusOK},
		{"/api/bursts", http.StatusOK},
		{"/api/influence", http.StatusOK},
		{"/api/influence/connectors?top=2", http.StatusOK},
		{"/api/influence/connectors?top=abc", http.StatusBadRequest},
		{"/api/influence/connectors?top=-1", http.StatusBadRequest},
		{"/api/influence/leaders", http.StatusOK},
		{"/api/milestones", http.StatusOK},
		{"/api/milestones?type=deliverable", http.StatusOK},
		{"/api/milestones?type=party", http.StatusBadRequest},
		{"/api/phases", http.StatusOK},
		{"/api/handoffs?type=departure", http.StatusOK},
		{"/api/handoffs?type=promotion", http.StatusBadRequest},
		{"/api/role-transitions", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, app, tt.target, nil)
			if rec.Code != tt.want {
				t.Errorf("code = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestTimelineFilter(t *testing.T) {
	rec := do(t, &mid.App{Report: testReport(t)}, "/api/timeline?type=meeting", nil)
	var entries []common.TimelineEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].EventID != "m-1" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestConnectorsLimit(t *testing.T) {
	app := &mid.App{Report: testReport(t)}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/influence/connectors?top=2", 2},
		{"/api/influence/connectors", 4},
	}
	for _, tt := range tests {
		rec := do(t, app, tt.target, nil)
		var connectors []string
		if err := json.Unmarshal(rec.Body.Bytes(), &connectors); err != nil {
			t.Fatalf("decode %s: %v", tt.target, err)
		}
		if len(connectors) != tt.want {
			t.Errorf("%s: got %v, want %d entries", tt.target, connectors, tt.want)
		}
	}
}

func TestMilestoneFilter(t *testing.T) {
	rec := do(t, &mid.App{Report: testReport(t)}, "/api/milestones?type=planning_phase", nil)
	if strings.TrimSpace(rec.Body.String()) == "null" {
		t.Fatal("filtered milestones should encode as a list")
	}
	var milestones []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &milestones); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, m := range milestones {
		if m["type"] != "planning_phase" {
			t.Errorf("unexpected milestone %v", m)
		}
	}
}

func TestFailedDetector(t *testing.T) {
	report := testReport(t)
	report.Errors = map[string]string{analysis.DetectorPhases: "panic: boom"}
	app := &mid.App{Report: report}

	rec := do(t, app, "/api/phases", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "panic: boom") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec := do(t, app, "/api/bursts", nil); rec.Code != http.StatusOK {
		t.Errorf("other detectors should still answer, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := &mid.App{Report: testReport(t), Metrics: metrics.NewMetrics()}
	do(t, app, "/api/summary", nil)

	rec := do(t, app, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `pulse_http_requests_total{code="200",route="/api/summary"}`) {
		t.Errorf("request metric missing from /metrics output")
	}
}

func TestStartShutdown(t *testing.T) {
	e := New(&mid.App{Report: testReport(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, e, "0") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
