package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/analysis"
	"github.com/OFFIS-RIT/pulse/pkg/common"
)

type memSink struct {
	files map[string][]byte
	fail  string
}

func (m *memSink) Write(_ context.Context, name string, data []byte) error {
	if name == m.fail {
		return errors.New("disk full")
	}
	m.files[name] = data
	return nil
}

func report(t *testing.T) *analysis.Report {
	t.Helper()
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	emails := []common.EmailThread{
		{ID: "email_thread_0", Subject: "Design draft", Participants: []string{"ann@acme.com", "bob@acme.com"}, FirstDate: base, LastDate: base.Add(26 * time.Hour), EmailCount: 3},
		{ID: "email_thread_1", Subject: "Design feedback", Participants: []string{"ann@acme.com", "cid@globex.io"}, FirstDate: base.Add(3 * time.Hour), LastDate: base.Add(4 * time.Hour), EmailCount: 2},
	}
	meetings := []common.Meeting{
		{UID: "m-1", Summary: "Kickoff", Start: base.Add(5 * time.Hour), End: base.Add(6 * time.Hour), Organizer: "ann@acme.com", Attendees: []string{"ann@acme.com", "bob@acme.com", "cid@globex.io"}, Location: "Room 1"},
	}
	r, err := analysis.NewAnalyzer(analysis.NewAnalyzerParams{Parallelism: 2}).Run(context.Background(), emails, meetings)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return r
}

func TestWriteAllFiles(t *testing.T) {
	sink := &memSink{files: map[string][]byte{}}
	names, err := Write(context.Background(), sink, report(t))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []string{
		FileTimeline, FileParticipantStats, FileParticipation, FileGraphStats, FileGraph,
		FileBursts, FileMilestones, FilePhases, FileInfluence, FileHandoffs,
		FileRoleTransitions, FileReport, FileSummary,
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for _, name := range want {
		if len(sink.files[name]) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestTimelineCSV(t *testing.T) {
	sink := &memSink{files: map[string][]byte{}}
	if _, err := Write(context.Background(), sink, report(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(sink.files[FileTimeline])).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(records))
	}
	if records[0][0] != "date" || records[0][4] != "participants" {
		t.Errorf("unexpected header %v", records[0])
	}
	first := records[1]
	if first[0] != "2024-03-04 10:00:00" {
		t.Errorf("date = %q", first[0])
	}
	if first[4] != "ann@acme.com;bob@acme.com" {
		t.Errorf("participants = %q", first[4])
	}
	if first[7] != "1" {
		t.Errorf("duration_days = %q, want 1", first[7])
	}
	meeting := records[3]
	if meeting[1] != "meeting" || meeting[10] != "Room 1" {
		t.Errorf("meeting row = %v", meeting)
	}
}

func TestJSONExports(t *testing.T) {
	r := report(t)
	sink := &memSink{files: map[string][]byte{}}
	if _, err := Write(context.Background(), sink, r); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(sink.files[FileReport], &decoded); err != nil {
		t.Fatalf("report.json: %v", err)
	}
	if decoded["run_id"] != r.RunID {
		t.Errorf("run_id = %v, want %s", decoded["run_id"], r.RunID)
	}
	if _, ok := decoded["emails"]; ok {
		t.Errorf("report.json should not embed the raw emails")
	}
	stats, ok := decoded["timeline"].(map[string]any)
	if !ok || stats["events"] != float64(3) {
		t.Errorf("timeline stats = %v", decoded["timeline"])
	}

	var graph map[string]any
	if err := json.Unmarshal(sink.files[FileGraph], &graph); err != nil {
		t.Fatalf("graph json: %v", err)
	}
	if _, ok := graph["nodes"]; !ok {
		t.Errorf("graph json has no nodes: %v", graph)
	}
}

func TestWriteStopsOnSinkError(t *testing.T) {
	sink := &memSink{files: map[string][]byte{}, fail: FileGraphStats}
	names, err := Write(context.Background(), sink, report(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), FileGraphStats) {
		t.Errorf("error should name the file: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("written = %v, want the three files before the failure", names)
	}
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewDirSink(dir)
	if err := sink.Write(context.Background(), FileGraph, []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "graphs", "project_graph.json"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("content = %q", data)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Write(ctx, "x.csv", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
