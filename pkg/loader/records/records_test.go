package records

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/loader"
	fsloader "github.com/OFFIS-RIT/pulse/pkg/loader/io"
)

const emailExport = `[
  {"subject": "Kickoff", "participants": ["Jane <jane@Acme.com>", "mailto:bob@globex.io", "jane@acme.com", "nobody"],
   "first_date": "2024-03-01T10:00:00+02:00", "last_date": "2024-03-03 09:30:00", "email_count": 4},
  {"subject": "", "participants": ["a@acme.com"], "first_date": "2024-03-01", "last_date": "2024-03-01", "email_count": 1},
  null,
  {"subject": "Budget", "participants": ["cid@initech.org"], "first_date": "2024-03-05", "last_date": "2024-03-05", "email_count": 1},
  {"subject": "Broken", "participants": ["cid@initech.org"], "first_date": "soon", "last_date": "2024-03-05", "email_count": 1},
  {"subject": "Nobody", "participants": ["no address"], "first_date": "2024-03-05", "last_date": "2024-03-05", "email_count": 1}
]`

const calendarExport = `{"events": [
  {"uid": "m1", "summary": "  Design review ", "start": "2024-03-02T14:00:00Z", "end": "2024-03-02T15:30:00Z",
   "organizer": "MAILTO:Ann@acme.com", "attendees": ["mailto:Ann@acme.com", "bob@globex.io"], "location": "Room 1"},
  {"uid": "m2", "summary": "", "start": "2024-03-04 09:00", "end": "2024-03-04 10:00", "attendees": ["cid@initech.org"]},
  {"uid": "", "summary": "No uid", "start": "2024-03-04", "end": "2024-03-04", "attendees": ["cid@initech.org"]},
  {"uid": "m4", "summary": "Empty", "start": "2024-03-04", "end": "2024-03-04", "attendees": ["tbd"]}
]}`

func TestParseEmails(t *testing.T) {
	threads, err := ParseEmails([]byte(emailExport))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %+v", threads)
	}

	first := threads[0]
	if first.ID != "email_thread_0" || first.Subject != "Kickoff" || first.EmailCount != 4 {
		t.Errorf("unexpected thread %+v", first)
	}
	if want := []string{"bob@globex.io", "jane@acme.com"}; !reflect.DeepEqual(first.Participants, want) {
		t.Errorf("participants = %v, want %v", first.Participants, want)
	}
	if want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC); !first.FirstDate.Equal(want) || first.FirstDate.Location() != time.UTC {
		t.Errorf("first date = %v, want %v", first.FirstDate, want)
	}
	if want := time.Date(2024, 3, 3, 9, 30, 0, 0, time.UTC); !first.LastDate.Equal(want) {
		t.Errorf("last date = %v, want %v", first.LastDate, want)
	}

	if threads[1].ID != "email_thread_3" {
		t.Errorf("ids must follow export position, got %s", threads[1].ID)
	}
}

func TestParseEmailsRepairsMalformedJSON(t *testing.T) {
	data := `[{"subject": "A", "participants": ["a@acme.com"], "first_date": "2024-01-01", "last_date": "2024-01-02", "email_count": 1},]`
	threads, err := ParseEmails([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(threads) != 1 || threads[0].Subject != "A" {
		t.Fatalf("unexpected threads %+v", threads)
	}
}

func TestParseCalendar(t *testing.T) {
	meetings, err := ParseCalendar([]byte(calendarExport))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %+v", meetings)
	}

	m := meetings[0]
	if m.UID != "m1" || m.Summary != "Design review" || m.Organizer != "ann@acme.com" || m.Location != "Room 1" {
		t.Errorf("unexpected meeting %+v", m)
	}
	if want := []string{"ann@acme.com", "bob@globex.io"}; !reflect.DeepEqual(m.Attendees, want) {
		t.Errorf("attendees = %v, want %v", m.Attendees, want)
	}
	if got := m.End.Sub(m.Start); got != 90*time.Minute {
		t.Errorf("duration = %v", got)
	}

	if meetings[1].Summary != "No Title" || meetings[1].Organizer != "" {
		t.Errorf("unexpected meeting %+v", meetings[1])
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-03-01T10:00:00-05:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTime("not a date"); err == nil {
		t.Error("expected an error for garbage input")
	}
}

func TestCleanIdentities(t *testing.T) {
	got := CleanIdentities([]string{"B@X.com", "mailto:a@x.com", "b@x.com", "", "n/a"})
	if want := []string{"a@x.com", "b@x.com"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("CleanIdentities = %v, want %v", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	emailPath := filepath.Join(dir, "emails.json")
	calendarPath := filepath.Join(dir, "calendar.json")
	if err := os.WriteFile(emailPath, []byte(emailExport), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(calendarPath, []byte(calendarExport), 0o644); err != nil {
		t.Fatal(err)
	}

	l := fsloader.NewIOFileLoader()
	ds, err := Load(context.Background(),
		loader.NewEmailSource(loader.NewSourceFileParams{ID: "emails", Path: emailPath, Loader: l}),
		loader.NewCalendarSource(loader.NewSourceFileParams{ID: "calendar", Path: calendarPath, Loader: l}),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Emails) != 2 || len(ds.Meetings) != 2 {
		t.Fatalf("unexpected dataset: %d emails, %d meetings", len(ds.Emails), len(ds.Meetings))
	}

	_, err = Load(context.Background(),
		loader.NewEmailSource(loader.NewSourceFileParams{ID: "x", Path: filepath.Join(dir, "missing.json"), Loader: l}),
		loader.NewCalendarSource(loader.NewSourceFileParams{ID: "calendar", Path: calendarPath, Loader: l}),
	)
	if err == nil {
		t.Fatal("expected an error for a missing export")
	}
}
