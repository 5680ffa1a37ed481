package csv

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/OFFIS-RIT/pulse/pkg/loader"
	"github.com/OFFIS-RIT/pulse/pkg/loader/records"
)

type staticLoader struct {
	data  map[string][]byte
	calls int
}

func (s *staticLoader) GetFileBytes(_ context.Context, file loader.SourceFile) ([]byte, error) {
	s.calls++
	data, ok := s.data[file.Path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestParseCSV(t *testing.T) {
	content := "\ufeffSubject,first_date,last_date,participants,email_count\n" +
		"Design draft,2024-03-04 10:00,2024-03-05 09:00,ann@acme.com; bob@acme.com,4\n" +
		",,,,\n" +
		"\"Budget, Q2\",2024-03-06,2024-03-06,cid@globex.io,\n" +
		"Broken,2024-03-07,2024-03-07,ann@acme.com,many\n"

	got, err := ParseCSV([]byte(content))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	want := []records.EmailRecord{
		{Subject: "Design draft", Participants: []string{"ann@acme.com", "bob@acme.com"}, FirstDate: "2024-03-04 10:00", LastDate: "2024-03-05 09:00", EmailCount: 4},
		{Subject: "Budget, Q2", Participants: []string{"cid@globex.io"}, FirstDate: "2024-03-06", LastDate: "2024-03-06"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"missing column", "subject,first_date,last_date\nA,2024-01-01,2024-01-02\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCSV([]byte(tt.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoaderFeedsRecordParser(t *testing.T) {
	base := &staticLoader{data: map[string][]byte{
		"emails.csv":    []byte("subject,participants,first_date,last_date,email_count\nKickoff,ann@acme.com;bob@acme.com,2024-03-04 10:00:00,2024-03-04 12:00:00,2\n"),
		"calendar.json": []byte(`{"events": []}`),
	}}
	l := NewCSVFileLoader(base)
	ctx := context.Background()

	emails := loader.NewEmailSource(loader.NewSourceFileParams{ID: "e", Path: "emails.csv", Loader: l})
	data, err := emails.GetBytes(ctx)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	threads, err := records.ParseEmails(data)
	if err != nil {
		t.Fatalf("ParseEmails: %v", err)
	}
	if len(threads) != 1 || threads[0].Subject != "Kickoff" || threads[0].EmailCount != 2 {
		t.Fatalf("threads = %+v", threads)
	}
	if !threads[0].FirstDate.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("first date = %v", threads[0].FirstDate)
	}

	if _, err := emails.GetBytes(ctx); err != nil {
		t.Fatalf("second GetBytes: %v", err)
	}
	if base.calls != 1 {
		t.Errorf("base calls = %d, want 1", base.calls)
	}

	calendar := loader.NewCalendarSource(loader.NewSourceFileParams{ID: "c", Path: "calendar.json", Loader: l})
	raw, err := calendar.GetBytes(ctx)
	if err != nil || string(raw) != `{"events": []}` {
		t.Errorf("calendar should pass through: %q, %v", raw, err)
	}
}

func TestIsCSV(t *testing.T) {
	tests := map[string]bool{"a.csv": true, "A.CSV": true, "a.json": false, "csv": false}
	for path, want := range tests {
		if got := IsCSV(path); got != want {
			t.Errorf("IsCSV(%q) = %v, want %v", path, got, want)
		}
	}
}
