package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/pulse/internal/config"
	"github.com/OFFIS-RIT/pulse/pkg/export"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"analyze": false, "serve": false, "schema": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
			if cmd.Short == "" || cmd.Long == "" {
				t.Errorf("%s should have a description", cmd.Name())
			}
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestSchema(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"emails", `"first_date"`},
		{"calendar", `"attendees"`},
		{"graph", `"nodes"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "schema", tt.name)
			if err != nil {
				t.Fatalf("schema %s: %v", tt.name, err)
			}
			var doc map[string]any
			if err := json.Unmarshal([]byte(out), &doc); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("schema should mention %s", tt.want)
			}
		})
	}

	if _, err := execute(t, "schema", "sentiment"); err == nil {
		t.Error("expected error for unknown schema")
	}
}

const emailsJSON = `[
  {"subject": "Design draft", "participants": ["Ann <ann@acme.com>", "bob@acme.com"], "first_date": "2024-03-04 10:00:00", "last_date": "2024-03-05 09:00:00", "email_count": 4},
  {"subject": "Design feedback", "participants": ["ann@acme.com", "cid@globex.io"], "first_date": "2024-03-06 11:00:00", "last_date": "2024-03-06 15:00:00", "email_count": 2}
]`

const calendarJSON = `{"events": [
  {"uid": "m-1", "summary": "Kickoff", "start": "2024-03-04 14:00:00", "end": "2024-03-04 15:00:00", "organizer": "mailto:ann@acme.com", "attendees": ["mailto:ann@acme.com", "mailto:bob@acme.com", "mailto:cid@globex.io"]}
]}`

func TestAnalyze(t *testing.T) {
	for _, key := range []string{config.FileEnv, "PULSE_OUTPUT_DIR", "PULSE_PARALLELISM"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Cleanup(func() { logger.Close() })

	dir := t.TempDir()
	emails := filepath.Join(dir, "emails.json")
	calendar := filepath.Join(dir, "calendar.json")
	out := filepath.Join(dir, "out")
	if err := os.WriteFile(emails, []byte(emailsJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(calendar, []byte(calendarJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t, "analyze", "--emails", emails, "--calendar", calendar, "--out", out, "--parallelism", "2")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(stdout, "Total Events: 3") {
		t.Errorf("summary missing from output:\n%s", stdout)
	}

	for _, name := range []string{export.FileTimeline, export.FileGraph, export.FileReport, export.FileSummary, logFileName} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestAnalyzeCSVEmails(t *testing.T) {
	for _, key := range []string{config.FileEnv, "PULSE_OUTPUT_DIR", "PULSE_PARALLELISM"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Cleanup(func() { logger.Close() })

	dir := t.TempDir()
	emails := filepath.Join(dir, "emails.csv")
	calendar := filepath.Join(dir, "calendar.json")
	csvContent := "subject,participants,first_date,last_date,email_count\n" +
		"Design draft,ann@acme.com;bob@acme.com,2024-03-04 10:00:00,2024-03-05 09:00:00,4\n"
	if err := os.WriteFile(emails, []byte(csvContent), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(calendar, []byte(calendarJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t, "analyze", "--emails", emails, "--calendar", calendar, "--out", filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(stdout, "Email Threads: 1") {
		t.Errorf("csv threads not loaded:\n%s", stdout)
	}
}

func TestAnalyzeMissingInput(t *testing.T) {
	t.Cleanup(func() { logger.Close() })
	dir := t.TempDir()
	_, err := execute(t, "analyze", "--emails", filepath.Join(dir, "none.json"), "--calendar", filepath.Join(dir, "none.json"), "--out", dir, "-q")
	if err == nil {
		t.Fatal("expected error for missing input files")
	}
}

func TestDebugFromEnvFile(t *testing.T) {
	t.Setenv("DEBUG", "")
	os.Unsetenv("DEBUG")
	t.Cleanup(func() { debug = false })

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DEBUG=true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	debug = false
	if _, err := execute(t, "schema", "graph"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !debug {
		t.Fatal("DEBUG=true in .env should enable debug logging")
	}

	if _, err := execute(t, "--debug=false", "schema", "graph"); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if debug {
		t.Fatal("--debug=false should win over .env")
	}
}
