package util

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadEnv(t *testing.T) {
	unsetEnv(t, "PULSE_ENV_FROM_FILE", "PULSE_ENV_PRESET")
	t.Setenv("PULSE_ENV_PRESET", "process")

	file := filepath.Join(t.TempDir(), "test.env")
	content := "PULSE_ENV_FROM_FILE=file\nPULSE_ENV_PRESET=file\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	LoadEnv(file, filepath.Join(t.TempDir(), "missing.env"))

	if got := GetEnv("PULSE_ENV_FROM_FILE"); got != "file" {
		t.Errorf("PULSE_ENV_FROM_FILE = %q, want file", got)
	}
	if got := GetEnv("PULSE_ENV_PRESET"); got != "process" {
		t.Errorf("existing variable overwritten: %q", got)
	}
}

func TestGetEnvString(t *testing.T) {
	unsetEnv(t, "PULSE_ENV_STRING")
	if got := GetEnvString("PULSE_ENV_STRING", "fallback"); got != "fallback" {
		t.Fatalf("unset = %q", got)
	}
	t.Setenv("PULSE_ENV_STRING", "   ")
	if got := GetEnvString("PULSE_ENV_STRING", "fallback"); got != "fallback" {
		t.Fatalf("blank = %q", got)
	}
	t.Setenv("PULSE_ENV_STRING", " value ")
	if got := GetEnvString("PULSE_ENV_STRING", "fallback"); got != "value" {
		t.Fatalf("set = %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 3},
		{"8", 8},
		{" 12 ", 12},
		{"-1", -1},
		{"2.5", 3},
		{"four", 3},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PULSE_ENV_INT", tt.value)
			if got := GetEnvInt("PULSE_ENV_INT", 3); got != tt.want {
				t.Errorf("GetEnvInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"false", true, false},
		{"0", true, false},
		{"yes", true, true},
		{"yes", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PULSE_ENV_BOOL", tt.value)
			if got := GetEnvBool("PULSE_ENV_BOOL", tt.def); got != tt.want {
				t.Errorf("GetEnvBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
