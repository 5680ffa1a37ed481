package logger

import (
	"errors"
	"reflect"
	"testing"
)

type recordingInstance struct {
	calls  []string
	args   [][]any
	closed bool
	err    error
}

func (r *recordingInstance) record(level string, keyvals []any) {
	r.calls = append(r.calls, level)
	r.args = append(r.args, keyvals)
}

func (r *recordingInstance) Log(m string, kv ...any)   { r.record("log", kv) }
func (r *recordingInstance) Debug(m string, kv ...any) { r.record("debug", kv) }
func (r *recordingInstance) Info(m string, kv ...any)  { r.record("info", kv) }
func (r *recordingInstance) Warn(m string, kv ...any)  { r.record("warn", kv) }
func (r *recordingInstance) Error(m string, kv ...any) { r.record("error", kv) }
func (r *recordingInstance) Fatal(m string, kv ...any) { r.record("fatal", kv) }

type closingInstance struct {
	recordingInstance
}

func (c *closingInstance) Close() error {
	c.closed = true
	return c.err
}

func TestDispatchesToAllInstances(t *testing.T) {
	a := &recordingInstance{}
	b := &recordingInstance{}
	Init(a, b)
	defer Init()

	Log("plain", "k", 1)
	Debug("d")
	Info("i", "k", "v")
	Warn("w")
	Error("e")

	want := []string{"log", "debug", "info", "warn", "error"}
	for _, inst := range []*recordingInstance{a, b} {
		if !reflect.DeepEqual(inst.calls, want) {
			t.Fatalf("calls = %v, want %v", inst.calls, want)
		}
		if !reflect.DeepEqual(inst.args[0], []any{"k", 1}) {
			t.Fatalf("Log keyvals not forwarded: %v", inst.args[0])
		}
	}
}

func TestCloseOnlyClosers(t *testing.T) {
	plain := &recordingInstance{}
	closer := &closingInstance{}
	closer.err = errors.New("boom")
	Init(plain, closer)
	defer Init()

	if err := Close(); err == nil || err.Error() != "boom" {
		t.Fatalf("expected close error, got %v", err)
	}
	if !closer.closed {
		t.Fatal("closer was not closed")
	}
}

func TestNoopBeforeInit(t *testing.T) {
	singleton = nil
	Info("dropped")
	if err := Close(); err != nil {
		t.Fatalf("Close before Init returned %v", err)
	}
}
