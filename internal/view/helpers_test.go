package view

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/funnyzak/reqwatch/internal/logger"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})          {}
func (noopLogger) Info(string, ...interface{})           {}
func (noopLogger) Warn(string, ...interface{})           {}
func (noopLogger) Error(string, ...interface{})          {}
func (noopLogger) Fatal(string, ...interface{})          {}
func (l noopLogger) With(...interface{}) logger.Logger { return l }

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{}
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg})
}

func (r *recordingLogger) Debug(msg string, _ ...interface{}) { r.add("debug", msg) }
func (r *recordingLogger) Info(msg string, _ ...interface{})  { r.add("info", msg) }
func (r *recordingLogger) Warn(msg string, _ ...interface{})  { r.add("warn", msg) }
func (r *recordingLogger) Error(msg string, _ ...interface{}) { r.add("error", msg) }
func (r *recordingLogger) Fatal(msg string, _ ...interface{}) { r.add("fatal", msg) }
func (r *recordingLogger) With(...interface{}) logger.Logger  { return r }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func req(id, url string) capture.Request {
	return capture.Request{
		ID:        capture.ID(id),
		Timestamp: fmt.Sprintf("2024-05-01T10:00:0%sZ", id),
		Method:    "POST",
		URL:       url,
		Body:      "body-" + id,
	}
}

func listEvent(t *testing.T, name capture.EventName, requests ...capture.Request) capture.Event {
	t.Helper()
	ev, err := capture.NewListEvent(name, requests)
	if err != nil {
		t.Fatalf("build %s event: %v", name, err)
	}
	return ev
}

func newEvent(t *testing.T, r capture.Request) capture.Event {
	t.Helper()
	ev, err := capture.NewRequestEvent(r)
	if err != nil {
		t.Fatalf("build new event: %v", err)
	}
	return ev
}

func rawEvent(name capture.EventName, data string) capture.Event {
	return capture.Event{Name: name, Data: json.RawMessage(data)}
}

func ids(requests []capture.Request) []capture.ID {
	out := make([]capture.ID, len(requests))
	for i, r := range requests {
		out[i] = r.ID
	}
	return out
}

func rowIDs(table Table) []capture.ID {
	var out []capture.ID
	for _, row := range table.Rows {
		if row.Placeholder {
			continue
		}
		out = append(out, row.Request.ID)
	}
	return out
}

func equalIDs(a, b []capture.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
