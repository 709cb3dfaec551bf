package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// NopLogger returns a logger that discards all output.
// Use this in tests to avoid log noise.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// LogRecorder is a slog.Handler that keeps every record for assertions
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewLogRecorder returns a recorder and a logger writing to it
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	r := &LogRecorder{}
	return r, slog.New(r)
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec.Clone())
	return nil
}

// Attributes added through With are not kept
func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }

func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Messages returns the messages logged at level or above
func (r *LogRecorder) Messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		if rec.Level >= level {
			out = append(out, rec.Message)
		}
	}
	return out
}
