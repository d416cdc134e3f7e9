// Package trace provides the structured event sink every pipeline stage
// writes to. Events are flat JSON objects, one per stage transition, so a
// run can be replayed or audited from its trace alone.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fields carries stage-specific payload keys.
type Fields map[string]any

// Event is a single pipeline stage record.
type Event struct {
	Timestamp time.Time
	Stage     string
	RequestID string
	Fields    Fields
}

// MarshalJSON flattens Fields into the top-level object alongside the
// fixed keys, matching the one-line-per-stage trace format.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		flat[k] = v
	}
	flat["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	flat["stage"] = e.Stage
	if e.RequestID != "" {
		flat["request_id"] = e.RequestID
	}
	return json.Marshal(flat)
}

// Sink receives pipeline stage events. Implementations must be safe for
// concurrent use; independent pipelines share one sink.
type Sink interface {
	Log(event Event)
}

// Logger binds a sink to one request so stages only name themselves.
type Logger struct {
	sink      Sink
	requestID string
}

// NewLogger creates a request-scoped logger over sink. A nil sink yields
// a logger that discards events.
func NewLogger(sink Sink, requestID string) *Logger {
	if sink == nil {
		sink = Nop{}
	}
	return &Logger{sink: sink, requestID: requestID}
}

// RequestID returns the bound request identifier.
func (l *Logger) RequestID() string {
	return l.requestID
}

// Log emits one stage event with the current timestamp.
func (l *Logger) Log(stage string, fields Fields) {
	l.sink.Log(Event{
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		RequestID: l.requestID,
		Fields:    fields,
	})
}

// Nop discards all events.
type Nop struct{}

// Log implements Sink.
func (Nop) Log(Event) {}

// JSONLWriter appends events to a JSON-lines file.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLWriter opens (creating directories as needed) an append-only
// trace file.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("trace path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &JSONLWriter{file: file}, nil
}

// Log implements Sink. Marshal failures drop the event rather than
// corrupting the file.
func (w *JSONLWriter) Log(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.file.Write(append(data, '\n'))
}

// Close closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ZapSink mirrors events to a zap logger for console output.
type ZapSink struct {
	logger *zap.SugaredLogger
}

// NewZapSink wraps an existing zap logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Sugar()}
}

// Log implements Sink.
func (s *ZapSink) Log(event Event) {
	kv := make([]any, 0, 2*len(event.Fields)+2)
	if event.RequestID != "" {
		kv = append(kv, "request_id", event.RequestID)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}
	s.logger.Infow(event.Stage, kv...)
}

// Recorder keeps events in memory for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log implements Sink.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stages returns the recorded stage names in order.
func (r *Recorder) Stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Stage
	}
	return out
}

// Multi fans events out to several sinks.
type Multi []Sink

// Log implements Sink.
func (m Multi) Log(event Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Log(event)
		}
	}
}
