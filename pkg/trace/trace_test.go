package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEventMarshalFlattens(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Stage:     "route",
		RequestID: "req-1",
		Fields:    Fields{"decision": "docs", "requires_sql": false},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if flat["stage"] != "route" {
		t.Fatalf("expected stage route, got %v", flat["stage"])
	}
	if flat["request_id"] != "req-1" {
		t.Fatalf("expected request id, got %v", flat["request_id"])
	}
	if flat["decision"] != "docs" {
		t.Fatalf("expected flattened field, got %v", flat["decision"])
	}
}

func TestJSONLWriterAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trace.jsonl")
	writer, err := NewJSONLWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	logger := NewLogger(writer, "req-2")
	logger.Log("pii_precheck", Fields{"blocked": true})
	logger.Log("final_answer", nil)
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer file.Close()

	var stages []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var flat map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &flat); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		stages = append(stages, flat["stage"].(string))
	}
	if len(stages) != 2 || stages[0] != "pii_precheck" || stages[1] != "final_answer" {
		t.Fatalf("unexpected stages: %v", stages)
	}
}

func TestRecorderOrder(t *testing.T) {
	recorder := NewRecorder()
	logger := NewLogger(recorder, "")
	logger.Log("a", nil)
	logger.Log("b", Fields{"n": 1})

	stages := recorder.Stages()
	if len(stages) != 2 || stages[0] != "a" || stages[1] != "b" {
		t.Fatalf("unexpected stages: %v", stages)
	}
}

func TestMultiFansOut(t *testing.T) {
	first := NewRecorder()
	second := NewRecorder()
	logger := NewLogger(Multi{first, nil, second}, "")
	logger.Log("stage", nil)

	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}
