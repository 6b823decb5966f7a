package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf).With(Stage("analyst"))

	log.Info("run delivered", RunID("r-1"), Int("candles", 100), Error(errors.New("boom")))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["stage"] != "analyst" {
		t.Fatalf("stage = %v", line["stage"])
	}
	if line["run_id"] != "r-1" {
		t.Fatalf("run_id = %v", line["run_id"])
	}
	if line["candles"] != float64(100) {
		t.Fatalf("candles = %v", line["candles"])
	}
	if line["error"] != "boom" {
		t.Fatalf("error = %v", line["error"])
	}
	if line["message"] != "run delivered" {
		t.Fatalf("message = %v", line["message"])
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud", Output: "stdout"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
