package models

import (
	"context"
	"encoding/json"
	"time"
)

// Message types carried in the "type" header.
const (
	TypeCandles  = "candles"
	TypeAnalysis = "analysis"
	TypeForecast = "forecast"
	TypeFailure  = "stage_failure"
)

// Message is anything a stage sends to the next one.
type Message interface {
	MessageType() string
}

// CandlesPayload is sent from the collector to the analyst.
type CandlesPayload struct {
	Symbol   string         `json:"symbol,omitempty"`
	Interval string         `json:"interval,omitempty"`
	Data     CandleSequence `json:"data"`
}

func (CandlesPayload) MessageType() string { return TypeCandles }

// AnalysisResult is sent from the analyst to the advisor.
type AnalysisResult struct {
	Summary Summary `json:"summary"`
}

func (AnalysisResult) MessageType() string { return TypeAnalysis }

// Forecast is the advisor's narrative. It is written as plain text.
type Forecast struct {
	LatestTime string
	Text       string
}

func (Forecast) MessageType() string { return TypeForecast }

func (f Forecast) MarshalText() ([]byte, error) {
	return []byte(f.Text), nil
}

// StageFailure tells downstream stages that a run was abandoned.
type StageFailure struct {
	Stage  string    `json:"stage"`
	RunID  string    `json:"run_id"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func (StageFailure) MessageType() string { return TypeFailure }

// RawMessage re-sends a persisted payload as is.
type RawMessage struct {
	Type string
	Body json.RawMessage
}

func (m RawMessage) MessageType() string { return m.Type }

func (m RawMessage) MarshalJSON() ([]byte, error) {
	if len(m.Body) == 0 {
		return []byte("null"), nil
	}
	return m.Body, nil
}

type runIDKey struct{}

// WithRunID stores the run correlation id in ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, id)
}

func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
