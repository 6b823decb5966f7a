package repository

import (
	"context"

	"CandleCast/internal/domain/models"
)

// Publisher delivers a message to the stage listening on address.
type Publisher interface {
	Send(ctx context.Context, address, runID string, msg models.Message) error
	Close() error
}

// SnapshotStore keeps the last outbound payload of a stage.
type SnapshotStore interface {
	Save(ctx context.Context, msg models.Message) error
	// Load returns the raw persisted payload.
	Load(ctx context.Context) ([]byte, error)
	Path() string
}

// History archives pipeline data for later inspection. Writes are best
// effort; callers log failures and carry on.
type History interface {
	StoreCandles(ctx context.Context, q models.KlineQuery, seq models.CandleSequence) error
	StoreSummary(ctx context.Context, runID string, s models.Summary) error
	Close() error
}

type Metrics interface {
	RecordRun(stage, outcome string)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordState(stage string, state int)
}
