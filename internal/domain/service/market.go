package service

import (
	"context"

	"CandleCast/internal/domain/models"
)

// KlineSource fetches candles from an exchange.
type KlineSource interface {
	FetchCandles(ctx context.Context, q models.KlineQuery) (models.CandleSequence, error)
}

// NarrativeService turns a prompt into prose.
type NarrativeService interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
