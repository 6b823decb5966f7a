package models

import "errors"

var (
	ErrInsufficientData = errors.New("insufficient candle data")
	ErrCandleOrder      = errors.New("candles out of order")
	ErrUnknownInterval  = errors.New("unsupported candle interval")
	// ErrUpstreamTimeout wraps any external call that ran past its deadline.
	ErrUpstreamTimeout = errors.New("upstream timed out")
	ErrEmptyNarrative  = errors.New("narrative service returned no text")
	ErrNoSnapshot      = errors.New("no snapshot persisted yet")
)
