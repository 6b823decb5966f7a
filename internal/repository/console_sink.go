package repository

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
)

// ConsoleSink is the advisor's last hop: it prints the message to an
// operator console instead of sending it anywhere.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleSink(out io.Writer) repository.Publisher {
	return &ConsoleSink{out: out}
}

func (s *ConsoleSink) Send(_ context.Context, _ string, _ string, msg models.Message) error {
	var body []byte
	var err error
	if tm, ok := msg.(encoding.TextMarshaler); ok {
		body, err = tm.MarshalText()
	} else {
		body, err = json.MarshalIndent(msg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", msg.MessageType(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "\n%s\n", body); err != nil {
		return fmt.Errorf("write console: %w", err)
	}
	return nil
}

func (s *ConsoleSink) Close() error { return nil }
