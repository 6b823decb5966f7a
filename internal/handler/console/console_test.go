package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"CandleCast/internal/usecase"
	"CandleCast/pkg/logger"
)

type stubCollector struct {
	calls int
	res   usecase.DeliveryResult
	err   error
}

func (s *stubCollector) Collect(context.Context, int) (usecase.DeliveryResult, error) {
	s.calls++
	return s.res, s.err
}

func run(t *testing.T, input string, col *stubCollector) string {
	t.Helper()
	var out bytes.Buffer
	c := New(strings.NewReader(input), &out, col, "BTCUSDT", logger.Nop())
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestConsoleCommands(t *testing.T) {
	col := &stubCollector{res: usecase.DeliveryResult{Status: usecase.StatusDelivered, SnapshotPath: "sent_to_analyst.json", Address: "analyst.in", RunID: "r1"}}
	out := run(t, "x\n1\n2\n1\n", col)

	if col.calls != 1 {
		t.Fatalf("expected one collection before exit, got %d", col.calls)
	}
	for _, want := range []string{
		"Welcome to the Collector stage",
		"BTCUSDT",
		"Please enter 1 or 2.",
		"sent to analyst.in (run r1)",
		"Done. You can run command 1 again or 2 to exit.",
		"Exiting. See you next time!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleReportsFailures(t *testing.T) {
	col := &stubCollector{err: errors.New("exchange down")}
	out := run(t, "1\n", col)
	if !strings.Contains(out, "Collection failed: exchange down") {
		t.Fatalf("missing failure message:\n%s", out)
	}

	col = &stubCollector{res: usecase.DeliveryResult{Status: usecase.StatusDeliveryFailed, SnapshotPath: "s.json", Address: "analyst.in", Err: errors.New("no broker")}}
	out = run(t, "1\n2\n", col)
	if !strings.Contains(out, "not delivered to analyst.in: no broker") {
		t.Fatalf("missing delivery failure:\n%s", out)
	}

	col = &stubCollector{err: usecase.ErrStageBusy}
	out = run(t, "1\n2\n", col)
	if !strings.Contains(out, "already running") {
		t.Fatalf("missing busy message:\n%s", out)
	}
}

func TestConsoleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := io.Pipe()
	defer w.Close()
	var out bytes.Buffer
	if err := New(r, &out, &stubCollector{}, "BTCUSDT", logger.Nop()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Stopped.") {
		t.Fatalf("output %q", out.String())
	}
}
