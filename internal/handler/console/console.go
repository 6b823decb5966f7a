package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"CandleCast/internal/usecase"
	"CandleCast/pkg/logger"
)

// Collector is the part of the collector usecase the console drives.
type Collector interface {
	Collect(ctx context.Context, limit int) (usecase.DeliveryResult, error)
}

// Console is the collector's interactive command loop.
type Console struct {
	in        io.Reader
	out       io.Writer
	collector Collector
	symbol    string
	log       *logger.Logger
}

func New(in io.Reader, out io.Writer, collector Collector, symbol string, log *logger.Logger) *Console {
	return &Console{in: in, out: out, collector: collector, symbol: symbol, log: log}
}

// Run prints the banner and serves commands until "2", end of input or ctx
// cancellation.
func (c *Console) Run(ctx context.Context) error {
	c.banner()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		c.printf("\nEnter a command (1 — collect, 2 — exit):\n> ")
		select {
		case <-ctx.Done():
			c.printf("\nStopped.\n")
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read command: %w", err)
			}
			return nil
		case line := <-lines:
			switch strings.TrimSpace(line) {
			case "1":
				c.collect(ctx)
			case "2":
				c.printf("Exiting. See you next time!\n")
				return nil
			default:
				c.printf("Please enter 1 or 2.\n")
			}
		}
	}
}

func (c *Console) collect(ctx context.Context) {
	res, err := c.collector.Collect(ctx, 0)
	switch {
	case errors.Is(err, usecase.ErrStageBusy):
		c.printf("A collection is already running.\n")
		return
	case err != nil:
		c.printf("Collection failed: %v\n", err)
		return
	case !res.Delivered():
		c.printf("Candles saved to %s but not delivered to %s: %v\n", res.SnapshotPath, res.Address, res.Err)
		return
	}
	c.printf("Candles saved to %s and sent to %s (run %s).\n", res.SnapshotPath, res.Address, res.RunID)
	c.printf("Done. You can run command 1 again or 2 to exit.\n")
}

func (c *Console) banner() {
	c.printf("\nWelcome to the Collector stage\n")
	c.printf("This stage collects 4-hour %s candles from the exchange and sends them to the analyst.\n", c.symbol)
	c.printf("\nAvailable commands:\n")
	c.printf("  1 — collect and send data\n")
	c.printf("  2 — exit\n")
}

func (c *Console) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.log.Debug("console write failed", logger.Error(err))
	}
}
