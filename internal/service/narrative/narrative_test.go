package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"CandleCast/internal/domain/models"
	"CandleCast/pkg/logger"
)

func TestCompleteReturnsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "asi1-mini" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Expect a range. "}},{"message":{"content":"ignored"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key-1", "", time.Second, logger.Nop())
	text, err := c.Complete(context.Background(), "You are a professional crypto trader.", "prompt")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "Expect a range." {
		t.Fatalf("text = %q", text)
	}
}

func TestCompleteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k", "", time.Second, logger.Nop()).Complete(context.Background(), "s", "p")
	if !errors.Is(err, models.ErrEmptyNarrative) {
		t.Fatalf("expected ErrEmptyNarrative, got %v", err)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k", "", time.Second, logger.Nop()).Complete(context.Background(), "s", "p")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	sma := func(v float64) *float64 { return &v }
	recent := make(models.CandleSequence, 20)
	for i := range recent {
		recent[i] = models.Candle{
			Time:   "2024-01-0" + string(rune('1'+i/6)) + "T00:00:00",
			Open:   decimal.NewFromInt(int64(100 + i)),
			High:   decimal.NewFromInt(int64(101 + i)),
			Low:    decimal.NewFromInt(int64(99 + i)),
			Close:  decimal.NewFromInt(int64(100 + i)),
			Volume: decimal.RequireFromString("1.5"),
		}
	}
	s := models.Summary{
		Symbol:       "BTCUSDT",
		Interval:     "4h",
		LatestTime:   "2024-01-04T00:00:00",
		LastClose:    119,
		SMA14:        sma(112.5),
		GlobalSMA:    map[int]float64{14: 112.5, 20: 109.5},
		RecentWindow: recent,
		RangeExtrema: models.RangeExtrema{Max: 119, MaxTime: "2024-01-04T00:00:00", Min: 100, MinTime: "2024-01-01T00:00:00"},
		TopVolumes:   []models.VolumePoint{{Volume: 1.5, Time: "2024-01-01T00:00:00"}},
		AvgVolume:    1.5,
		Volatility:   45.5,
	}

	p := BuildPrompt(s, DefaultRecentCandles)
	for _, want := range []string{
		"Analyse BTCUSDT using 4h candles",
		"Last close: 119.00",
		"- SMA-14: 112.50",
		"- SMA-50: n/a",
		"- High: 119.00 at 2024-01-04T00:00:00",
		"14-day average volume: 1.50 BTC",
		"14-day realized volatility (annualized): 45.50%",
		" - 1.50 BTC at 2024-01-01T00:00:00",
		"Last 12 candles:",
		"O: 119 H: 120 L: 118 C: 119 V: 1.5",
		"4. A forecast for the next 3 days.",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "O: 107 ") {
		t.Errorf("prompt quotes more than 12 candles")
	}
}
