package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/pkg/logger"
)

const klines = `[
 [1704067200000,"42283.58","42554.57","42261.02","42475.23","1271.68108",1704081599999,"53957248.0",45000,"600.1","25461748.1","0"],
 [1704081600000,"42475.23","42775.00","42431.65","42613.56","1196.37856",1704095999999,"50876283.1",44000,"590.2","25098431.0","0"]
]`

func TestFetchCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "4h" || q.Get("limit") != "1500" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klines))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, logger.Nop())
	seq, err := c.FetchCandles(context.Background(), models.KlineQuery{Symbol: "BTCUSDT", Interval: "4h", Limit: 1500})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(seq) != 2 {
		t.Fatalf("got %d candles", len(seq))
	}
	first := seq[0]
	if first.Time != "2024-01-01T00:00:00" {
		t.Fatalf("time = %q", first.Time)
	}
	if first.Close.String() != "42475.23" || first.Volume.String() != "1271.68108" {
		t.Fatalf("unexpected values close=%s volume=%s", first.Close, first.Volume)
	}
	if seq[1].Time != "2024-01-01T04:00:00" {
		t.Fatalf("second time = %q", seq[1].Time)
	}
	if err := seq.CheckOrder(); err != nil {
		t.Fatalf("order: %v", err)
	}
}

func TestFetchCandlesMalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1704067200000,"1","2"]]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, logger.Nop()).FetchCandles(context.Background(), models.KlineQuery{Symbol: "BTCUSDT", Interval: "4h", Limit: 1})
	if err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestFetchCandlesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond, logger.Nop()).FetchCandles(context.Background(), models.KlineQuery{Symbol: "BTCUSDT", Interval: "4h", Limit: 1})
	if !errors.Is(err, models.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}
