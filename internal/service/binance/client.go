package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/service"
	xhttp "CandleCast/pkg/http"
	"CandleCast/pkg/logger"
	"CandleCast/pkg/util"
)

// DefaultURL is the public spot klines endpoint.
const DefaultURL = "https://api.binance.com/api/v3/klines"

// Client reads klines over REST.
type Client struct {
	url    string
	client *xhttp.Client
	log    *logger.Logger
}

var _ service.KlineSource = (*Client)(nil)

func New(url string, timeout time.Duration, log *logger.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:    url,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:    log,
	}
}

// FetchCandles returns the requested candles oldest first. Each kline row is
// [openTime, open, high, low, close, volume, ...]; fields past volume are
// ignored.
func (c *Client) FetchCandles(ctx context.Context, q models.KlineQuery) (models.CandleSequence, error) {
	start := time.Now()

	var rows [][]json.RawMessage
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.url,
		QueryParams: map[string][]string{
			"symbol":   {q.Symbol},
			"interval": {q.Interval},
			"limit":    {strconv.Itoa(q.Limit)},
		},
	}, &rows)
	if err != nil {
		if errors.Is(err, xhttp.ErrTimeout) {
			return nil, fmt.Errorf("fetch klines: %w: %w", models.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	seq := make(models.CandleSequence, 0, len(rows))
	for i, row := range rows {
		candle, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		seq = append(seq, candle)
	}

	c.log.Info("klines fetched",
		logger.String("symbol", q.Symbol),
		logger.String("interval", q.Interval),
		logger.Int("count", len(seq)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return seq, nil
}

func parseRow(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}

	var fields [5]decimal.Decimal
	for i := range fields {
		if err := fields[i].UnmarshalJSON(row[i+1]); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}

	return models.Candle{
		Time:   util.FormatCandleTime(openMs),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}
