package usecase

import (
	"context"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	"CandleCast/internal/domain/service"
	"CandleCast/pkg/logger"
)

// Collector fetches klines on command and forwards them to the analyst.
type Collector struct {
	stage   *Stage
	source  service.KlineSource
	history repository.History
	metrics repository.Metrics
	query   models.KlineQuery
	timeout time.Duration
	log     *logger.Logger
}

func NewCollector(stage *Stage, source service.KlineSource, history repository.History, metrics repository.Metrics, query models.KlineQuery, timeout time.Duration, log *logger.Logger) *Collector {
	if history == nil {
		history = noHistory{}
	}
	return &Collector{
		stage:   stage,
		source:  source,
		history: history,
		metrics: metrics,
		query:   query,
		timeout: timeout,
		log:     log,
	}
}

func (c *Collector) Stage() *Stage { return c.stage }

func (c *Collector) Query() models.KlineQuery { return c.query }

// Collect runs one collection. limit overrides the configured limit when
// positive. The error is non-nil only when no delivery was attempted.
func (c *Collector) Collect(ctx context.Context, limit int) (DeliveryResult, error) {
	run, err := c.stage.Begin(ctx)
	if err != nil {
		return DeliveryResult{}, err
	}
	rctx := run.Context()

	q := c.query
	if limit > 0 {
		q.Limit = limit
	}

	fctx := rctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(rctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	seq, err := c.source.FetchCandles(fctx, q)
	if c.metrics != nil {
		c.metrics.RecordLatency("fetch_candles", time.Since(start).Seconds())
	}
	if err != nil {
		run.Abandon(err)
		return DeliveryResult{}, err
	}
	if err := seq.CheckOrder(); err != nil {
		run.Abandon(err)
		return DeliveryResult{}, err
	}
	run.Logger().Info("candles fetched",
		logger.String("symbol", q.Symbol),
		logger.String("interval", q.Interval),
		logger.Int("count", len(seq)),
	)

	if err := c.history.StoreCandles(rctx, q, seq); err != nil {
		run.Logger().Warn("candle history not stored", logger.Error(err))
	}

	res := run.Forward(models.CandlesPayload{Symbol: q.Symbol, Interval: q.Interval, Data: seq})
	return res, nil
}

type noHistory struct{}

func (noHistory) StoreCandles(context.Context, models.KlineQuery, models.CandleSequence) error {
	return nil
}

func (noHistory) StoreSummary(context.Context, string, models.Summary) error { return nil }

func (noHistory) Close() error { return nil }
