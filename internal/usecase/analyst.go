package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	"CandleCast/internal/services/features"
	"CandleCast/internal/services/indicators"
	pkgkafka "CandleCast/pkg/kafka"
	"CandleCast/pkg/logger"
)

// Analyst summarises received candles and forwards the result to the
// advisor.
type Analyst struct {
	topic   string
	stage   *Stage
	engine  *indicators.Engine
	history repository.History
	metrics repository.Metrics
	log     *logger.Logger
}

func NewAnalyst(topic string, stage *Stage, engine *indicators.Engine, history repository.History, metrics repository.Metrics, log *logger.Logger) *Analyst {
	if history == nil {
		history = noHistory{}
	}
	return &Analyst{topic: topic, stage: stage, engine: engine, history: history, metrics: metrics, log: log}
}

func (a *Analyst) Topic() string { return a.topic }

func (a *Analyst) Stage() *Stage { return a.stage }

// Handle processes one candles payload. Domain failures abandon the run and
// return nil so the message is committed; only undecodable payloads are
// reported to the consumer.
func (a *Analyst) Handle(ctx context.Context, b []byte) error {
	var p models.CandlesPayload
	if err := json.Unmarshal(b, &p); err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("decode")
		}
		return pkgkafka.Permanent(fmt.Errorf("decode candles payload: %w", err))
	}

	run, err := a.stage.Begin(ctx)
	if err != nil {
		return err
	}
	run.Logger().Info("candles received", logger.Int("count", len(p.Data)))

	if _, err := a.analyze(run, p); err != nil {
		run.Abandon(err)
	}
	return nil
}

func (a *Analyst) analyze(run *Run, p models.CandlesPayload) (DeliveryResult, error) {
	if err := models.ValidateSequence(p.Data); err != nil {
		return DeliveryResult{}, err
	}

	engine, interval, err := a.engineFor(p.Interval)
	if err != nil {
		return DeliveryResult{}, err
	}
	summary := engine.Analyze(p.Data)
	summary.Symbol = p.Symbol
	summary.Interval = p.Interval
	summary.Volatility = features.VolatilityPercent(summary.RecentWindow.Closes(), interval)

	if err := a.history.StoreSummary(run.Context(), run.ID(), summary); err != nil {
		run.Logger().Warn("summary history not stored", logger.Error(err))
	}
	if a.metrics != nil {
		symbol := p.Symbol
		if symbol == "" {
			symbol = "unknown"
		}
		a.metrics.RecordLastClose(symbol, summary.LastClose)
	}
	run.Logger().Info("summary computed",
		logger.String("latest_time", summary.LatestTime),
		logger.Float64("last_close", summary.LastClose),
	)

	return run.Forward(models.AnalysisResult{Summary: summary}), nil
}

// engineFor sizes the windows from the payload's interval. Payloads without
// one use the configured engine, which assumes 4h candles.
func (a *Analyst) engineFor(interval string) (*indicators.Engine, time.Duration, error) {
	if interval == "" {
		return a.engine, 4 * time.Hour, nil
	}
	d, err := indicators.ParseInterval(interval)
	if err != nil {
		return nil, 0, err
	}
	return indicators.NewEngine(indicators.WindowsFor(d)), d, nil
}

var _ pkgkafka.MessageHandler = (*Analyst)(nil)
