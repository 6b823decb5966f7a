package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	"CandleCast/internal/domain/service"
	"CandleCast/internal/service/narrative"
	pkgkafka "CandleCast/pkg/kafka"
	"CandleCast/pkg/logger"
)

const DefaultSystemPrompt = "You are a professional crypto trader."

// Advisor turns a summary into a narrative forecast. It is the last stage;
// its publisher writes to the console.
type Advisor struct {
	topic         string
	stage         *Stage
	narrator      service.NarrativeService
	metrics       repository.Metrics
	systemPrompt  string
	recentCandles int
	timeout       time.Duration
	log           *logger.Logger
}

func NewAdvisor(topic string, stage *Stage, narrator service.NarrativeService, metrics repository.Metrics, systemPrompt string, recentCandles int, timeout time.Duration, log *logger.Logger) *Advisor {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Advisor{
		topic:         topic,
		stage:         stage,
		narrator:      narrator,
		metrics:       metrics,
		systemPrompt:  systemPrompt,
		recentCandles: recentCandles,
		timeout:       timeout,
		log:           log,
	}
}

func (a *Advisor) Topic() string { return a.topic }

func (a *Advisor) Stage() *Stage { return a.stage }

func (a *Advisor) Handle(ctx context.Context, b []byte) error {
	var r models.AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("decode")
		}
		return pkgkafka.Permanent(fmt.Errorf("decode analysis result: %w", err))
	}

	run, err := a.stage.Begin(ctx)
	if err != nil {
		return err
	}
	run.Logger().Info("summary received", logger.String("latest_time", r.Summary.LatestTime))

	text, err := a.forecast(run.Context(), r.Summary)
	if err != nil {
		run.Abandon(err)
		return nil
	}
	run.Forward(models.Forecast{LatestTime: r.Summary.LatestTime, Text: text})
	return nil
}

func (a *Advisor) forecast(ctx context.Context, s models.Summary) (string, error) {
	prompt := narrative.BuildPrompt(s, a.recentCandles)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := a.narrator.Complete(ctx, a.systemPrompt, prompt)
	if a.metrics != nil {
		a.metrics.RecordLatency("narrative", time.Since(start).Seconds())
	}
	if err != nil {
		return "", fmt.Errorf("narrative: %w", err)
	}
	return text, nil
}

// ReplayForecast rebuilds a forecast from the advisor's text snapshot.
func ReplayForecast(b []byte) models.Message {
	return models.Forecast{Text: string(b)}
}

var _ pkgkafka.MessageHandler = (*Advisor)(nil)
