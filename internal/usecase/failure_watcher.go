package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	pkgkafka "CandleCast/pkg/kafka"
	"CandleCast/pkg/logger"
)

// pipeline lists the stages in delivery order.
var pipeline = []string{"collector", "analyst", "advisor"}

func stageIndex(name string) int {
	for i, s := range pipeline {
		if s == name {
			return i
		}
	}
	return -1
}

// FailureWatcher logs runs that an upstream stage abandoned, so a missing
// message is visible downstream instead of a silent wait. Failures of the
// watcher's own stage or of stages after it are ignored.
type FailureWatcher struct {
	topic   string
	self    string
	metrics repository.Metrics
	log     *logger.Logger
}

func NewFailureWatcher(topic, self string, metrics repository.Metrics, log *logger.Logger) *FailureWatcher {
	return &FailureWatcher{topic: topic, self: self, metrics: metrics, log: log}
}

func (w *FailureWatcher) Topic() string { return w.topic }

func (w *FailureWatcher) Handle(_ context.Context, b []byte) error {
	var f models.StageFailure
	if err := json.Unmarshal(b, &f); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode stage failure: %w", err))
	}
	if !w.upstream(f.Stage) {
		return nil
	}
	if w.metrics != nil {
		w.metrics.RecordError("upstream_" + f.Stage)
	}
	w.log.Warn("upstream stage abandoned a run",
		logger.String("upstream", f.Stage),
		logger.RunID(f.RunID),
		logger.String("reason", f.Reason),
		logger.String("at", f.At.Format("2006-01-02T15:04:05Z07:00")),
	)
	return nil
}

func (w *FailureWatcher) upstream(stage string) bool {
	i, self := stageIndex(stage), stageIndex(w.self)
	if i < 0 {
		return false
	}
	return self < 0 || i < self
}

var _ pkgkafka.MessageHandler = (*FailureWatcher)(nil)
