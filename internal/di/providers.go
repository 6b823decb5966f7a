package di

import (
	"context"
	"fmt"
	"os"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	"CandleCast/internal/domain/service"
	"CandleCast/internal/handler/api"
	"CandleCast/internal/handler/console"
	internalrepo "CandleCast/internal/repository"
	"CandleCast/internal/service/binance"
	"CandleCast/internal/service/narrative"
	"CandleCast/internal/service/ratelimit"
	"CandleCast/internal/services/indicators"
	"CandleCast/internal/usecase"
	"CandleCast/pkg/cache"
	pkgch "CandleCast/pkg/clickhouse"
	"CandleCast/pkg/config"
	xhttp "CandleCast/pkg/http"
	pkgkafka "CandleCast/pkg/kafka"
	"CandleCast/pkg/logger"
	"CandleCast/pkg/metrics"
	"CandleCast/pkg/server"
)

// ProvideLogger creates the process logger tagged with the stage name.
func ProvideLogger(cfg *config.Config, stage config.Stage) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Stage:  string(stage),
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient connects to ClickHouse and prepares the history
// schema. It returns a nil client when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.HistorySchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideHistory archives to ClickHouse when a client is available.
func ProvideHistory(ch *pkgch.Client, l *logger.Logger) repository.History {
	if ch == nil {
		return internalrepo.NoopHistory{}
	}
	return internalrepo.NewCHHistory(ch, l)
}

// ProvideSnapshotMirror returns Redis when enabled and an in-process cache
// otherwise.
func ProvideSnapshotMirror(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(16), cache.WithMemoryPrefix(cfg.Redis.Prefix)), func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisDialTimeout(cfg.Timeouts.External),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("snapshot mirror: redis", logger.String("addr", cfg.Redis.Addr))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideSnapshotStore persists the stage's outbound payloads to its
// output file.
func ProvideSnapshotStore(cfg *config.Config, stage config.Stage, mirror cache.Service, l *logger.Logger) repository.SnapshotStore {
	return internalrepo.NewFileSnapshotStore(cfg.For(stage).OutputFile, string(stage), mirror, cfg.Redis.TTL, l)
}

// ProvideKafkaProducer creates a Kafka producer identified by the stage seed.
func ProvideKafkaProducer(cfg *config.Config, stage config.Stage) (*pkgkafka.Producer, func(), error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID(cfg.For(stage).Seed),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideStage builds the delivery contract. The advisor delivers to the
// console; the other stages deliver over Kafka. Failure notices always go
// over Kafka.
func ProvideStage(
	cfg *config.Config,
	stage config.Stage,
	producer *pkgkafka.Producer,
	snapshots repository.SnapshotStore,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Stage {
	bus := internalrepo.NewKafkaPublisher(producer, string(stage))
	p := usecase.StageParams{
		Name:         string(stage),
		Peer:         cfg.PeerAddress(stage),
		Publisher:    bus,
		Snapshots:    snapshots,
		Failures:     bus,
		FailureTopic: cfg.Kafka.FailureTopic,
		Metrics:      m,
		Log:          l,
	}
	switch stage {
	case config.StageCollector:
		p.MessageType = models.TypeCandles
	case config.StageAnalyst:
		p.MessageType = models.TypeAnalysis
	case config.StageAdvisor:
		p.MessageType = models.TypeForecast
		p.Publisher = internalrepo.NewConsoleSink(os.Stdout)
		p.Replay = usecase.ReplayForecast
	}
	return usecase.NewStage(p)
}

// ProvideKlineSource creates the exchange client.
func ProvideKlineSource(cfg *config.Config, l *logger.Logger) service.KlineSource {
	return binance.New(cfg.Collector.Exchange.URL, cfg.Timeouts.External, l)
}

// ProvideNarrativeService creates the chat completions client.
func ProvideNarrativeService(cfg *config.Config, l *logger.Logger) service.NarrativeService {
	n := cfg.Advisor.Narrative
	return narrative.New(n.URL, n.APIKey, n.Model, cfg.Timeouts.External, l)
}

// ProvideEngine sizes the indicator windows from the collection interval.
func ProvideEngine(cfg *config.Config) (*indicators.Engine, error) {
	d, err := indicators.ParseInterval(cfg.Collector.Exchange.Interval)
	if err != nil {
		return nil, err
	}
	return indicators.NewEngine(indicators.WindowsFor(d)), nil
}

func ProvideCollector(
	cfg *config.Config,
	stage *usecase.Stage,
	source service.KlineSource,
	history repository.History,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Collector {
	ex := cfg.Collector.Exchange
	q := models.KlineQuery{Symbol: ex.Symbol, Interval: ex.Interval, Limit: ex.Limit}
	return usecase.NewCollector(stage, source, history, m, q, cfg.Timeouts.External, l)
}

func ProvideAnalyst(
	cfg *config.Config,
	stage *usecase.Stage,
	engine *indicators.Engine,
	history repository.History,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Analyst {
	return usecase.NewAnalyst(cfg.Analyst.Address, stage, engine, history, m, l)
}

func ProvideAdvisor(
	cfg *config.Config,
	stage *usecase.Stage,
	narrator service.NarrativeService,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Advisor {
	n := cfg.Advisor.Narrative
	return usecase.NewAdvisor(cfg.Advisor.Address, stage, narrator, m, n.SystemPrompt, n.RecentCandles, cfg.Timeouts.External, l)
}

func ProvideFailureWatcher(cfg *config.Config, stage config.Stage, m repository.Metrics, l *logger.Logger) *usecase.FailureWatcher {
	return usecase.NewFailureWatcher(cfg.Kafka.FailureTopic, string(stage), m, l)
}

// ProvideKafkaConsumer creates a consumer whose group is the stage seed.
// The run id header of each message is placed in the handler context.
func ProvideKafkaConsumer(cfg *config.Config, stage config.Stage, l *logger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.For(stage).Seed),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafkago.Message, data []byte) (context.Context, kafkago.Message, []byte, error) {
			return models.WithRunID(ctx, pkgkafka.HeaderValue(km, pkgkafka.HeaderRunID)), km, data, nil
		},
	})
	return consumer, nil
}

// ProvideHealthChecks lists the dependencies reported by /healthz.
func ProvideHealthChecks(cfg *config.Config, ch *pkgch.Client, mirror cache.Service) map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if cfg.Redis.Enabled {
		checks["redis"] = func(ctx context.Context) error {
			_, err := mirror.Exists(ctx, "health")
			return err
		}
	}
	return checks
}

// ProvideCollectorOps exposes the collector including HTTP triggered
// collection.
func ProvideCollectorOps(cfg *config.Config, l *logger.Logger, collector *usecase.Collector, checks map[string]api.HealthCheck) *api.OpsHandler {
	return api.NewOpsHandler(l, collector.Stage(), collector, ratelimit.PerMinute(cfg.Collector.CollectPerMinute), checks)
}

// ProvideStageOps exposes a consuming stage.
func ProvideStageOps(l *logger.Logger, stage *usecase.Stage, checks map[string]api.HealthCheck) *api.OpsHandler {
	return api.NewOpsHandler(l, stage, nil, nil, checks)
}

func ProvideHTTPServer(cfg *config.Config, stage config.Stage, l *logger.Logger, h *api.OpsHandler) *xhttp.Server {
	return xhttp.NewServer(l, h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.For(stage).Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	)
}

// ProvideCollectorApp runs the console unless the collector is headless.
func ProvideCollectorApp(cfg *config.Config, l *logger.Logger, srv *xhttp.Server, collector *usecase.Collector) *server.App {
	opts := []server.Option{server.WithShutdownTimeout(cfg.Server.ShutdownTimeout)}
	if !cfg.Collector.Headless {
		opts = append(opts, server.WithRunner(console.New(os.Stdin, os.Stdout, collector, cfg.Collector.Exchange.Symbol, l)))
	}
	return server.New(string(config.StageCollector), l, srv, opts...)
}

func ProvideAnalystApp(cfg *config.Config, l *logger.Logger, srv *xhttp.Server, consumer *pkgkafka.Consumer, analyst *usecase.Analyst, watcher *usecase.FailureWatcher) *server.App {
	consumer.RegisterHandler(analyst)
	consumer.RegisterHandler(watcher)
	return server.New(string(config.StageAnalyst), l, srv,
		server.WithConsumer(consumer),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
}

func ProvideAdvisorApp(cfg *config.Config, l *logger.Logger, srv *xhttp.Server, consumer *pkgkafka.Consumer, advisor *usecase.Advisor, watcher *usecase.FailureWatcher) *server.App {
	consumer.RegisterHandler(advisor)
	consumer.RegisterHandler(watcher)
	return server.New(string(config.StageAdvisor), l, srv,
		server.WithConsumer(consumer),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
}
