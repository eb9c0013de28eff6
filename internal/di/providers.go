package di

import (
	"context"
	"fmt"
	"time"

	"Foresight/internal/domain/repository"
	"Foresight/internal/handler/api"
	"Foresight/internal/pipeline"
	internalrepo "Foresight/internal/repository"
	"Foresight/internal/service/marketdata"
	"Foresight/internal/services/research"
	"Foresight/internal/usecase"
	"Foresight/pkg/cache"
	pkgch "Foresight/pkg/clickhouse"
	"Foresight/pkg/config"
	xhttp "Foresight/pkg/http"
	pkgkafka "Foresight/pkg/kafka"
	applogger "Foresight/pkg/logger"
	"Foresight/pkg/metrics"
	"Foresight/pkg/server"
)

// ProvideLogger creates the application logger. When a producer is available,
// repeated warnings and errors are also shipped to the logs topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Source:         "foresight-" + cfg.Environment,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and the card table.
// Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.CardSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideCardStore returns the ClickHouse card history, or nil without ClickHouse.
func ProvideCardStore(ch *pkgch.Client, l *applogger.Logger) repository.CardStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHCardStore(ch.DB(), ch.Database(), l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideEventPublisher publishes progress and cards, or nil without Kafka.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.ProgressTopic, cfg.Kafka.CardsTopic)
}

// ProvideRedisCache connects to Redis, or returns nil when the shared cache
// is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCardCache layers an in-process LRU over Redis when Redis is
// configured and falls back to the LRU alone otherwise.
func ProvideCardCache(rc *cache.RedisCache, cfg *config.Config) repository.CardCache {
	var svc cache.Service
	if rc != nil {
		svc = cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
			cache.WithLayeredMemoryTTL(cfg.Cache.TTL))
	} else {
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
			cache.WithMemoryTTL(cfg.Cache.TTL))
	}
	return internalrepo.NewCardCache(svc, cfg.Cache.TTL)
}

func ProvideEvidenceCollector(cfg *config.Config) *research.HTTPEvidenceCollector {
	base := research.NewHTTPServiceBase(cfg.Research.BaseURL, cfg.Research.Timeout, cfg.Research.Attempts)
	return research.NewHTTPEvidenceCollector(base)
}

// ProvideCritic returns nil when no critic endpoint is configured.
func ProvideCritic(cfg *config.Config) *research.HTTPCritic {
	if cfg.Research.CriticURL == "" {
		return nil
	}
	base := research.NewHTTPServiceBase(cfg.Research.CriticURL, cfg.Research.Timeout, cfg.Research.Attempts)
	return research.NewHTTPCritic(base)
}

// ProvideMarketCollector returns nil when market data is disabled.
func ProvideMarketCollector(cfg *config.Config) *research.MarketCollector {
	if !cfg.MarketData.Enabled {
		return nil
	}
	client := marketdata.New(cfg.MarketData.BaseURL, cfg.MarketData.Timeout, cfg.MarketData.Depth)
	return research.NewMarketCollector(client)
}

// ProvideOrchestrator builds the forecast pipeline from config.
func ProvideOrchestrator(
	cfg *config.Config,
	collector *research.HTTPEvidenceCollector,
	critic *research.HTTPCritic,
	market *research.MarketCollector,
	m repository.Metrics,
	l *applogger.Logger,
) *pipeline.Orchestrator {
	pc := cfg.Pipeline
	opts := []pipeline.Option{
		pipeline.WithOrdering(pipeline.ModeOrdering{
			Fast:          pipeline.OrderingByName(pc.FastOrdering, pc.DriverDependsOn),
			Comprehensive: pipeline.OrderingByName(pc.DeepOrdering, pc.DriverDependsOn),
		}),
		pipeline.WithConcurrency(pc.Concurrency),
		pipeline.WithFollowupDeriver(pipeline.GapDeriver{Max: pc.MaxFollowups}),
		pipeline.WithObserverBuffer(pc.ObserverBuffer),
		pipeline.WithObserverFlush(pc.ObserverFlush),
		pipeline.WithLogger(l),
		pipeline.WithMetrics(m),
	}
	if critic != nil {
		opts = append(opts, pipeline.WithCritic(critic))
	}
	if market != nil {
		opts = append(opts, pipeline.WithMarketCollector(market))
	}
	return pipeline.NewOrchestrator(collector, pipeline.NewLogOddsAggregator(), opts...)
}

func ProvideAnalysisUseCase(
	cfg *config.Config,
	orch *pipeline.Orchestrator,
	store repository.CardStore,
	cardCache repository.CardCache,
	pub repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(orch, m, l,
		usecase.WithCardStore(store),
		usecase.WithCardCache(cardCache),
		usecase.WithEventPublisher(pub),
		usecase.WithRunTimeout(cfg.Pipeline.RunTimeout),
	)
}

func ProvideForecastHandler(uc *usecase.AnalysisUseCase, cfg *config.Config, l *applogger.Logger) *api.ForecastEchoHandler {
	return api.NewForecastEchoHandler(uc, api.RateLimit{
		Capacity:     cfg.Server.RateLimit.Capacity,
		RefillPerSec: cfg.Server.RateLimit.RefillPerSec,
	}, l)
}

func ProvideHTTPServer(h *api.ForecastEchoHandler, cfg *config.Config, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates the requests consumer, or nil when queue
// intake is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook{}, pkgkafka.LoggingHook{Log: l}))
	return consumer, nil
}

func ProvideAnalysisRequestsHandler(uc *usecase.AnalysisUseCase, cfg *config.Config, l *applogger.Logger) *usecase.AnalysisRequestsHandler {
	return usecase.NewAnalysisRequestsHandler(cfg.Kafka.RequestsTopic, uc, l)
}

// ProvideApp creates the application server and registers shutdown order:
// log collector, producer, Redis, then ClickHouse.
func ProvideApp(
	l *applogger.Logger,
	srv *xhttp.Server,
	fh *api.ForecastEchoHandler,
	consumer *pkgkafka.Consumer,
	rh *usecase.AnalysisRequestsHandler,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(l, srv, consumer, rh)
	app.AddJob(func(ctx context.Context) { fh.Janitor(ctx, 10*time.Minute) })

	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	if rc != nil {
		app.AddCloser("redis", rc.Close)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
		app.AddCloser("log collector", func() error {
			l.RemoveCollector()
			return nil
		})
	}
	return app
}
