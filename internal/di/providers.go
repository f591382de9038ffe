package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	domrepo "Conflux/internal/domain/repository"
	domsvc "Conflux/internal/domain/service"
	"Conflux/internal/handler/api"
	mid "Conflux/internal/middleware"
	internalrepo "Conflux/internal/repository"
	"Conflux/internal/service/extraction"
	"Conflux/internal/services/confluence"
	"Conflux/internal/services/symbols"
	"Conflux/internal/usecase"
	"Conflux/pkg/cache"
	pkgch "Conflux/pkg/clickhouse"
	"Conflux/pkg/config"
	pkgkafka "Conflux/pkg/kafka"
	applogger "Conflux/pkg/logger"
	"Conflux/pkg/metrics"
	"Conflux/pkg/queue"
	"Conflux/pkg/server"
)

// ArchiveSink is the concrete archive backend, distinct from the archive
// the ingestor writes to (which may be the queue wrapper in front of it).
type ArchiveSink domrepo.Archive

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideNormalizer creates the symbol normalizer.
func ProvideNormalizer() domsvc.Normalizer {
	return symbols.New()
}

// ProvideWeights builds scoring weights from config, falling back to the
// reference values for anything left unset.
func ProvideWeights(cfg *config.Config) confluence.Weights {
	w := confluence.DefaultWeights()
	if cfg.Confluence.BiasWeight > 0 {
		w.Bias = cfg.Confluence.BiasWeight
	}
	if cfg.Confluence.ProximityWeight > 0 {
		w.Proximity = cfg.Confluence.ProximityWeight
	}
	if cfg.Confluence.StalePenalty > 0 {
		w.StalePenalty = cfg.Confluence.StalePenalty
	}
	if cfg.Confluence.SingleSourceCap > 0 {
		w.SingleSourceCap = cfg.Confluence.SingleSourceCap
	}
	if cfg.Confluence.MergeTolerance > 0 {
		w.MergeTolerance = cfg.Confluence.MergeTolerance
	}
	return w
}

// ProvideThresholds builds the staleness threshold set from config.
func ProvideThresholds(cfg *config.Config) confluence.ThresholdSet {
	ts := confluence.ThresholdSet{
		Default: confluence.Thresholds{
			Soft: cfg.Sources.Staleness.Soft,
			Hard: cfg.Sources.Staleness.Hard,
		},
		PerSource: make(map[string]confluence.Thresholds, len(cfg.Sources.Overrides)),
	}
	for name, th := range cfg.Sources.Overrides {
		ts.PerSource[name] = confluence.Thresholds{Soft: th.Soft, Hard: th.Hard}
	}
	return ts
}

// ProvideScorer creates the confluence scorer.
func ProvideScorer(w confluence.Weights, th confluence.ThresholdSet) domsvc.Scorer {
	return confluence.NewScorer(w, th)
}

// ProvideSynthesizer creates the trade-setup synthesizer.
func ProvideSynthesizer() domsvc.Synthesizer {
	return confluence.NewSynthesizer()
}

// ProvideStore creates the in-memory state store.
func ProvideStore(cfg *config.Config, w confluence.Weights) *internalrepo.MemoryStore {
	opts := []internalrepo.MemoryStoreOption{
		internalrepo.WithTolerance(w.MergeTolerance),
	}
	if cfg.Confluence.ConfidenceFloor > 0 {
		opts = append(opts, internalrepo.WithConfidenceFloor(cfg.Confluence.ConfidenceFloor))
	}
	return internalrepo.NewMemoryStore(opts...)
}

// ProvideStateStore exposes the store through the domain interface.
func ProvideStateStore(s *internalrepo.MemoryStore) domrepo.StateStore {
	return s
}

// ProvideRedisCache creates the Redis cache client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port, err := splitAddr(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	return cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideSnapshotter creates the state snapshotter, or nil when disabled.
func ProvideSnapshotter(cfg *config.Config, rc *cache.RedisCache) domrepo.Snapshotter {
	if !cfg.Snapshot.Enabled || rc == nil {
		return nil
	}
	return internalrepo.NewCacheSnapshotter(rc, cfg.Snapshot.Key)
}

// ProvideArchiveSink creates the configured archive backend.
func ProvideArchiveSink(cfg *config.Config) (ArchiveSink, error) {
	switch cfg.Archive.Backend {
	case "clickhouse":
		client, err := provideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		table := cfg.Archive.Table
		if table == "" {
			table = cfg.ClickHouse.Database + ".extraction_records"
		}
		return internalrepo.NewClickHouseArchive(client.DB(), table), nil
	case "kafka":
		producer, err := provideKafkaProducer(cfg)
		if err != nil {
			return nil, err
		}
		return internalrepo.NewKafkaArchive(producer, cfg.Kafka.Topic), nil
	default:
		return internalrepo.NoopArchive{}, nil
	}
}

// ProvideJobQueue creates the Redis queue consuming deferred archive jobs,
// or nil when the queue path is disabled.
func ProvideJobQueue(cfg *config.Config, l *applogger.Logger, rc *cache.RedisCache, sink ArchiveSink) *queue.RedisQueue {
	if !cfg.Archive.UseQueue || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{Workers: 2}, rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix("conflux:archive"),
	)
	q.RegisterJob(usecase.NewLogDigestJob(l))
	return q
}

// ProvideArchive picks what the ingestor writes to: the queue wrapper when
// deferred archiving is on, the sink directly otherwise.
func ProvideArchive(cfg *config.Config, sink ArchiveSink, q *queue.RedisQueue) domrepo.Archive {
	if q != nil {
		q.RegisterJob(usecase.NewArchiveJob(sink))
		return usecase.NewQueueArchive(q)
	}
	return sink
}

// ProvideIngestor creates the ingest use case.
func ProvideIngestor(
	norm domsvc.Normalizer,
	store domrepo.StateStore,
	m domrepo.Metrics,
	l *applogger.Logger,
	archive domrepo.Archive,
	cfg *config.Config,
) *usecase.Ingestor {
	ing := usecase.NewIngestor(norm, store, m, l, cfg.Sources.Allowed)
	ing.SetArchive(archive)
	return ing
}

// ProvideQuery creates the query use case.
func ProvideQuery(
	store domrepo.StateStore,
	norm domsvc.Normalizer,
	scorer domsvc.Scorer,
	synth domsvc.Synthesizer,
	th confluence.ThresholdSet,
	m domrepo.Metrics,
) *usecase.Query {
	return usecase.NewQuery(store, norm, scorer, synth, th, m)
}

// ProvideRecordStream creates the extraction WebSocket stream, or nil when
// the inbound stream is disabled.
func ProvideRecordStream(cfg *config.Config) domrepo.RecordStream {
	if !cfg.Extraction.Enabled {
		return nil
	}
	return extraction.New(
		cfg.Extraction.APIKey,
		cfg.Extraction.WebSocketURL,
		cfg.Extraction.Channels,
		cfg.Extraction.ReconnectDelay,
		cfg.Extraction.PingInterval,
	)
}

// ProvideRecordCollector creates the stream collector with its throttling
// pipeline, or nil when there is no stream.
func ProvideRecordCollector(
	stream domrepo.RecordStream,
	ing *usecase.Ingestor,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.RecordCollector {
	if stream == nil {
		return nil
	}
	opts := []mid.PipelineOption{}
	if cfg.Ingest.SourceRate > 0 {
		opts = append(opts, mid.WithSourceRate(cfg.Ingest.SourceRate, float64(cfg.Ingest.SourceBurst)))
	}
	if cfg.Ingest.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Ingest.BufferSize))
	}
	pipe := mid.NewRecordPipeline(ing, m, opts...)
	return usecase.NewRecordCollector(stream, ing, m, pipe)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or
// nil when the inbound topic is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
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
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaRecordsHandler registers the handler for the inbound records topic.
func ProvideKafkaRecordsHandler(ing *usecase.Ingestor, m domrepo.Metrics, cfg *config.Config) *usecase.KafkaRecordsHandler {
	return usecase.NewKafkaRecordsHandler(cfg.Kafka.Consumer.Topic, ing, m)
}

// ProvideEchoHandler creates the HTTP API handler.
func ProvideEchoHandler(cfg *config.Config, l *applogger.Logger, ing *usecase.Ingestor, q *usecase.Query, rc *cache.RedisCache) *api.ConfluenceEchoHandler {
	h := api.NewConfluenceEchoHandler(l, ing, q)
	if cfg.ResponseCache.Enabled {
		var svc cache.Service
		if rc != nil {
			svc = cache.NewLayeredCache(rc)
		} else {
			svc = cache.NewMemoryCache()
		}
		ttl := cfg.ResponseCache.TTL
		if ttl <= 0 {
			ttl = 5 * time.Second
		}
		h.SetResponseCache(svc, ttl)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store *internalrepo.MemoryStore,
	handler *api.ConfluenceEchoHandler,
	collector *usecase.RecordCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRecordsHandler,
	archive domrepo.Archive,
	snap domrepo.Snapshotter,
	jobQueue *queue.RedisQueue,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, store, handler, collector, consumer, kh, archive)
	if snap != nil {
		app.SetSnapshotter(snap)
	}
	if jobQueue != nil {
		app.SetJobQueue(jobQueue)
	}
	return app
}

func provideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	table := cfg.Archive.Table
	if table == "" {
		table = cfg.ClickHouse.Database + ".extraction_records"
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
		"CREATE TABLE IF NOT EXISTS " + table + " (observed_at DateTime64(3), source LowCardinality(String), symbol_text String, kind LowCardinality(String), content_id String, payload String) ENGINE=MergeTree ORDER BY (source, symbol_text, observed_at)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func provideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
