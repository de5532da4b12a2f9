package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CoinSim/internal/domain/models"
	"CoinSim/internal/domain/repository"
	domsvc "CoinSim/internal/domain/service"
	"CoinSim/internal/handler/api"
	mid "CoinSim/internal/middleware"
	internalrepo "CoinSim/internal/repository"
	"CoinSim/internal/service/binance"
	svccache "CoinSim/internal/service/cache"
	"CoinSim/internal/service/coingecko"
	"CoinSim/internal/service/scheduler"
	"CoinSim/internal/services/analytics"
	"CoinSim/internal/usecase"
	pkgcache "CoinSim/pkg/cache"
	pkgch "CoinSim/pkg/clickhouse"
	"CoinSim/pkg/config"
	xhttp "CoinSim/pkg/http"
	"CoinSim/pkg/id"
	pkgkafka "CoinSim/pkg/kafka"
	applogger "CoinSim/pkg/logger"
	"CoinSim/pkg/metrics"
	pkgqueue "CoinSim/pkg/queue"
	"CoinSim/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "console"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the ClickHouse candle store and ensures its
// schema exists.
func ProvideCandleStore(chClient *pkgch.Client, l *applogger.Logger) (repository.CandleStore, error) {
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("candle store: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when the journal backend is
// kafka, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.JournalBackendKafka {
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

// ProvideKafkaJournal creates the Kafka-backed journal publisher.
func ProvideKafkaJournal(producer *pkgkafka.Producer, cfg *config.Config) *internalrepo.KafkaJournal {
	return internalrepo.NewKafkaJournal(producer, cfg.Kafka.Topic)
}

// ProvideCHJournal creates the ClickHouse journal store and ensures its
// schema exists. Both backends need it: direct mode writes to it, kafka
// mode lands consumed entries in it.
func ProvideCHJournal(chClient *pkgch.Client) (*internalrepo.CHJournal, error) {
	j := internalrepo.NewCHJournal(chClient)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.Init(ctx); err != nil {
		return nil, fmt.Errorf("journal store: %w", err)
	}
	return j, nil
}

// ProvideJournalProcessor routes journal entries to the configured backend.
func ProvideJournalProcessor(
	kj *internalrepo.KafkaJournal,
	cj *internalrepo.CHJournal,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.JournalProcessor {
	return usecase.NewJournalProcessor(kj, cj, m, cfg.Backend.Type)
}

// ProvideRedisCache creates the shared Redis connection.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	opts := []pkgcache.RedisOption{
		pkgcache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	}
	if cfg.Redis.Prefix != "" {
		opts = append(opts, pkgcache.WithRedisPrefix(cfg.Redis.Prefix))
	}
	if cfg.Redis.PoolSize > 0 {
		opts = append(opts, pkgcache.WithRedisPool(cfg.Redis.PoolSize, 5, 30*time.Second))
	}
	rc, err := pkgcache.NewRedisCache(opts...)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService layers an in-process cache over Redis. The L1
// fill TTL tracks the feed cache TTL so memory never serves data Redis
// would already have expired.
func ProvideCacheService(cfg *config.Config, rc *pkgcache.RedisCache) pkgcache.Service {
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(4096),
		pkgcache.WithLayeredFillTTL(cfg.Feed.CacheTTL),
	)
}

// ProvideRawCache creates the byte cache for raw feed bodies. Backed by the
// shared Redis connection so replicas spend one fetch of feed budget, not
// one each.
func ProvideRawCache(rc *pkgcache.RedisCache) svccache.BytesCache {
	return svccache.NewRedisBytes(rc.Client(), "coinsim:raw")
}

// ProvideMarketFeed creates the CoinGecko REST feed.
func ProvideMarketFeed(
	cfg *config.Config,
	raw svccache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
) repository.MarketFeed {
	return coingecko.New(coingecko.Config{
		BaseURL:       cfg.Feed.BaseURL,
		APIKey:        cfg.Feed.APIKey,
		VsCurrency:    cfg.Feed.VsCurrency,
		PerPage:       cfg.Feed.PerPage,
		Timeout:       cfg.Feed.Timeout,
		RateBurst:     cfg.Feed.RateBurst,
		RatePerSecond: cfg.Feed.RatePerSecond,
	}, raw, m, l)
}

// ProvideMarketStream creates the Binance WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return binance.New(binance.Config{
		URL:            cfg.Stream.URL,
		Symbols:        cfg.Stream.Symbols,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
		PingInterval:   cfg.Stream.PingInterval,
	}, l)
}

// ProvideStateStore selects the snapshot store from config.
func ProvideStateStore(cfg *config.Config, rc *pkgcache.RedisCache) repository.StateStore {
	if cfg.Simulator.StateBackend == "redis" {
		return internalrepo.NewRedisStateStore(rc.Client(), cfg.Simulator.StateKey)
	}
	return internalrepo.NewMemStateStore()
}

// ProvideIDGenerator creates the trade and position id generator.
func ProvideIDGenerator() id.Generator {
	return id.NewUUID()
}

// ProvideAccount funds the simulated account.
func ProvideAccount(cfg *config.Config) *usecase.Account {
	initial := cfg.Simulator.InitialBalance
	if initial <= 0 {
		initial = usecase.DefaultInitialBalance
	}
	return usecase.NewAccount(initial)
}

// ProvideSpotLedger creates the spot trading ledger.
func ProvideSpotLedger(account *usecase.Account, ids id.Generator) *usecase.SpotLedger {
	return usecase.NewSpotLedger(account, ids)
}

// ProvideFuturesEngine creates the leveraged position engine.
func ProvideFuturesEngine(account *usecase.Account, ids id.Generator) *usecase.FuturesEngine {
	return usecase.NewFuturesEngine(account, ids)
}

// ProvideMarketDataService creates the cached market data view.
func ProvideMarketDataService(
	feed repository.MarketFeed,
	store repository.CandleStore,
	c pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.MarketDataService {
	return usecase.NewMarketDataService(feed, store, c, m, cfg.Feed.CacheTTL)
}

// ProvideTradingService wires the engines, journal and state store together.
func ProvideTradingService(
	account *usecase.Account,
	ledger *usecase.SpotLedger,
	futures *usecase.FuturesEngine,
	journal *usecase.JournalProcessor,
	state repository.StateStore,
	market *usecase.MarketDataService,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TradingService {
	var opts []usecase.TradingOption
	if cfg.Simulator.FundingRate > 0 {
		opts = append(opts, usecase.WithFundingRate(cfg.Simulator.FundingRate))
	}
	return usecase.NewTradingService(account, ledger, futures, journal, state, market, m, opts...)
}

// ProvideAnalyzer creates the signal analyzer with the default tuning.
func ProvideAnalyzer() domsvc.SignalAnalyzer {
	return analytics.NewAnalyzer(analytics.DefaultConfig())
}

// ProvideSignalService creates the cached signal usecase.
func ProvideSignalService(
	market *usecase.MarketDataService,
	analyzer domsvc.SignalAnalyzer,
	c pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalService {
	return usecase.NewSignalService(market, analyzer, c, m, cfg.Analyzer.MinCandles, cfg.Analyzer.SignalTTL)
}

// ProvideCandlesUseCase creates the ranged candle query usecase.
func ProvideCandlesUseCase(store repository.CandleStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideJobQueue creates the Redis scan job queue.
func ProvideJobQueue(l *applogger.Logger, cfg *config.Config, rc *pkgcache.RedisCache) *pkgqueue.RedisQueue {
	qcfg := &pkgqueue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	return pkgqueue.NewRedisQueue(l, qcfg, rc.Client(), pkgqueue.ModeProducerConsumer)
}

// ProvideSignalScanner creates the watchlist scanner.
func ProvideSignalScanner(
	signals *usecase.SignalService,
	q *pkgqueue.RedisQueue,
	c pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalScanner {
	return usecase.NewSignalScanner(
		signals,
		q,
		c,
		m,
		cfg.Stream.Symbols,
		repository.NormalizeTimeframe(cfg.Analyzer.Timeframe),
		cfg.Analyzer.ScanLimit,
	)
}

// ProvideScheduler creates the periodic job runner.
func ProvideScheduler(
	cfg *config.Config,
	market *usecase.MarketDataService,
	scanner *usecase.SignalScanner,
	trading *usecase.TradingService,
	l *applogger.Logger,
) *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		MarketRefreshEvery: cfg.Scheduler.MarketRefreshEvery,
		ScanEvery:          cfg.Scheduler.ScanEvery,
		FundingEvery:       cfg.Scheduler.FundingEvery,
		SnapshotEvery:      cfg.Simulator.SnapshotEvery,
	}, market, scanner, trading, l)
}

// ProvideCandleBuilder creates the tick-to-candle fold for the stream.
func ProvideCandleBuilder(cfg *config.Config) *usecase.CandleBuilder {
	tf := repository.TF1m
	if cfg.Stream.Timeframe != "" {
		tf = repository.NormalizeTimeframe(cfg.Stream.Timeframe)
	}
	return usecase.NewCandleBuilder(tf)
}

// ProvidePriceCollector creates the stream collector with its buffering
// pipeline attached.
func ProvidePriceCollector(
	stream repository.MarketStream,
	trading *usecase.TradingService,
	market *usecase.MarketDataService,
	builder *usecase.CandleBuilder,
	store repository.CandleStore,
	m repository.Metrics,
) *usecase.PriceCollector {
	collector := usecase.NewPriceCollector(stream, nil, trading, market, builder, store, m)
	pipe := mid.NewRealtimePipeline(collector, m,
		mid.WithMaxRPS(200),
		mid.WithBufferSize(2000),
		// Feed symbols arrive in exchange casing; keep the price keys canonical.
		mid.WithTransform(func(t *models.Tick) *models.Tick {
			t.Symbol = strings.ToUpper(t.Symbol)
			return t
		}),
	)
	collector.SetPipeline(pipe)
	return collector
}

// ProvideKafkaConsumer creates the journal sink consumer when the backend
// is kafka, nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != usecase.JournalBackendKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.OffsetReset),
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

// ProvideKafkaJournalHandler lands consumed journal entries in ClickHouse.
func ProvideKafkaJournalHandler(cj *internalrepo.CHJournal, m repository.Metrics, cfg *config.Config) *usecase.KafkaJournalHandler {
	return usecase.NewKafkaJournalHandler(cfg.Kafka.Topic, cj, m)
}

// ProvideSignalsHandler creates the signal HTTP handler.
func ProvideSignalsHandler(l *applogger.Logger, signals *usecase.SignalService, scanner *usecase.SignalScanner) *api.SignalsEchoHandler {
	return api.NewSignalsEchoHandler(l, signals, scanner)
}

// ProvideMarketsHandler creates the market data HTTP handler.
func ProvideMarketsHandler(l *applogger.Logger, market *usecase.MarketDataService, candles *usecase.CandlesUseCase) *api.MarketsEchoHandler {
	return api.NewMarketsEchoHandler(l, market, candles)
}

// ProvideTradingHandler creates the trading HTTP handler.
func ProvideTradingHandler(l *applogger.Logger, trading *usecase.TradingService) *api.TradingEchoHandler {
	return api.NewTradingEchoHandler(l, trading)
}

// ProvideRouter composes the handlers into the HTTP route table.
func ProvideRouter(
	signals *api.SignalsEchoHandler,
	markets *api.MarketsEchoHandler,
	trading *api.TradingEchoHandler,
	store repository.CandleStore,
	stream repository.MarketStream,
) xhttp.Handler {
	return api.NewRouter(signals, markets, trading, store, stream)
}

// kafkaLogPublisher adapts the journal producer to the log collector.
type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.PriceCollector,
	trading *usecase.TradingService,
	sched *scheduler.Scheduler,
	jobs *pkgqueue.RedisQueue,
	scanner *usecase.SignalScanner,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	kh *usecase.KafkaJournalHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewLoggingHook(l, time.Second))
	}
	// With kafka wired, repeated error logs batch into a side topic.
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".errors",
			Publisher:      kafkaLogPublisher{p: producer},
		})
	}
	if jobs != nil {
		jobs.RegisterJob(scanner)
	}
	return server.New(cfg, l, collector, trading, sched, jobs, consumer, kh, chClient, handler)
}
