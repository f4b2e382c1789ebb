package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/domain/repository"
	"FinRisk/internal/handler/api"
	internalrepo "FinRisk/internal/repository"
	"FinRisk/internal/service/ratelimit"
	"FinRisk/internal/services/bounds"
	"FinRisk/internal/services/risk"
	"FinRisk/internal/usecase"
	pkgch "FinRisk/pkg/clickhouse"
	"FinRisk/pkg/config"
	xhttp "FinRisk/pkg/http"
	pkgkafka "FinRisk/pkg/kafka"
	applogger "FinRisk/pkg/logger"
	"FinRisk/pkg/metrics"
	"FinRisk/pkg/postgres"
	"FinRisk/pkg/server"
)

const connectTimeout = 10 * time.Second

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func ProvideRiskParams(cfg *config.Config) (risk.Params, error) {
	p := risk.Params{
		CoefMin: cfg.Risk.CoefMin,
		CoefMax: cfg.Risk.CoefMax,
		Thresholds: risk.Thresholds{
			StrongBuy: cfg.Risk.Thresholds.StrongBuy,
			Buy:       cfg.Risk.Thresholds.Buy,
			Neutral:   cfg.Risk.Thresholds.Neutral,
			Sell:      cfg.Risk.Thresholds.Sell,
		},
	}
	if err := p.Validate(); err != nil {
		return risk.Params{}, fmt.Errorf("risk params: %w", err)
	}
	return p, nil
}

func ProvideEngine(p risk.Params, cfg *config.Config) (*risk.Engine, error) {
	return risk.NewEngine(p, risk.WithDegradeGracefully(cfg.Risk.DegradeGracefully))
}

func ProvideTableStore() *risk.TableStore {
	return risk.NewTableStore()
}

// ProvideClickHouseClient connects to ClickHouse and creates the band tables.
// It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	schema := internalrepo.BandStoreSchema(cfg.ClickHouse.Database, cfg.ClickHouse.DistributionTable, cfg.ClickHouse.PriceTable)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePostgresPool returns nil when Postgres is disabled.
func ProvidePostgresPool(cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if !cfg.Postgres.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pc := postgres.DefaultPoolConfig()
	pc.MaxConns = cfg.Postgres.MaxConns
	pc.MinConns = cfg.Postgres.MinConns
	pc.MaxConnLifetime = cfg.Postgres.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.Postgres.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, cfg.Postgres.URL, pc)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return pool, pool.Close, nil
}

// ProvideRedisClient returns nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) (redis.UniversalClient, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, func() { _ = cli.Close() }, nil
}

// ProvideKafkaProducer returns nil when Kafka or score publishing is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled || !cfg.Risk.PublishScores {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Compression),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyOrdering(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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
	return consumer, nil
}

func breakerSettings(cfg *config.Config) internalrepo.BreakerSettings {
	return internalrepo.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
	}
}

// ProvideBandStore returns nil without a ClickHouse client.
func ProvideBandStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHBandStore {
	if ch == nil {
		return nil
	}
	db := cfg.ClickHouse.Database
	s := internalrepo.NewCHBandStore(ch.DB(), db+"."+cfg.ClickHouse.DistributionTable, db+"."+cfg.ClickHouse.PriceTable)
	s.SetLogger(l)
	return s
}

func ProvidePriceSource(s *internalrepo.CHBandStore, cfg *config.Config, l *applogger.Logger) repository.PriceSource {
	if s == nil {
		return nil
	}
	return internalrepo.NewBreakerPriceSource(s, internalrepo.NewBreaker("clickhouse_prices", breakerSettings(cfg), l))
}

// ProvideDistributionSource falls back to the day counts seeded in the
// calibration config when ClickHouse is disabled.
func ProvideDistributionSource(s *internalrepo.CHBandStore, cfg *config.Config, l *applogger.Logger) repository.DistributionSource {
	if s == nil {
		return internalrepo.NewStaticDistributions(seedDistributions(cfg)...)
	}
	return internalrepo.NewBreakerDistributionSource(s, internalrepo.NewBreaker("clickhouse_distributions", breakerSettings(cfg), l))
}

func ProvideBoundsStore(pool *pgxpool.Pool, cfg *config.Config, l *applogger.Logger) repository.BoundsStore {
	if pool == nil {
		return nil
	}
	return internalrepo.NewBreakerBoundsStore(internalrepo.NewPGBoundsStore(pool), internalrepo.NewBreaker("postgres_bounds", breakerSettings(cfg), l))
}

// ProvideStateStore keeps band histories in Redis when enabled, in memory otherwise.
func ProvideStateStore(cli redis.UniversalClient, cfg *config.Config) repository.StateStore {
	if !cfg.Risk.PersistState {
		return nil
	}
	if cli == nil {
		return internalrepo.NewMemoryStateStore()
	}
	redisStore := internalrepo.NewRedisStateStore(cli, cfg.Redis.KeyPrefix, 0)
	if cfg.Cache.StateTTL <= 0 {
		return redisStore
	}
	return internalrepo.NewCachedStateStore(redisStore, cfg.Cache.StateTTL)
}

func ProvideScorePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ScorePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaScorePublisher(producer, cfg.Kafka.ScoreTopic)
}

func ProvideBoundsResolver(cfg *config.Config, store repository.BoundsStore, l *applogger.Logger) (*bounds.Resolver, error) {
	opts := []bounds.Option{bounds.WithCacheTTL(cfg.Cache.BoundsTTL), bounds.WithLogger(l)}
	if store != nil {
		opts = append(opts, bounds.WithStore(store))
	}
	r, err := bounds.NewResolver(staticBounds(cfg), opts...)
	if err != nil {
		return nil, fmt.Errorf("bounds resolver: %w", err)
	}
	return r, nil
}

// ProvideCalibration installs the configured seed tables before anything scores.
func ProvideCalibration(
	p risk.Params,
	tables *risk.TableStore,
	source repository.DistributionSource,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) (*usecase.CalibrationUseCase, error) {
	c := usecase.NewCalibrationUseCase(p, tables, source, cfg.Calibration.Version, calibrationSeeds(cfg))
	c.SetLogger(l)
	c.SetMetrics(m)
	if err := c.Seed(); err != nil {
		return nil, fmt.Errorf("seed calibration: %w", err)
	}
	return c, nil
}

func ProvideRiskScoring(
	engine *risk.Engine,
	resolver *bounds.Resolver,
	tables *risk.TableStore,
	states repository.StateStore,
	prices repository.PriceSource,
	pub repository.ScorePublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.RiskScoringUseCase {
	opts := []usecase.ScoringOption{
		usecase.WithLogger(l),
		usecase.WithMetrics(m),
		usecase.WithWorkers(cfg.Risk.Workers),
	}
	if states != nil {
		opts = append(opts, usecase.WithStateStore(states))
	}
	if prices != nil {
		opts = append(opts, usecase.WithPriceSource(prices))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewRiskScoringUseCase(engine, resolver, tables, opts...)
}

func ProvideDistributionHandler(calib *usecase.CalibrationUseCase, m repository.Metrics, cfg *config.Config) *usecase.KafkaDistributionHandler {
	return usecase.NewKafkaDistributionHandler(cfg.Kafka.DistributionTopic, calib, m)
}

func ProvideRiskHandler(l *applogger.Logger, scoring *usecase.RiskScoringUseCase, calib *usecase.CalibrationUseCase) *api.RiskEchoHandler {
	return api.NewRiskEchoHandler(l, scoring, calib)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst,
		ratelimit.WithIdleTTL(cfg.RateLimit.IdleTTL),
		ratelimit.WithMaxKeys(cfg.RateLimit.MaxKeys),
	)
}

func ProvideHTTPServer(cfg *config.Config, h *api.RiskEchoHandler, limiter *ratelimit.Limiter, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithMiddleware(limiter.Middleware()))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	dh *usecase.KafkaDistributionHandler,
	calib *usecase.CalibrationUseCase,
) *server.App {
	return server.New(cfg, l, httpServer, consumer, dh, calib)
}

func staticBounds(cfg *config.Config) []models.SymbolBounds {
	out := make([]models.SymbolBounds, 0, len(cfg.Calibration.Symbols))
	for _, s := range cfg.Calibration.Symbols {
		out = append(out, models.SymbolBounds{Symbol: s.Symbol, MinPrice: s.MinPrice, MaxPrice: s.MaxPrice, Epoch: s.Epoch})
	}
	return out
}

func seedDistributions(cfg *config.Config) []models.HistoricalBandDistribution {
	var out []models.HistoricalBandDistribution
	for _, s := range cfg.Calibration.Symbols {
		if len(s.DaysSpent) != models.BandCount {
			continue
		}
		d := models.HistoricalBandDistribution{Symbol: s.Symbol, TotalDays: s.TotalDays}
		copy(d.DaysSpent[:], s.DaysSpent)
		out = append(out, d)
	}
	return out
}

func calibrationSeeds(cfg *config.Config) []usecase.CalibrationSeed {
	dists := make(map[string]models.HistoricalBandDistribution)
	for _, d := range seedDistributions(cfg) {
		dists[d.Symbol] = d
	}
	out := make([]usecase.CalibrationSeed, 0, len(cfg.Calibration.Symbols))
	for _, s := range cfg.Calibration.Symbols {
		seed := usecase.CalibrationSeed{Symbol: s.Symbol, Coefficients: s.Coefficients}
		if d, ok := dists[s.Symbol]; ok {
			seed.Distribution = &d
		}
		out = append(out, seed)
	}
	return out
}
