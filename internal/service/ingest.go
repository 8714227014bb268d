package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anand0056/rfid-server-setup/common/database"
	mqttcommon "github.com/anand0056/rfid-server-setup/common/mqtt"
	rediscommon "github.com/anand0056/rfid-server-setup/common/redis"
	"github.com/anand0056/rfid-server-setup/internal/config"
	"github.com/anand0056/rfid-server-setup/internal/consumer"
	"github.com/anand0056/rfid-server-setup/internal/guardian"
	"github.com/anand0056/rfid-server-setup/internal/heartbeat"
	"github.com/anand0056/rfid-server-setup/internal/httpapi"
	"github.com/anand0056/rfid-server-setup/internal/metrics"
	"github.com/anand0056/rfid-server-setup/internal/processor"
	"github.com/anand0056/rfid-server-setup/internal/repository"
	"github.com/anand0056/rfid-server-setup/internal/repository/memory"
	"github.com/anand0056/rfid-server-setup/internal/resolver"
	"github.com/anand0056/rfid-server-setup/internal/sink"
	"github.com/anand0056/rfid-server-setup/internal/stream"
)

// Stores groups the repositories the pipeline and the HTTP API use.
type Stores struct {
	Readers   repository.ReadersRepository
	Cards     repository.CardsRepository
	ScanLogs  repository.ScanLogsRepository
	ErrorLogs repository.ErrorLogsRepository
}

// PostgresStores builds the repositories on top of conn.
func PostgresStores(conn repository.Connector) Stores {
	return Stores{
		Readers:   repository.NewPostgresReadersRepository(conn),
		Cards:     repository.NewPostgresCardsRepository(conn),
		ScanLogs:  repository.NewPostgresScanLogsRepository(conn),
		ErrorLogs: repository.NewPostgresErrorLogsRepository(conn),
	}
}

// MemoryStores backs every repository with one in-memory store.
func MemoryStores(store *memory.Store) Stores {
	return Stores{Readers: store, Cards: store, ScanLogs: store, ErrorLogs: store}
}

// NewDispatcher wires sink, resolver, processor and heartbeat handler. publisher may be nil.
func NewDispatcher(cfg *config.Config, stores Stores, publisher stream.ScanPublisher, m *metrics.Metrics, logger *zap.Logger) *consumer.Dispatcher {
	tenant := cfg.Ingest.DefaultTenantID

	recorder := sink.New(stores.ErrorLogs, tenant, cfg.Ingest.SinkTimeout, logger.Named("sink"), m)
	res := resolver.New(stores.Readers, stores.Cards, tenant, logger.Named("resolver"))

	opts := []processor.Option{processor.WithMetrics(m)}
	if publisher != nil {
		opts = append(opts, processor.WithPublisher(publisher))
	}
	scans := processor.New(res, stores.Readers, stores.ScanLogs, recorder, logger.Named("processor"), opts...)
	beats := heartbeat.NewHandler(stores.Readers, res, m, logger.Named("heartbeat"))

	return consumer.NewDispatcher(scans, beats, m, logger.Named("dispatcher"))
}

// IngestService RFID 采集服务
type IngestService struct {
	config     *config.Config
	logger     *zap.Logger
	guardian   *guardian.Guardian
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	consumer   *consumer.MQTTConsumer
	server     *httpapi.Server
}

// NewIngestService connects the datastore (unless disabled), redis (when
// enabled) and the broker, then wires the pipeline and the HTTP surface.
func NewIngestService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*IngestService, error) {
	s := &IngestService{config: cfg, logger: logger}
	m := metrics.New()

	var stores Stores
	var dbPinger httpapi.Pinger
	if cfg.DBEnabled {
		s.guardian = guardian.New(func(ctx context.Context) (*sql.DB, error) {
			return database.NewPostgresDB(ctx, &cfg.Database)
		}, cfg.Database.MaxRetries, cfg.Database.RetryInterval, logger.Named("guardian"))
		if err := s.guardian.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		stores = PostgresStores(s.guardian)
		dbPinger = s.guardian
	} else {
		// DB 未启用：使用内存 repo
		logger.Warn("DB disabled, using in-memory stores")
		stores = MemoryStores(memory.NewStore())
	}

	var publisher stream.ScanPublisher
	var redisPinger httpapi.Pinger
	if cfg.RedisEnabled {
		s.redis = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, s.redis); err != nil {
			s.closeBackends()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		publisher = stream.NewRedisScanPublisher(s.redis, cfg.Ingest.ScanStream, logger.Named("stream"))
		redisPinger = httpapi.PingFunc(func(ctx context.Context) error {
			return rediscommon.Ping(ctx, s.redis)
		})
	}

	mqttClient, err := mqttcommon.NewClient(ctx, &cfg.MQTT, logger.Named("mqtt"))
	if err != nil {
		s.closeBackends()
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}
	s.mqttClient = mqttClient

	dispatcher := NewDispatcher(cfg, stores, publisher, m, logger)
	s.consumer = consumer.NewMQTTConsumer(mqttClient, dispatcher, cfg.Ingest.Topics, cfg.MQTT.QoS, logger.Named("consumer"))

	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(dbPinger, mqttClient, redisPinger, time.Now(), logger.Named("health")))
	router.RegisterMetricsRoutes(m.Handler())
	router.RegisterErrorLogRoutes(httpapi.NewErrorLogsHandler(stores.ErrorLogs, cfg.Ingest.DefaultTenantID, logger.Named("error_logs")))
	s.server = httpapi.NewServer(cfg.HTTP.Addr, router, logger)

	return s, nil
}

// Start runs the consumer and the HTTP server until ctx is cancelled or
// either of them fails.
func (s *IngestService) Start(ctx context.Context) error {
	s.logger.Info("Starting rfid-ingest service components")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.consumer.Start(gctx); err != nil {
			return fmt.Errorf("failed to start MQTT consumer: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.server.Start(); err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Stop(shutdownCtx)
	})
	return g.Wait()
}

// Stop 停止服务
func (s *IngestService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping rfid-ingest service")

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.server != nil {
		if err := s.server.Stop(ctx); err != nil {
			s.logger.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	s.closeBackends()

	s.logger.Info("rfid-ingest service stopped")
	return nil
}

func (s *IngestService) closeBackends() {
	if s.redis != nil {
		if err := rediscommon.Close(s.redis); err != nil {
			s.logger.Error("Error closing redis", zap.Error(err))
		}
	}
	if s.guardian != nil {
		if err := s.guardian.Close(); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}
}
