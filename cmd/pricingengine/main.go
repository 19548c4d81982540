package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionspricing/internal/options/application"
	"github.com/wyfcoding/optionspricing/internal/options/domain"
	"github.com/wyfcoding/optionspricing/internal/options/infrastructure/client"
	"github.com/wyfcoding/optionspricing/internal/options/infrastructure/messaging"
	persistence_mysql "github.com/wyfcoding/optionspricing/internal/options/infrastructure/persistence/mysql"
	httphandler "github.com/wyfcoding/optionspricing/internal/options/interfaces/http"
	"github.com/wyfcoding/optionspricing/pkg/config"
	"github.com/wyfcoding/optionspricing/pkg/db"
	"github.com/wyfcoding/optionspricing/pkg/logger"
	"github.com/wyfcoding/optionspricing/pkg/metrics"
	"github.com/wyfcoding/optionspricing/pkg/middleware"
	"github.com/wyfcoding/optionspricing/pkg/mq"
)

const serviceName = "pricingengine"

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	ctx := context.Background()
	logger.Info(ctx, "starting service", "service", cfg.ServiceName, "version", cfg.Version)

	// 3. Metrics
	m := metrics.New(serviceName)
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "failed to start metrics server", "error", err)
		}
	}

	// 4. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&persistence_mysql.PricingRecordModel{},
		&persistence_mysql.ImpliedVolSolveModel{},
		&persistence_mysql.StrategySnapshotModel{},
	); err != nil {
		logger.Fatal(ctx, "failed to migrate database", "error", err)
	}
	if err := messaging.AutoMigrate(database.DB); err != nil {
		logger.Fatal(ctx, "failed to migrate outbox table", "error", err)
	}

	// 5. Kafka producer 与 Outbox 转发器
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to create kafka producer", "error", err)
	}
	defer producer.Close()

	publisher := messaging.NewOutboxPublisher(database.DB, logger.Get())
	relay := messaging.NewOutboxRelay(database.DB, producer, logger.Get(),
		cfg.Kafka.OutboxBatchSize, time.Duration(cfg.Kafka.OutboxInterval)*time.Second)
	relay.Start()
	defer relay.Stop()

	// 6. Layers
	repo := persistence_mysql.NewPricingRepository(database.DB)
	engine := domain.NewPricingEngine()
	marketData := buildMarketDataClient(cfg)
	cmdService := application.NewPricingCommandService(engine, repo, publisher, marketData).
		WithDefaults(application.Defaults{
			LatticeSteps:     cfg.Pricing.DefaultLatticeSteps,
			SimulationPaths:  cfg.Pricing.DefaultSimulationPaths,
			BatchConcurrency: cfg.Pricing.BatchConcurrency,
		})
	queryService := application.NewPricingQueryService(engine, repo, marketData)

	// 7. HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinMetricsMiddleware(m),
		middleware.GinCORSMiddleware(),
	)

	handler := httphandler.NewPricingHandler(cmdService, queryService, m)
	handler.RegisterRoutes(&router.RouterGroup)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().Unix(),
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "failed to serve", "error", err)
		}
	}()

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", "error", err)
	}
	logger.Info(ctx, "server exited")
}

// buildMarketDataClient 根据配置选择真实行情客户端或内置模拟实现。
func buildMarketDataClient(cfg *config.Config) domain.MarketDataClient {
	endpoint := config.GetEnv("MARKET_DATA_ENDPOINT", "")
	if endpoint == "" {
		return client.NewMockMarketDataClient()
	}
	return client.NewHTTPMarketDataClient(endpoint, 3*time.Second)
}
