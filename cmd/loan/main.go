package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/loanservicing/internal/loan/application"
	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/internal/loan/infrastructure/lock"
	"github.com/wyfcoding/loanservicing/internal/loan/infrastructure/messaging"
	"github.com/wyfcoding/loanservicing/internal/loan/infrastructure/persistence/mysql"
	loanhttp "github.com/wyfcoding/loanservicing/internal/loan/interfaces/http"
	"github.com/wyfcoding/loanservicing/pkg/cache"
	"github.com/wyfcoding/loanservicing/pkg/config"
	"github.com/wyfcoding/loanservicing/pkg/db"
	"github.com/wyfcoding/loanservicing/pkg/idgen"
	"github.com/wyfcoding/loanservicing/pkg/logger"
	"github.com/wyfcoding/loanservicing/pkg/metrics"
	"github.com/wyfcoding/loanservicing/pkg/middleware"
	"github.com/wyfcoding/loanservicing/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/loan/config.toml", "path to config file")
	nodeID := flag.Int64("node", 1, "snowflake node id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

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
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting loan service",
		"service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	if err := idgen.Init(*nodeID); err != nil {
		logger.Fatal(ctx, "Failed to init id generator", "error", err)
	}

	m := metrics.New("loan")
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}

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
		logger.Fatal(ctx, "Failed to init database", "error", err)
	}
	defer database.Close()

	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to init redis", "error", err)
	}
	defer redisCache.Close()

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to init kafka producer", "error", err)
	}
	defer producer.Close()

	loanRepo := mysql.NewLoanRepository(database)
	paymentRepo := mysql.NewPaymentRepository(database)
	resolutionRepo := mysql.NewResolutionRepository(database)
	collectionRepo := mysql.NewCollectionRepository(database)
	txManager := mysql.NewTxManager(database)
	locker := lock.NewRedisLocker(redisCache, time.Duration(cfg.Loan.LockWaitTimeout)*time.Millisecond)
	publisher := messaging.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)

	penaltyPolicy := domain.PenaltyPolicy{
		Mode:      domain.PenaltyMode(cfg.Loan.PenaltyMode),
		Rate:      decimal.NewFromFloat(cfg.Loan.PenaltyRate),
		FlatFee:   decimal.NewFromFloat(cfg.Loan.PenaltyFlatFee),
		GraceDays: cfg.Loan.PenaltyGraceDays,
	}

	loanService := application.NewLoanService(
		loanRepo, paymentRepo, resolutionRepo, collectionRepo,
		locker, publisher, txManager, m,
		penaltyPolicy, cfg.Loan.PeriodsPerYear,
		time.Duration(cfg.Loan.LockTTL)*time.Second,
	)
	queryService := application.NewLoanQueryService(loanRepo, paymentRepo, redisCache, m)
	handler := loanhttp.NewLoanHandler(loanService, queryService)

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.GinLogging(), middleware.GinRecovery(), middleware.GinMetrics(m))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info(gCtx, "HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "Metrics server stopped", "error", err)
			}
		}()
	}
	// Daily penalty sweep. Collections can also trigger it over HTTP.
	g.Go(func() error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := loanService.AssessOverduePenalties(gCtx); err != nil {
					logger.Error(gCtx, "Scheduled penalty sweep failed", "error", err)
				}
			}
		}
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(shutdownCtx, "Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(ctx, "Loan service exited with error", "error", err)
	}
	logger.Info(ctx, "Loan service stopped")
}
