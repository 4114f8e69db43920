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
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/loanservicing/internal/accounting/application"
	"github.com/wyfcoding/loanservicing/internal/accounting/infrastructure/persistence/mysql"
	"github.com/wyfcoding/loanservicing/internal/accounting/interfaces/consumer"
	accountinghttp "github.com/wyfcoding/loanservicing/internal/accounting/interfaces/http"
	"github.com/wyfcoding/loanservicing/pkg/config"
	"github.com/wyfcoding/loanservicing/pkg/db"
	"github.com/wyfcoding/loanservicing/pkg/idgen"
	"github.com/wyfcoding/loanservicing/pkg/logger"
	"github.com/wyfcoding/loanservicing/pkg/metrics"
	"github.com/wyfcoding/loanservicing/pkg/middleware"
	"github.com/wyfcoding/loanservicing/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/accounting/config.toml", "path to config file")
	nodeID := flag.Int64("node", 2, "snowflake node id")
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
	logger.Info(ctx, "Starting accounting service",
		"service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	if err := idgen.Init(*nodeID); err != nil {
		logger.Fatal(ctx, "Failed to init id generator", "error", err)
	}

	m := metrics.New("accounting")
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

	kafkaConsumer, err := mq.NewConsumer(mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
	}, cfg.Kafka.Topic)
	if err != nil {
		logger.Fatal(ctx, "Failed to init kafka consumer", "error", err)
	}
	defer kafkaConsumer.Close()

	journalRepo := mysql.NewJournalRepository(database)
	txManager := mysql.NewTxManager(database)
	snapshotRunner := mysql.NewSnapshotRunner(database)

	postingService := application.NewPostingService(journalRepo, txManager)
	reconcileService := application.NewReconcileService(journalRepo, snapshotRunner, m)
	eventHandler := consumer.NewLoanEventHandler(kafkaConsumer, postingService)
	handler := accountinghttp.NewAccountingHandler(postingService, reconcileService)

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
	g.Go(func() error {
		return eventHandler.Run(gCtx)
	})
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "Metrics server stopped", "error", err)
			}
		}()
	}
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(shutdownCtx, "Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(ctx, "Accounting service exited with error", "error", err)
	}
	logger.Info(ctx, "Accounting service stopped")
}
