// Command backfill re-runs the allocation waterfall for payments that were
// recorded but never allocated, typically after a crashed batch. Reprocessing
// is idempotent: payments with active allocation rows are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/loan/application"
	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/internal/loan/infrastructure/lock"
	"github.com/wyfcoding/loanservicing/internal/loan/infrastructure/persistence/mysql"
	"github.com/wyfcoding/loanservicing/pkg/cache"
	"github.com/wyfcoding/loanservicing/pkg/config"
	"github.com/wyfcoding/loanservicing/pkg/db"
	"github.com/wyfcoding/loanservicing/pkg/idgen"
	"github.com/wyfcoding/loanservicing/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/loan/config.toml", "path to config file")
	loanID := flag.String("loan", "", "loan id to backfill")
	paymentIDs := flag.String("payments", "", "comma-separated payment ids")
	nodeID := flag.Int64("node", 9, "snowflake node id")
	flag.Parse()

	if *loanID == "" || *paymentIDs == "" {
		fmt.Fprintln(os.Stderr, "usage: backfill -loan LOAN-ID -payments PAY-1,PAY-2")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: "stdout",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	if err := idgen.Init(*nodeID); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init id generator: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	penaltyPolicy := domain.PenaltyPolicy{
		Mode:      domain.PenaltyMode(cfg.Loan.PenaltyMode),
		Rate:      decimal.NewFromFloat(cfg.Loan.PenaltyRate),
		FlatFee:   decimal.NewFromFloat(cfg.Loan.PenaltyFlatFee),
		GraceDays: cfg.Loan.PenaltyGraceDays,
	}

	// No event publisher: the backfill repairs local state, accounting is
	// reconciled separately.
	service := application.NewLoanService(
		mysql.NewLoanRepository(database),
		mysql.NewPaymentRepository(database),
		mysql.NewResolutionRepository(database),
		mysql.NewCollectionRepository(database),
		lock.NewRedisLocker(redisCache, time.Duration(cfg.Loan.LockWaitTimeout)*time.Millisecond),
		nil,
		mysql.NewTxManager(database),
		nil,
		penaltyPolicy, cfg.Loan.PeriodsPerYear,
		time.Duration(cfg.Loan.LockTTL)*time.Second,
	)

	processed, skipped, failed := 0, 0, 0
	for _, paymentID := range strings.Split(*paymentIDs, ",") {
		paymentID = strings.TrimSpace(paymentID)
		if paymentID == "" {
			continue
		}
		applied, err := service.ReprocessPayment(ctx, *loanID, paymentID)
		switch {
		case err != nil:
			failed++
			logger.Error(ctx, "Backfill failed for payment", "payment_id", paymentID, "error", err)
		case applied:
			processed++
		default:
			skipped++
		}
	}

	logger.Info(ctx, "Backfill finished",
		"loan_id", *loanID, "processed", processed, "skipped", skipped, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
