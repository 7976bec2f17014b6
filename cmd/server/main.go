package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"finbook/internal/audit"
	"finbook/internal/config"
	"finbook/internal/db"
	httpserver "finbook/internal/http"
	"finbook/internal/logging"
	"finbook/internal/metrics"
	"finbook/internal/migration"
	"finbook/internal/models"
	"finbook/internal/schema"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	activity := audit.NewLog(pool, logger)
	if err := activity.EnsureTable(ctx); err != nil {
		logger.Error("activity log setup failed", "error", err)
		os.Exit(1)
	}
	if err := migration.EnsureTables(ctx, pool); err != nil {
		logger.Error("migration tables setup failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	if cfg.SyncOnStart {
		recorder := migration.NewRecorder(pool, activity)
		syncer := schema.NewSynchronizer(pool, recorder, activity)
		summary, err := syncer.SyncAll(ctx, models.Registry())
		if err != nil {
			logger.Error("schema sync failed", "error", err)
			os.Exit(1)
		}
		m.RecordSync(summary)
		logger.Info("schema sync complete",
			"tables_created", summary.TablesCreated,
			"columns_added", summary.ColumnsAdded,
			"columns_updated", summary.ColumnsUpdated,
			"columns_removed", summary.ColumnsRemoved,
			"groups_recorded", summary.GroupsRecorded,
		)
	} else {
		logger.Info("schema sync disabled")
	}

	validate := validator.New()
	executor := migration.NewExecutor(pool, activity)

	accountHandler := httpserver.NewAccountHandler(pool, logger, validate, activity)
	categoryHandler := httpserver.NewCategoryHandler(pool, logger, validate, activity)
	creditCardHandler := httpserver.NewCreditCardHandler(pool, logger, validate, activity)
	tagHandler := httpserver.NewTagHandler(pool, logger, validate, activity)
	transactionHandler := httpserver.NewTransactionHandler(pool, logger, validate, activity)
	migrationHandler := httpserver.NewMigrationHandler(pool, logger, validate, executor, m)

	server := httpserver.New(cfg, logger, pool, m,
		accountHandler, categoryHandler, creditCardHandler, tagHandler, transactionHandler, migrationHandler)

	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
