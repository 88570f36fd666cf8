package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kirillkom/order-status-assistant/internal/bootstrap"
	"github.com/kirillkom/order-status-assistant/internal/config"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/records"
	"github.com/kirillkom/order-status-assistant/internal/observability/logging"
)

const serviceName = "order-status-importer"

// importer copies the records workbook (RECORDS_PATH) into the Postgres orders
// table (RECORDS_POSTGRES_DSN) and announces the change on NATS when configured.
func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("import_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	dsn := strings.TrimSpace(cfg.RecordsPostgresDSN)
	if dsn == "" {
		return errors.New("RECORDS_POSTGRES_DSN is required")
	}

	columns, err := bootstrap.ColumnMap(cfg)
	if err != nil {
		return err
	}
	source, err := records.NewFileSource(cfg.RecordsPath, cfg.RecordsSheet, columns)
	if err != nil {
		return err
	}
	loaded, err := source.Load(ctx)
	if err != nil {
		return err
	}

	app := &bootstrap.App{Config: cfg}
	defer app.Close()
	repo, err := app.OpenOrderRepository(ctx, dsn)
	if err != nil {
		return err
	}

	importCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	written, err := repo.ReplaceAll(importCtx, loaded)
	if err != nil {
		return err
	}
	slog.Info("records_imported", "source", cfg.RecordsPath, "count", written)

	if strings.TrimSpace(cfg.NATSURL) == "" {
		return nil
	}
	bus, err := nats.Connect(cfg.NATSURL, nats.Options{RecordsChangedSubject: cfg.NATSRecordsSubject})
	if err != nil {
		return err
	}
	defer bus.Close()

	return bus.PublishRecordsChanged(ctx, nats.RecordsChanged{
		Source:    filepath.Base(cfg.RecordsPath),
		Count:     written,
		ChangedAt: time.Now().UTC(),
	})
}
