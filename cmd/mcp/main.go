package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/order-status-assistant/internal/adapters/mcp"
	"github.com/kirillkom/order-status-assistant/internal/bootstrap"
	"github.com/kirillkom/order-status-assistant/internal/config"
	"github.com/kirillkom/order-status-assistant/internal/observability/logging"
)

const serviceName = "order-status-mcp"

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	slog.SetDefault(logging.New(os.Stderr, serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("mcp_serving_stdio", "records", app.Store.Len())
	if err := server.ServeStdio(mcpadapter.NewServer(app.Assistant)); err != nil {
		slog.Error("mcp_server_failed", "error", err.Error())
	}
}
