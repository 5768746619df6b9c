package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/dash-voice/internal/adapters/mcp"
	"github.com/kirillkom/dash-voice/internal/bootstrap"
	"github.com/kirillkom/dash-voice/internal/config"
	"github.com/kirillkom/dash-voice/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// Stdout carries the MCP protocol, so logs go to stderr here.
	slog.SetDefault(logging.NewStderrJSONLogger("mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.NewStores(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer stores.Close()

	handlers := mcpadapter.NewHandlers(stores.LifecycleUC, stores.Tasks, stores.Reflections, stores.Goals)
	if err := mcpadapter.Run(handlers, version); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
