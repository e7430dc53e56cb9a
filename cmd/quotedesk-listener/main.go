package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"quotedesk/internal/catalog"
	"quotedesk/internal/config"
	"quotedesk/internal/connectors"
	"quotedesk/internal/layout"
	"quotedesk/internal/listener"
	"quotedesk/internal/logger"
	"quotedesk/internal/pipeline"
	"quotedesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cat, err := catalog.Load(cfg.BrandCatalogPath)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := connectors.New(ctx, cfg, cfg.MailListenerProvider)
	must(err)

	proc := pipeline.NewProcessingService(db, cfg, layout.NewClient(cfg), cat)
	must(listener.NewService(db, cfg, conn, proc).Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
