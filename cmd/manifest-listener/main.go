package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"manifest/internal/config"
	"manifest/internal/listener"
	"manifest/internal/logging"
	"manifest/internal/pipeline"
	"manifest/internal/storage"
)

// Runs the mailbox listener and, when INBOX_DIR is set, the drop-folder
// watcher until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc, closeAI, err := pipeline.NewProcessorFromConfig(ctx, cfg, logger)
	must(err)
	defer func() { _ = closeAI() }()

	ingestor := pipeline.NewIngestor(db, proc, pipeline.ParseOptionsFromConfig(cfg, ""), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.NewService(db, cfg, ingestor, logger).Run(gctx)
	})
	if cfg.InboxDir != "" {
		if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
			must(err)
		}
		w := listener.NewDirWatcher(cfg.InboxDir, cfg.OutputDir, cfg.MailListenerAutoExport, ingestor, logger)
		if err := w.Start(gctx); err != nil {
			must(err)
		}
		g.Go(func() error {
			if err := w.Backfill(gctx); err != nil {
				logger.Warn("inbox backfill failed", zap.Error(err))
			}
			<-w.Done()
			return nil
		})
	}

	must(g.Wait())
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
