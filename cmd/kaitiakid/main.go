package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"kaitiaki/internal/config"
	"kaitiaki/internal/daemon"
	"kaitiaki/internal/dispatch"
	"kaitiaki/internal/docstore"
	"kaitiaki/internal/logging"
	"kaitiaki/internal/processors"
	"kaitiaki/internal/queue"
	"kaitiaki/internal/scanner"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger.Info("configuration loaded", logging.String("path", resolvedPath))

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}
	defer store.Close()

	docs := docstore.NewFSStore(cfg.IntakeDir, cfg.ArchiveDir, cfg.Extensions)
	scan := scanner.New(docs, store, cfg, logger)

	dispatcher := dispatch.New(store, cfg, logger)
	dispatcher.Register(queue.TaskDocumentProcess, processors.NewDocumentProcessor(store, cfg, logger))
	dispatcher.Register(queue.TaskAuditDocument, processors.NewAuditProcessor(store, logger))
	dispatcher.Register(queue.TaskIndexDocument, processors.NewIndexProcessor(store, logger))
	dispatcher.Register(queue.TaskAnalyzeDocument, processors.NewAnalyzeProcessor(store, logger))

	d, err := daemon.New(cfg, store, scan, dispatcher, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("kaitiakid shutting down")
	d.Stop()
}
