package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/internal/assemble"
	"github.com/inkworks/folio/internal/document"
	"github.com/inkworks/folio/internal/notify"
	"github.com/inkworks/folio/internal/pipeline"
	"github.com/inkworks/folio/internal/recognize"
	"github.com/inkworks/folio/internal/render"
	"github.com/inkworks/folio/internal/status"
	"github.com/inkworks/folio/internal/window"
	"github.com/inkworks/folio/pkg/logger"
	"github.com/inkworks/folio/pkg/storage"
)

func main() {
	var (
		pdfPath    = flag.String("pdf", "", "path to the source document (required)")
		configPath = flag.String("config", "", "path to an optional YAML config file")
		serveState = flag.Bool("status", false, "serve run progress over HTTP")
	)
	flag.Parse()

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "usage: folio -pdf <path> [-config <file>] [-status]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *serveState {
		cfg.Status.Enabled = true
	}

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Logger.Level),
		logger.WithEncoding(cfg.Logger.Encoding),
		logger.WithOutputPaths(cfg.Logger.OutputPaths),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, *pdfPath, log); err != nil {
		log.Error("Run failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, pdfPath string, log logger.Logger) error {
	runID := uuid.New().String()
	log = log.With(logger.String("runId", runID))

	doc, err := document.Inspect(pdfPath)
	if err != nil {
		return err
	}
	log.Info("Opened document",
		logger.String("path", doc.Path),
		logger.String("title", doc.Title),
		logger.Int("pages", doc.TotalPages),
	)

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		return err
	}

	renderer, err := render.NewFitzRenderer(pdfPath, cfg.Render, log)
	if err != nil {
		return err
	}
	defer renderer.Close()

	recognizer, err := recognize.New(cfg.Recognition, log)
	if err != nil {
		return err
	}
	defer recognizer.Close()

	title := doc.Title
	if title == "" {
		title = filepath.Base(doc.Path)
	}
	assembler := assemble.NewAssembler(store, cfg.Workspace, title, doc.Author, log)
	notifier := notify.NewWebhookNotifier(cfg.Notify, log)
	controller := pipeline.NewController(cfg.Retry.MaxAttempts, cfg.Retry.DefaultQuotaWait, log)
	tracker := status.NewTracker(runID, doc.Path)

	if cfg.Status.Enabled {
		srv := status.NewServer(cfg.Status, tracker, log)
		srv.Start()
		defer srv.Shutdown()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn("Received signal, aborting run", logger.String("signal", sig.String()))
		cancel()
	}()

	p := pipeline.New(doc, window.NewBuilder(renderer), recognizer, assembler, notifier, controller, tracker, log)
	if err := p.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Run aborted; restart to resume from the next unrecorded page")
		}
		return err
	}
	return nil
}
