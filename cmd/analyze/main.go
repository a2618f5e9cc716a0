package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/timmy/retention/internal/actions"
	"github.com/timmy/retention/internal/classify"
	"github.com/timmy/retention/internal/config"
	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/extraction"
	"github.com/timmy/retention/internal/logger"
	"github.com/timmy/retention/internal/pipeline"
	"github.com/timmy/retention/internal/repository"
	"github.com/timmy/retention/internal/retry"
	"github.com/timmy/retention/internal/scanner"
	"github.com/timmy/retention/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "retention-analyze",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	scanPath := flag.String("path", "", "Folder to scan for documents")
	configPath := flag.String("config", "", "Path to config file")
	apply := flag.Bool("apply", false, "Apply suggested actions after analysis (otherwise dry run)")
	applyFilter := flag.String("actions", "", "Comma-separated action filter for -apply, e.g. delete,archive")
	flag.Parse()

	if *scanPath == "" {
		appLogger.Fatal("Missing required -path flag")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		appLogger.WithField("problems", strings.Join(errs, "; ")).Fatal("Configuration is not usable")
	}

	appLogger.WithFields(logger.Fields{
		"path":        *scanPath,
		"concurrency": cfg.Pipeline.Concurrency,
		"apply":       *apply,
	}).Info("Starting retention analysis")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	fileRepo := repository.NewFileRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	policy := retry.Policy{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: cfg.Sarvam.MaxRetries,
	}

	extractor := extraction.NewOrchestrator(&extraction.Config{
		BaseURL:      cfg.Sarvam.ParseURL,
		APIKey:       cfg.Sarvam.APIKey,
		HTTPTimeout:  cfg.Sarvam.HTTPTimeout,
		PollInterval: cfg.Extract.PollInterval,
		PollTimeout:  cfg.Extract.PollTimeout,
		Retry:        policy,
	})

	classifier := classify.NewClient(&classify.Config{
		Endpoint:     cfg.Sarvam.ChatURL,
		APIKey:       cfg.Sarvam.APIKey,
		Model:        cfg.Sarvam.Model,
		HTTPTimeout:  cfg.Sarvam.HTTPTimeout,
		MaxTextChars: cfg.Classify.MaxTextChars,
		Retry:        policy,
	})

	driver := pipeline.NewDriver(extractor, classifier, fileRepo, appLogger, &pipeline.Config{
		Concurrency: cfg.Pipeline.Concurrency,
	})

	// Scan
	files, err := scanner.ScanFolder(ctx, *scanPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Scan failed")
	}
	if len(files) == 0 {
		appLogger.Info("No supported files found, nothing to do")
		return
	}

	// Process
	progress := func(file domain.ScannedFile, stage pipeline.Stage) {
		appLogger.WithFields(logger.Fields{
			logger.FieldFile: file.Path,
			"stage":          string(stage),
		}).Debug("Progress")
	}

	records, err := driver.Run(ctx, files, progress)
	if err != nil {
		appLogger.WithError(err).Fatal("Batch run failed")
	}

	appLogger.WithFields(logger.Fields{
		"scanned":   len(files),
		"processed": len(records),
	}).Info("Analysis completed")

	// Optionally apply suggested actions. actions.dry_run in the config keeps
	// this a preview until explicitly disabled.
	if !*apply {
		return
	}

	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		archive, err = storage.NewStorage(&storage.S3Config{
			Type:      storage.StorageType(cfg.Storage.Type),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize archive storage")
		}
	}

	engine := actions.NewEngine(&actions.Config{
		DryRun:     cfg.Actions.DryRun,
		TrashDir:   cfg.Actions.TrashDir,
		ArchiveDir: cfg.Actions.ArchiveDir,
	}, archive, appLogger)

	var filter []string
	if *applyFilter != "" {
		filter = strings.Split(*applyFilter, ",")
	}

	stored, err := fileRepo.List(ctx, repository.ListFilter{})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load stored decisions")
	}

	summary := engine.ApplyAll(ctx, stored, filter)
	appLogger.WithFields(logger.Fields{
		"success": summary.Counts[actions.StatusSuccess],
		"dry_run": summary.Counts[actions.StatusDryRun],
		"skipped": summary.Counts[actions.StatusSkipped],
		"error":   summary.Counts[actions.StatusError],
	}).Info("Actions applied")
}
