// Package pipeline fans extraction → classification pipelines out over a
// batch of scanned files under a bounded admission gate, with per-file
// failure isolation and fingerprint-based resumability.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/logger"
)

// Extractor produces an extraction result for one file, never an error.
type Extractor interface {
	Extract(ctx context.Context, file domain.ScannedFile) domain.ExtractionResult
}

// Classifier produces a retention decision for one extracted document,
// never an error.
type Classifier interface {
	Classify(ctx context.Context, file domain.ScannedFile, extraction domain.ExtractionResult) domain.RetentionDecision
}

// Store is the persistence collaborator. Writes are independent upserts
// keyed by fingerprint and must tolerate concurrent calls.
type Store interface {
	ProcessedFingerprints(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, record *domain.FileRecord) error
}

// Stage identifies where a file currently is in its pipeline.
type Stage string

const (
	StageExtracting  Stage = "extracting"
	StageClassifying Stage = "classifying"
	StageDone        Stage = "done"
)

// ProgressFunc receives per-file stage updates. Panics from the callback are
// swallowed; progress reporting must never disturb the pipeline.
type ProgressFunc func(file domain.ScannedFile, stage Stage)

// Config holds batch driver configuration.
type Config struct {
	Concurrency int // admission gate size; files concurrently in flight
}

// Driver processes a set of scanned files into persisted file records.
type Driver struct {
	extractor   Extractor
	classifier  Classifier
	store       Store
	log         *logger.Logger
	concurrency int
}

// NewDriver creates a batch driver.
func NewDriver(extractor Extractor, classifier Classifier, store Store, log *logger.Logger, cfg *Config) *Driver {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Driver{
		extractor:   extractor,
		classifier:  classifier,
		store:       store,
		log:         log,
		concurrency: concurrency,
	}
}

// Run processes files not yet known to the store, bounded by the admission
// gate. It returns when every launched task has either produced an outcome or
// been isolated as a failure; outcomes arrive in completion order. Files that
// failed entirely are absent from the result and stay eligible for the next
// run since no decision was persisted for them.
func (d *Driver) Run(ctx context.Context, files []domain.ScannedFile, progress ProgressFunc) ([]*domain.FileRecord, error) {
	runID := uuid.New().String()
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldRunID: runID})

	processed, err := d.store.ProcessedFingerprints(ctx)
	if err != nil {
		return nil, err
	}

	var toProcess []domain.ScannedFile
	for _, f := range files {
		if _, done := processed[f.Fingerprint]; !done {
			toProcess = append(toProcess, f)
		}
	}

	skipped := len(files) - len(toProcess)
	if skipped > 0 {
		logger.CtxInfo(ctx, "Skipping %d already-processed file(s)", skipped)
	}
	if len(toProcess) == 0 {
		logger.CtxInfo(ctx, "All files are already processed, nothing to do")
		return nil, nil
	}

	logger.CtxInfo(ctx, "Processing %d file(s) with concurrency=%d", len(toProcess), d.concurrency)

	gate := make(chan struct{}, d.concurrency)
	results := make(chan *domain.FileRecord, len(toProcess))

	var wg sync.WaitGroup
	for _, f := range toProcess {
		wg.Add(1)
		go func(file domain.ScannedFile) {
			defer wg.Done()
			d.processFile(ctx, file, gate, results, progress)
		}(f)
	}

	wg.Wait()
	close(results)

	records := make([]*domain.FileRecord, 0, len(toProcess))
	for record := range results {
		records = append(records, record)
	}

	logger.CtxInfo(ctx, "Batch completed: %d/%d file(s) produced outcomes", len(records), len(toProcess))
	return records, nil
}

// processFile runs one file end to end. The deferred recover is a last-resort
// safety net: the extractor and classifier already convert their failures to
// values, so anything caught here is a defect, logged and isolated from
// sibling tasks.
func (d *Driver) processFile(ctx context.Context, file domain.ScannedFile, gate chan struct{}, results chan<- *domain.FileRecord, progress ProgressFunc) {
	ctx = logger.WithField(ctx, logger.FieldFile, file.Path)

	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "Unexpected panic processing file: %v", r)
		}
	}()

	notify := func(stage Stage) {
		if progress == nil {
			return
		}
		// Progress updates must never crash the pipeline.
		defer func() { recover() }()
		progress(file, stage)
	}

	gate <- struct{}{}
	released := false
	release := func() {
		if !released {
			released = true
			<-gate
		}
	}
	defer release()

	notify(StageExtracting)
	logger.CtxInfo(ctx, "Extracting text")
	extraction := d.extractor.Extract(ctx, file)

	var decision domain.RetentionDecision
	if extraction.Text == "" {
		logger.CtxWarn(ctx, "Empty extraction, using fallback decision")
		decision = domain.FallbackDecision("no text extracted from document")
	} else {
		notify(StageClassifying)
		logger.CtxInfo(ctx, "Classifying")
		decision = d.classifier.Classify(ctx, file, extraction)
	}

	record := domain.NewFileRecord(file, extraction, decision, time.Now().UTC())

	// The blocking store write happens outside the admission gate so it
	// cannot hold an in-flight slot away from waiting pipelines.
	release()

	if err := d.store.Upsert(ctx, record); err != nil {
		logger.CtxError(ctx, "Failed to persist outcome: %v", err)
		return
	}

	notify(StageDone)
	logger.CtxInfo(ctx, "Processed: action=%s score=%d confidence=%.2f",
		decision.Action, decision.Score, decision.Confidence)
	results <- record
}
