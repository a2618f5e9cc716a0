// Package actions applies retention decisions to files on disk. Nothing here
// is destructive: "delete" relocates into a trash folder, never rm.
package actions

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/logger"
	"github.com/timmy/retention/internal/storage"
)

// Status values for a single applied action.
const (
	StatusDryRun  = "dry_run"
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// ActionResult is the outcome of applying one record's suggested action.
type ActionResult struct {
	FilePath    string `json:"file_path"`
	Action      string `json:"action"`
	Status      string `json:"status"`
	Destination string `json:"destination,omitempty"`
	ArchiveURL  string `json:"archive_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ApplySummary aggregates a batch of applied actions by status.
type ApplySummary struct {
	Counts  map[string]int `json:"summary"`
	Results []ActionResult `json:"results"`
}

// Config holds action engine settings. TrashDir and ArchiveDir are folder
// names created as siblings of each affected file.
type Config struct {
	DryRun     bool
	TrashDir   string
	ArchiveDir string
}

// Engine applies retention decisions. An optional object storage backend
// receives a copy of each archived file before the local move.
type Engine struct {
	dryRun     bool
	trashDir   string
	archiveDir string
	archive    storage.ObjectStorage
	log        *logger.Logger
}

// NewEngine creates an action engine.
// Parameters:
//   - cfg: dry-run flag and destination folder names.
//   - archive: optional object storage for archived copies; nil disables uploads.
//   - log: structured logger.
// Returns:
//   - *Engine: configured engine.
func NewEngine(cfg *Config, archive storage.ObjectStorage, log *logger.Logger) *Engine {
	trashDir := cfg.TrashDir
	if trashDir == "" {
		trashDir = ".trash"
	}
	archiveDir := cfg.ArchiveDir
	if archiveDir == "" {
		archiveDir = ".archive"
	}
	return &Engine{
		dryRun:     cfg.DryRun,
		trashDir:   trashDir,
		archiveDir: archiveDir,
		archive:    archive,
		log:        log,
	}
}

// Preview returns a copy of the engine forced into dry-run mode.
func (e *Engine) Preview() *Engine {
	preview := *e
	preview.dryRun = true
	return &preview
}

// ApplyAction applies one record's suggested action.
//
// delete moves the file into the trash folder, archive uploads a copy when
// object storage is configured and then moves into the archive folder,
// retain is a no-op, review only flags.
func (e *Engine) ApplyAction(ctx context.Context, record *domain.FileRecord) ActionResult {
	switch record.Action {
	case domain.ActionDelete:
		return e.moveFile(record.FilePath, e.trashDir, string(domain.ActionDelete))

	case domain.ActionArchive:
		result := e.moveFile(record.FilePath, e.archiveDir, string(domain.ActionArchive))
		if result.Status == StatusSuccess && e.archive != nil {
			url, err := e.uploadArchiveCopy(ctx, record, result.Destination)
			if err != nil {
				logger.CtxWarn(ctx, "Archived locally but remote upload failed for %s: %v", record.FilePath, err)
				result.Error = err.Error()
			} else {
				result.ArchiveURL = url
			}
		}
		return result

	case domain.ActionRetain:
		logger.CtxDebug(ctx, "Retaining %s, no action taken", record.FilePath)
		return ActionResult{
			FilePath: record.FilePath,
			Action:   string(domain.ActionRetain),
			Status:   StatusSkipped,
		}

	case domain.ActionReview:
		logger.CtxInfo(ctx, "Flagged for review: %s", record.FilePath)
		status := StatusSkipped
		if e.dryRun {
			status = StatusDryRun
		}
		return ActionResult{
			FilePath: record.FilePath,
			Action:   string(domain.ActionReview),
			Status:   status,
		}
	}

	logger.CtxWarn(ctx, "Unknown action %q for %s, flagging for review", record.Action, record.FilePath)
	return ActionResult{
		FilePath: record.FilePath,
		Action:   string(record.Action),
		Status:   StatusSkipped,
		Error:    fmt.Sprintf("unrecognized action: %s", record.Action),
	}
}

// ApplyAll applies actions to all records, optionally filtered to a subset of
// action names.
// Parameters:
//   - ctx: context for cancellation.
//   - records: file records to process.
//   - actionFilter: when non-empty, only records with these actions are touched.
// Returns:
//   - *ApplySummary: per-status counts and individual results.
func (e *Engine) ApplyAll(ctx context.Context, records []domain.FileRecord, actionFilter []string) *ApplySummary {
	toApply := records
	if len(actionFilter) > 0 {
		wanted := make(map[string]struct{}, len(actionFilter))
		for _, a := range actionFilter {
			wanted[a] = struct{}{}
		}
		toApply = nil
		for _, r := range records {
			if _, ok := wanted[string(r.Action)]; ok {
				toApply = append(toApply, r)
			}
		}
	}

	summary := &ApplySummary{
		Counts: map[string]int{
			StatusSuccess: 0,
			StatusDryRun:  0,
			StatusSkipped: 0,
			StatusError:   0,
		},
	}
	for i := range toApply {
		result := e.ApplyAction(ctx, &toApply[i])
		summary.Results = append(summary.Results, result)
		summary.Counts[result.Status]++
	}

	mode := "APPLY"
	if e.dryRun {
		mode = "DRY RUN"
	}
	logger.CtxInfo(ctx, "[%s] %d file(s) processed: %v", mode, len(toApply), summary.Counts)
	return summary
}

// moveFile relocates source into a sibling folder named destFolder, creating
// it if needed. Name collisions get a numeric suffix. In dry-run mode the
// destination is computed but nothing is touched.
func (e *Engine) moveFile(source, destFolder, action string) ActionResult {
	destDir := filepath.Join(filepath.Dir(source), destFolder)

	if e.dryRun {
		return ActionResult{
			FilePath:    source,
			Action:      action,
			Status:      StatusDryRun,
			Destination: filepath.Join(destDir, filepath.Base(source)),
		}
	}

	if _, err := os.Stat(source); err != nil {
		return ActionResult{
			FilePath: source,
			Action:   action,
			Status:   StatusError,
			Error:    "source file not found",
		}
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return ActionResult{
			FilePath: source,
			Action:   action,
			Status:   StatusError,
			Error:    err.Error(),
		}
	}

	base := filepath.Base(source)
	destPath := filepath.Join(destDir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}

	if err := os.Rename(source, destPath); err != nil {
		e.log.WithError(err).WithField(logger.FieldFile, source).Error("Failed to move file")
		return ActionResult{
			FilePath: source,
			Action:   action,
			Status:   StatusError,
			Error:    err.Error(),
		}
	}

	e.log.WithFields(logger.Fields{logger.FieldFile: source, "destination": destPath}).Info("Moved file")
	return ActionResult{
		FilePath:    source,
		Action:      action,
		Status:      StatusSuccess,
		Destination: destPath,
	}
}

// uploadArchiveCopy pushes the archived file to object storage under a
// fingerprint-prefixed key so re-archiving the same content is idempotent.
func (e *Engine) uploadArchiveCopy(ctx context.Context, record *domain.FileRecord, localPath string) (string, error) {
	key := fmt.Sprintf("archive/%s/%s", record.Fingerprint, filepath.Base(record.FilePath))

	exists, err := e.archive.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return e.archive.GetURL(key), nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	if err := e.archive.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/octet-stream"); err != nil {
		return "", err
	}
	return e.archive.GetURL(key), nil
}
