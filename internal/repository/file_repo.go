package repository

import (
	"context"
	"fmt"

	"github.com/timmy/retention/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows FileRepository.List results. Zero values mean "no
// constraint" except Limit, which callers should set to keep pages bounded.
type ListFilter struct {
	Category string
	Action   string
	MinScore int
	Limit    int
	Offset   int
}

// Summary aggregates the stored decisions for reporting.
type Summary struct {
	TotalFiles   int64            `json:"total_files"`
	TotalSize    int64            `json:"total_size"`
	AverageScore float64          `json:"average_score"`
	ByAction     map[string]int64 `json:"by_action"`
	ByCategory   map[string]int64 `json:"by_category"`
}

// FileRepository handles file record data operations.
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *FileRepository: repository instance bound to db.
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Upsert creates or updates a file record keyed by content fingerprint.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - record: file record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *FileRepository) Upsert(ctx context.Context, record *domain.FileRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		UpdateAll: true,
	}).Create(record).Error
}

// ProcessedFingerprints returns the set of fingerprints that already have a
// persisted outcome. The batch driver uses it to skip unchanged files.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[string]struct{}: fingerprint set.
//   - error: non-nil if the query fails.
func (r *FileRepository) ProcessedFingerprints(ctx context.Context) (map[string]struct{}, error) {
	var hashes []string
	if err := r.db.WithContext(ctx).
		Model(&domain.FileRecord{}).
		Pluck("fingerprint", &hashes).Error; err != nil {
		return nil, fmt.Errorf("failed to load processed fingerprints: %w", err)
	}
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return set, nil
}

// GetByFingerprint retrieves a file record by its content fingerprint.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fingerprint: content hash of the file.
// Returns:
//   - *domain.FileRecord: record if found.
//   - error: non-nil if lookup fails.
func (r *FileRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.FileRecord, error) {
	var record domain.FileRecord
	if err := r.db.WithContext(ctx).First(&record, "fingerprint = ?", fingerprint).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List retrieves file records matching the filter, highest retention score
// first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: optional category/action/score constraints plus pagination.
// Returns:
//   - []domain.FileRecord: matching records.
//   - error: non-nil if the query fails.
func (r *FileRepository) List(ctx context.Context, filter ListFilter) ([]domain.FileRecord, error) {
	query := r.db.WithContext(ctx).Model(&domain.FileRecord{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Action != "" {
		query = query.Where("suggested_action = ?", filter.Action)
	}
	if filter.MinScore > 0 {
		query = query.Where("retention_score >= ?", filter.MinScore)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var records []domain.FileRecord
	if err := query.Order("retention_score DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListByAction retrieves all file records whose suggested action matches.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - action: suggested action to filter by.
// Returns:
//   - []domain.FileRecord: matching records.
//   - error: non-nil if the query fails.
func (r *FileRepository) ListByAction(ctx context.Context, action domain.Action) ([]domain.FileRecord, error) {
	var records []domain.FileRecord
	if err := r.db.WithContext(ctx).
		Where("suggested_action = ?", action).
		Order("retention_score ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize aggregates stored decisions into per-action and per-category
// counts plus overall totals.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *Summary: aggregated view of the table.
//   - error: non-nil if any aggregation query fails.
func (r *FileRepository) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		ByAction:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	type totals struct {
		Count int64
		Size  int64
		Avg   float64
	}
	var t totals
	if err := r.db.WithContext(ctx).
		Model(&domain.FileRecord{}).
		Select("COUNT(*) as count, COALESCE(SUM(file_size), 0) as size, COALESCE(AVG(retention_score), 0) as avg").
		Scan(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate totals: %w", err)
	}
	summary.TotalFiles = t.Count
	summary.TotalSize = t.Size
	summary.AverageScore = t.Avg

	type group struct {
		Key   string
		Count int64
	}

	var byAction []group
	if err := r.db.WithContext(ctx).
		Model(&domain.FileRecord{}).
		Select("suggested_action as key, COUNT(*) as count").
		Group("suggested_action").
		Scan(&byAction).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate by action: %w", err)
	}
	for _, g := range byAction {
		summary.ByAction[g.Key] = g.Count
	}

	var byCategory []group
	if err := r.db.WithContext(ctx).
		Model(&domain.FileRecord{}).
		Select("category as key, COUNT(*) as count").
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate by category: %w", err)
	}
	for _, g := range byCategory {
		summary.ByCategory[g.Key] = g.Count
	}

	return summary, nil
}

// Delete removes a file record by fingerprint, used after a destructive
// action is applied outside a dry run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fingerprint: content hash of the record to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (r *FileRepository) Delete(ctx context.Context, fingerprint string) error {
	return r.db.WithContext(ctx).Delete(&domain.FileRecord{}, "fingerprint = ?", fingerprint).Error
}
