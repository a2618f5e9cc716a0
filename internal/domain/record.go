package domain

import "time"

// textPreviewLimit caps how much extracted text is persisted per file.
// Full document text never lands in the database.
const textPreviewLimit = 500

// FileRecord is the persisted processing outcome for one file.
// Created once per file per batch run and never mutated afterward; a new run
// over a changed file supersedes the row via upsert keyed by fingerprint.
type FileRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FilePath      string    `gorm:"type:text;not null;index:idx_files_path" json:"file_path"`
	Fingerprint   string    `gorm:"type:text;not null;uniqueIndex:idx_files_hash" json:"file_hash"`
	FileSize      int64     `json:"file_size"`
	LastModified  time.Time `json:"last_modified"`
	ExtractedText string    `gorm:"type:text" json:"extracted_text"`
	Score         int       `gorm:"column:retention_score;index:idx_files_score" json:"retention_score"`
	Category      Category  `gorm:"type:text;index:idx_files_category" json:"category"`
	Action        Action    `gorm:"column:suggested_action;type:text;index:idx_files_action" json:"suggested_action"`
	Confidence    float64   `json:"confidence"`
	Reasoning     string    `gorm:"type:text" json:"reasoning"`
	ProcessedAt   time.Time `json:"processed_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for FileRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FileRecord) TableName() string {
	return "files"
}

// NewFileRecord assembles the persisted record from the pieces produced by
// one pipeline run over a single file.
func NewFileRecord(f ScannedFile, extraction ExtractionResult, decision RetentionDecision, processedAt time.Time) *FileRecord {
	preview := extraction.Text
	if len(preview) > textPreviewLimit {
		preview = preview[:textPreviewLimit]
	}
	return &FileRecord{
		FilePath:      f.Path,
		Fingerprint:   f.Fingerprint,
		FileSize:      f.Size,
		LastModified:  f.LastModified,
		ExtractedText: preview,
		Score:         decision.Score,
		Category:      decision.Category,
		Action:        decision.Action,
		Confidence:    decision.Confidence,
		Reasoning:     decision.Reasoning,
		ProcessedAt:   processedAt,
	}
}
