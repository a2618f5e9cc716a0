package domain

import "time"

// ScannedFile represents a file discovered during a folder scan.
// Identity for dedup purposes is the content fingerprint, not the path:
// a moved-but-unchanged file keeps its fingerprint and is skipped, while a
// changed file at the same path gets a new fingerprint and is reprocessed.
type ScannedFile struct {
	Path         string    `json:"file_path"`
	Fingerprint  string    `json:"file_hash"`
	Size         int64     `json:"file_size"`
	LastModified time.Time `json:"last_modified"`
}

// ExtractionResult is the outcome of one document extraction.
// It is always produced, even on failure: failed extractions carry an empty
// Text and an "error" key in Stats rather than an error return.
type ExtractionResult struct {
	Text  string                 `json:"text"`
	Stats map[string]interface{} `json:"stats"`
}

// FailedExtraction builds an ExtractionResult for an unrecoverable failure.
func FailedExtraction(reason string) ExtractionResult {
	return ExtractionResult{
		Text:  "",
		Stats: map[string]interface{}{"error": reason},
	}
}
