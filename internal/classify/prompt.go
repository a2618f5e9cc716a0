package classify

import (
	"fmt"
	"strings"

	"github.com/timmy/retention/internal/domain"
)

// buildUserMessage composes the classification request for one document:
// file metadata, extraction stats when present, and a bounded text preview.
func buildUserMessage(file domain.ScannedFile, extraction domain.ExtractionResult, maxChars int) string {
	wordCount := statOrNA(extraction.Stats, "word_count")
	pageCount := statOrNA(extraction.Stats, "page_count")

	var b strings.Builder
	b.WriteString("Classify the following document for data retention purposes.\n\n")
	b.WriteString("**File Metadata:**\n")
	fmt.Fprintf(&b, "- Path: %s\n", file.Path)
	fmt.Fprintf(&b, "- Size: %s\n", formatFileSize(file.Size))
	fmt.Fprintf(&b, "- Last Modified: %s\n", file.LastModified.UTC().Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- Word Count: %s\n", wordCount)
	fmt.Fprintf(&b, "- Page Count: %s\n\n", pageCount)
	fmt.Fprintf(&b, "**Extracted Text Preview (first %d chars):**\n", maxChars)
	fmt.Fprintf(&b, "```\n%s\n```\n\n", truncateText(extraction.Text, maxChars))
	b.WriteString("Based on the above, provide a JSON retention decision.")
	return b.String()
}

func statOrNA(stats map[string]interface{}, key string) string {
	if v, ok := stats[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return "N/A"
}

// truncateText returns at most maxChars characters of text; truncation
// appends a note stating how many characters were omitted.
func truncateText(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + fmt.Sprintf("\n... [truncated - %d chars omitted]", len(text)-maxChars)
}

// formatFileSize returns a human-readable size string (e.g. "1.2 MB").
func formatFileSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}
