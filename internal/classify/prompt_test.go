package classify

import (
	"strings"
	"testing"

	"github.com/timmy/retention/internal/domain"
)

func TestTruncateText(t *testing.T) {
	short := "brief"
	if got := truncateText(short, 2000); got != short {
		t.Errorf("short text should pass through, got %q", got)
	}

	long := strings.Repeat("a", 2500)
	got := truncateText(long, 2000)
	if !strings.HasPrefix(got, strings.Repeat("a", 2000)) {
		t.Error("truncated text should keep the first maxChars characters")
	}
	if !strings.Contains(got, "500 chars omitted") {
		t.Errorf("truncation note should state omitted count, got suffix %q", got[2000:])
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512.0 B"},
		{2048, "2.0 KB"},
		{1258291, "1.2 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tt := range tests {
		if got := formatFileSize(tt.size); got != tt.want {
			t.Errorf("formatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestBuildUserMessageIncludesMetadataAndStats(t *testing.T) {
	file := sampleFile()
	extraction := domain.ExtractionResult{
		Text: "hello world",
		Stats: map[string]interface{}{
			"word_count": 2,
		},
	}

	msg := buildUserMessage(file, extraction, 2000)

	for _, want := range []string{file.Path, "2.0 KB", "Word Count: 2", "Page Count: N/A", "hello world"} {
		if !strings.Contains(msg, want) {
			t.Errorf("user message missing %q", want)
		}
	}
}
