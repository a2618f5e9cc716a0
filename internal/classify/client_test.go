package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{Base: time.Millisecond, Cap: 2 * time.Millisecond, MaxAttempts: 2}
}

// chatServer returns the given content as the single choice of an
// OpenAI-style chat completion response.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		if req["temperature"] != float64(0) {
			t.Errorf("expected temperature 0, got %v", req["temperature"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(&Config{
		Endpoint:     srv.URL,
		APIKey:       "test-key",
		Model:        "sarvam-m",
		HTTPTimeout:  2 * time.Second,
		MaxTextChars: 2000,
		Retry:        testPolicy(),
	})
}

func sampleFile() domain.ScannedFile {
	return domain.ScannedFile{
		Path:         "/docs/contract.pdf",
		Fingerprint:  "abc123",
		Size:         2048,
		LastModified: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestClassifyValidResponse(t *testing.T) {
	srv := chatServer(t, `{"retention_score": 85, "category": "legal", "suggested_action": "retain", "confidence": 0.92, "reasoning": "signed contract"}`)
	defer srv.Close()

	d := newTestClient(srv).Classify(context.Background(), sampleFile(), domain.ExtractionResult{Text: "contract body"})

	if d.Score != 85 || d.Category != domain.CategoryLegal || d.Action != domain.ActionRetain {
		t.Errorf("unexpected decision: %+v", d)
	}
	if d.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", d.Confidence)
	}
}

func TestClassifyToleratesCodeFences(t *testing.T) {
	srv := chatServer(t, "```json\n{\"retention_score\": 10, \"category\": \"ephemeral\", \"suggested_action\": \"delete\", \"confidence\": 0.8, \"reasoning\": \"temp file\"}\n```")
	defer srv.Close()

	d := newTestClient(srv).Classify(context.Background(), sampleFile(), domain.ExtractionResult{Text: "tmp"})

	if d.Action != domain.ActionDelete || d.Score != 10 {
		t.Errorf("fenced JSON should parse, got %+v", d)
	}
}

func TestClassifyMissingFieldYieldsExactFallback(t *testing.T) {
	srv := chatServer(t, `{"retention_score": 85, "category": "legal", "suggested_action": "retain", "reasoning": "contract"}`)
	defer srv.Close()

	d := newTestClient(srv).Classify(context.Background(), sampleFile(), domain.ExtractionResult{Text: "contract body"})

	if d.Score != 50 || d.Category != domain.CategoryUnknown || d.Action != domain.ActionReview || d.Confidence != 0.0 {
		t.Errorf("expected exact fallback decision, got %+v", d)
	}
	if !strings.Contains(d.Reasoning, "confidence") {
		t.Errorf("reasoning should mention the missing field, got %q", d.Reasoning)
	}
}

func TestClassifyOutOfRangeValuesFallBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"score above range", `{"retention_score": 150, "category": "legal", "suggested_action": "retain", "confidence": 0.9, "reasoning": "x"}`},
		{"category outside set", `{"retention_score": 50, "category": "secret", "suggested_action": "retain", "confidence": 0.9, "reasoning": "x"}`},
		{"action outside set", `{"retention_score": 50, "category": "legal", "suggested_action": "purge", "confidence": 0.9, "reasoning": "x"}`},
		{"confidence above range", `{"retention_score": 50, "category": "legal", "suggested_action": "retain", "confidence": 1.2, "reasoning": "x"}`},
		{"mistyped score", `{"retention_score": "high", "category": "legal", "suggested_action": "retain", "confidence": 0.9, "reasoning": "x"}`},
		{"not json", "the document should be retained"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.content)
			defer srv.Close()

			d := newTestClient(srv).Classify(context.Background(), sampleFile(), domain.ExtractionResult{Text: "body"})
			if d.Score != 50 || d.Category != domain.CategoryUnknown || d.Action != domain.ActionReview || d.Confidence != 0.0 {
				t.Errorf("expected fallback decision, got %+v", d)
			}
			if d.Reasoning == "" {
				t.Error("fallback reasoning should carry a diagnostic")
			}
		})
	}
}

func TestClassifyHTTPFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	d := newTestClient(srv).Classify(context.Background(), sampleFile(), domain.ExtractionResult{Text: "body"})

	if d.Action != domain.ActionReview || d.Category != domain.CategoryUnknown {
		t.Errorf("expected fallback decision on HTTP failure, got %+v", d)
	}
	if !strings.Contains(d.Reasoning, "400") {
		t.Errorf("reasoning should carry the status, got %q", d.Reasoning)
	}
}
