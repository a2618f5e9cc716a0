package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{Base: time.Millisecond, Cap: 2 * time.Millisecond, MaxAttempts: 2}
}

// fakeParseServer emulates the remote parse-job API for one job.
type fakeParseServer struct {
	t  *testing.T
	mu sync.Mutex

	jobID        string
	statusSeq    []string // states returned by successive status calls; last repeats
	statusCalls  int
	errorMessage string
	archive      []byte

	uploadedBody        []byte
	uploadedContentType string
	started             bool
}

func (f *fakeParseServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /job", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"job_id": f.jobID})
	})
	mux.HandleFunc("POST /job/upload-files", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobID string   `json:"job_id"`
			Files []string `json:"files"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.JobID != f.jobID || len(req.Files) != 1 {
			http.Error(w, "bad upload-files request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"upload_urls": map[string]interface{}{
				req.Files[0]: map[string]string{"file_url": "http://" + r.Host + "/upload/" + req.Files[0]},
			},
		})
	})
	mux.HandleFunc("PUT /upload/", func(w http.ResponseWriter, r *http.Request) {
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)
		f.mu.Lock()
		f.uploadedBody = body.Bytes()
		f.uploadedContentType = r.Header.Get("Content-Type")
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /job/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.started = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /job/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		idx := f.statusCalls
		if idx >= len(f.statusSeq) {
			idx = len(f.statusSeq) - 1
		}
		state := f.statusSeq[idx]
		f.statusCalls++
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"job_state":     state,
			"error_message": f.errorMessage,
		})
	})
	mux.HandleFunc("POST /job/{id}/download-files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"download_urls": map[string]interface{}{
				"result.zip": map[string]string{"file_url": "http://" + r.Host + "/download/result.zip"},
			},
		})
	})
	mux.HandleFunc("GET /download/result.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(f.archive)
	})
	return mux
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range entries {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTempFile(t *testing.T, name, content string) domain.ScannedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return domain.ScannedFile{Path: path, Fingerprint: "fp-" + name, Size: int64(len(content))}
}

func newTestOrchestrator(srv *httptest.Server, pollTimeout time.Duration) *Orchestrator {
	return NewOrchestrator(&Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		HTTPTimeout:  2 * time.Second,
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  pollTimeout,
		Retry:        testPolicy(),
	})
}

func TestExtractHappyPath(t *testing.T) {
	fake := &fakeParseServer{
		t:         t,
		jobID:     "job-42",
		statusSeq: []string{"Running", "Completed"},
		archive:   buildZip(t, map[string]string{"a.json": `{"k":"v"}`, "b.md": "# extracted text"}),
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	file := writeTempFile(t, "invoice.pdf", "%PDF-1.4 fake")
	result := newTestOrchestrator(srv, time.Second).Extract(context.Background(), file)

	if result.Text != "# extracted text" {
		t.Errorf("expected markdown entry preferred, got %q", result.Text)
	}
	if result.Stats["job_id"] != "job-42" {
		t.Errorf("expected job_id in stats, got %v", result.Stats["job_id"])
	}
	if result.Stats["status"] != "completed" {
		t.Errorf("expected completed status, got %v", result.Stats["status"])
	}
	if fake.uploadedContentType != "application/pdf" {
		t.Errorf("expected application/pdf upload, got %q", fake.uploadedContentType)
	}
	if string(fake.uploadedBody) != "%PDF-1.4 fake" {
		t.Errorf("uploaded bytes mismatch: %q", fake.uploadedBody)
	}
	if !fake.started {
		t.Error("job was never started")
	}
}

func TestExtractMissingJobIDIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	file := writeTempFile(t, "doc.pdf", "content")
	result := newTestOrchestrator(srv, time.Second).Extract(context.Background(), file)

	if result.Text != "" {
		t.Errorf("expected empty text, got %q", result.Text)
	}
	diag, _ := result.Stats["error"].(string)
	if !strings.Contains(diag, "missing job id in response") {
		t.Errorf("expected missing-job-id diagnostic, got %q", diag)
	}
}

func TestExtractRemoteFailureCarriesMessage(t *testing.T) {
	fake := &fakeParseServer{
		t:            t,
		jobID:        "job-9",
		statusSeq:    []string{"Failed"},
		errorMessage: "unsupported file format",
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	file := writeTempFile(t, "doc.pdf", "content")
	result := newTestOrchestrator(srv, time.Second).Extract(context.Background(), file)

	diag, _ := result.Stats["error"].(string)
	if !strings.Contains(diag, "unsupported file format") {
		t.Errorf("expected remote error message in diagnostic, got %q", diag)
	}
}

func TestExtractPollTimeoutForcesTimedOut(t *testing.T) {
	fake := &fakeParseServer{
		t:         t,
		jobID:     "job-stuck",
		statusSeq: []string{"Running"},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	file := writeTempFile(t, "doc.pdf", "content")
	budget := 60 * time.Millisecond
	start := time.Now()
	result := newTestOrchestrator(srv, budget).Extract(context.Background(), file)
	elapsed := time.Since(start)

	if elapsed < budget {
		t.Errorf("polling stopped before the budget: %s < %s", elapsed, budget)
	}
	diag, _ := result.Stats["error"].(string)
	if !strings.Contains(diag, "timed out") {
		t.Errorf("expected timeout diagnostic, got %q", diag)
	}
}

func TestExtractUnreadableFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no remote call should happen for an unreadable file")
	}))
	defer srv.Close()

	file := domain.ScannedFile{Path: filepath.Join(t.TempDir(), "missing.pdf")}
	result := newTestOrchestrator(srv, time.Second).Extract(context.Background(), file)

	diag, _ := result.Stats["error"].(string)
	if !strings.Contains(diag, "cannot read file") {
		t.Errorf("expected read diagnostic, got %q", diag)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"scan.pdf", "application/pdf"},
		{"SCAN.PDF", "application/pdf"},
		{"photo.jpg", "application/octet-stream"},
		{"notes", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentTypeFor(tt.name); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
