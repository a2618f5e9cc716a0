package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/retention/internal/actions"
	"github.com/timmy/retention/internal/api/middleware"
	"github.com/timmy/retention/internal/config"
	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/logger"
	"github.com/timmy/retention/internal/repository"
)

func testRouter(t *testing.T) (*gin.Engine, *repository.FileRepository) {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "api.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Minute,
		AutoMigrate:     true,
	})
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	repo := repository.NewFileRepository(db)
	engine := actions.NewEngine(&actions.Config{DryRun: true}, nil, logger.New(nil))
	return SetupRouter(repo, engine, logger.New(nil), "test", middleware.CORSConfig{AllowAllOrigins: true}), repo
}

func seedRecord(t *testing.T, repo *repository.FileRepository, path, hash string, score int, action domain.Action) {
	t.Helper()
	rec := domain.NewFileRecord(
		domain.ScannedFile{Path: path, Fingerprint: hash, Size: 100, LastModified: time.Now().UTC()},
		domain.ExtractionResult{Text: "x"},
		domain.RetentionDecision{Score: score, Category: domain.CategoryLegal, Action: action, Confidence: 0.9, Reasoning: "r"},
		time.Now().UTC(),
	)
	if err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestListResultsFiltersByAction(t *testing.T) {
	router, repo := testRouter(t)
	seedRecord(t, repo, "/docs/a.pdf", "h1", 90, domain.ActionRetain)
	seedRecord(t, repo, "/docs/b.pdf", "h2", 20, domain.ActionDelete)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/results?action=delete", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Total   int                 `json:"total"`
		Results []domain.FileRecord `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if body.Total != 1 || body.Results[0].Fingerprint != "h2" {
		t.Errorf("unexpected filter result: %+v", body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	router, repo := testRouter(t)
	seedRecord(t, repo, "/docs/a.pdf", "h1", 90, domain.ActionRetain)
	seedRecord(t, repo, "/docs/b.pdf", "h2", 30, domain.ActionDelete)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary repository.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if summary.TotalFiles != 2 {
		t.Errorf("expected 2 total files, got %d", summary.TotalFiles)
	}
	if summary.ByAction["retain"] != 1 {
		t.Errorf("unexpected action counts: %v", summary.ByAction)
	}
}

func TestApplyActionsDryRun(t *testing.T) {
	router, repo := testRouter(t)
	seedRecord(t, repo, "/docs/b.pdf", "h2", 20, domain.ActionDelete)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/apply", strings.NewReader(`{"actions": ["delete"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary actions.ApplySummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if summary.Counts[actions.StatusDryRun] != 1 {
		t.Errorf("expected one dry_run result, got %v", summary.Counts)
	}
}

func TestApplyActionsRejectsBadBody(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/apply", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
