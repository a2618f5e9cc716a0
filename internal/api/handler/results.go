package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/retention/internal/repository"
)

// ResultsHandler serves stored retention decisions.
type ResultsHandler struct {
	files *repository.FileRepository
}

// NewResultsHandler creates a new results handler.
// Parameters:
//   - files: file record repository.
// Returns:
//   - *ResultsHandler: initialized handler.
func NewResultsHandler(files *repository.FileRepository) *ResultsHandler {
	return &ResultsHandler{files: files}
}

// ListResults handles GET /api/v1/results.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ResultsHandler) ListResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	minScore, _ := strconv.Atoi(c.DefaultQuery("min_score", "0"))

	records, err := h.files.List(c.Request.Context(), repository.ListFilter{
		Category: c.Query("category"),
		Action:   c.Query("action"),
		MinScore: minScore,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list results: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(records),
		"results": records,
	})
}

// GetSummary handles GET /api/v1/summary.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ResultsHandler) GetSummary(c *gin.Context) {
	summary, err := h.files.Summarize(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to build summary: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
