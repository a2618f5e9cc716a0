package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/retention/internal/actions"
	"github.com/timmy/retention/internal/repository"
)

// ActionsHandler applies retention decisions through the HTTP API.
type ActionsHandler struct {
	files  *repository.FileRepository
	engine *actions.Engine
}

// NewActionsHandler creates a new actions handler.
// Parameters:
//   - files: file record repository.
//   - engine: action engine, configured with the service's dry-run mode.
// Returns:
//   - *ActionsHandler: initialized handler.
func NewActionsHandler(files *repository.FileRepository, engine *actions.Engine) *ActionsHandler {
	return &ActionsHandler{files: files, engine: engine}
}

type applyRequest struct {
	Actions  []string `json:"actions"`
	MinScore int      `json:"min_score"`
	DryRun   bool     `json:"dry_run"` // forces a preview regardless of server mode
}

// ApplyActions handles POST /api/v1/actions/apply.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ActionsHandler) ApplyActions(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	records, err := h.files.List(c.Request.Context(), repository.ListFilter{MinScore: req.MinScore})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load records: " + err.Error(),
		})
		return
	}

	engine := h.engine
	if req.DryRun {
		engine = engine.Preview()
	}

	summary := engine.ApplyAll(c.Request.Context(), records, req.Actions)
	c.JSON(http.StatusOK, summary)
}
