package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/retention/internal/actions"
	"github.com/timmy/retention/internal/api/handler"
	"github.com/timmy/retention/internal/api/middleware"
	"github.com/timmy/retention/internal/logger"
	"github.com/timmy/retention/internal/repository"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	files *repository.FileRepository,
	engine *actions.Engine,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	resultsHandler := handler.NewResultsHandler(files)
	actionsHandler := handler.NewActionsHandler(files, engine)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Stored decisions
		v1.GET("/results", resultsHandler.ListResults)
		v1.GET("/summary", resultsHandler.GetSummary)

		// Apply actions
		v1.POST("/actions/apply", actionsHandler.ApplyActions)
	}

	return r
}
