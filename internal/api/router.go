package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/magda-sequencer/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/magda-sequencer/internal/api/middleware"
	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/database"
	"github.com/Conceptual-Machines/magda-sequencer/internal/metrics"
)

// SetupRouter wires every route. db may be nil, which leaves out the
// project routes; cw may be nil.
func SetupRouter(db *gorm.DB, cfg *config.Config, cw *metrics.Client, version string) *gin.Engine {
	var store handlers.ProjectStore
	if db != nil {
		store = database.NewStore(db)
	}
	return newRouter(db, store, cfg, cw, version)
}

func newRouter(db *gorm.DB, store handlers.ProjectStore, cfg *config.Config, cw *metrics.Client, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	stats := metrics.NewEngineStats()
	metricsHandler := handlers.NewMetricsHandler(version, stats)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	v1 := router.Group("/api/v1")
	if cfg.IsGatewayMode() {
		v1.Use(apimiddleware.GatewayAuth())
	} else {
		v1.Use(apimiddleware.NoAuth())
	}
	{
		playbackHandler := handlers.NewPlaybackHandler(cfg, cw, stats)
		v1.POST("/playback/plan", playbackHandler.Plan)
		v1.POST("/playback/export", playbackHandler.Export)

		chordHandler := handlers.NewChordHandler(cfg, stats)
		v1.POST("/chords/render", chordHandler.Render)

		v1.POST("/arrangement/visual", handlers.VisualEvents)

		// Stored projects (only with a database)
		if store != nil {
			projectHandler := handlers.NewProjectHandler(store, cfg, cw, stats)
			v1.POST("/projects", projectHandler.Create)
			v1.GET("/projects", projectHandler.List)
			v1.GET("/projects/:id", projectHandler.Get)
			v1.GET("/projects/:id/plan", projectHandler.Plan)
			v1.GET("/projects/:id/export", projectHandler.Export)
			v1.DELETE("/projects/:id", projectHandler.Delete)
		}
	}

	return router
}
