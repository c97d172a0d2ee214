package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/database"
	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/metrics"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
)

// ProjectStore is the persistence the project routes need
type ProjectStore interface {
	SaveArrangement(ctx context.Context, arr *models.Arrangement) (string, error)
	LoadArrangement(ctx context.Context, id string) (*models.Arrangement, error)
	DeleteArrangement(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]database.ProjectSummary, error)
}

type ProjectHandler struct {
	store   ProjectStore
	planner *planner
}

func NewProjectHandler(store ProjectStore, cfg *config.Config, cw *metrics.Client, stats *metrics.EngineStats) *ProjectHandler {
	return &ProjectHandler{store: store, planner: newPlanner(cfg, cw, stats)}
}

// Create stores an arrangement snapshot
func (h *ProjectHandler) Create(c *gin.Context) {
	var arr models.Arrangement
	if err := c.ShouldBindJSON(&arr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.store.SaveArrangement(c.Request.Context(), &arr)
	if err != nil {
		logger.Error("Failed to save project", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save project"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// List returns project summaries
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.store.ListProjects(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list projects", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	if projects == nil {
		projects = []database.ProjectSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Get returns the stored arrangement
func (h *ProjectHandler) Get(c *gin.Context) {
	arr, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, arr)
}

// Plan builds a plan for a stored project.
// Query: start_bar and end_bar (both or neither), bpm, strict.
func (h *ProjectHandler) Plan(c *gin.Context) {
	q, ok := parsePlanQuery(c)
	if !ok {
		return
	}
	arr, ok := h.load(c)
	if !ok {
		return
	}

	result, status, err := h.planner.build(c.Request.Context(), arr, q.bpm, q.rng, q.strict)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PlanResponse{Plan: result.Plan, Issues: result.IssueMessages()})
}

// Export returns a stored project as a Standard MIDI File
func (h *ProjectHandler) Export(c *gin.Context) {
	q, ok := parsePlanQuery(c)
	if !ok {
		return
	}
	arr, ok := h.load(c)
	if !ok {
		return
	}
	exportPlan(c, h.planner, arr, q.bpm, q.rng, q.strict)
}

// Delete removes a project
func (h *ProjectHandler) Delete(c *gin.Context) {
	err := h.store.DeleteArrangement(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, database.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case err != nil:
		logger.Error("Failed to delete project", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *ProjectHandler) load(c *gin.Context) (*models.Arrangement, bool) {
	arr, err := h.store.LoadArrangement(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return nil, false
	}
	if err != nil {
		logger.Error("Failed to load project", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return nil, false
	}
	return arr, true
}

type planQuery struct {
	rng    models.PlaybackRange
	bpm    float64
	strict *bool
}

func parsePlanQuery(c *gin.Context) (planQuery, bool) {
	q := planQuery{rng: models.WholeProject()}

	startStr, hasStart := c.GetQuery("start_bar")
	endStr, hasEnd := c.GetQuery("end_bar")
	if hasStart != hasEnd {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_bar and end_bar must be given together"})
		return q, false
	}
	if hasStart {
		start, err1 := strconv.Atoi(startStr)
		end, err2 := strconv.Atoi(endStr)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_bar and end_bar must be integers"})
			return q, false
		}
		q.rng = models.BarRange(start, end)
	}

	if bpmStr := c.Query("bpm"); bpmStr != "" {
		bpm, err := strconv.ParseFloat(bpmStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bpm must be a number"})
			return q, false
		}
		q.bpm = bpm
	}

	if strictStr := c.Query("strict"); strictStr != "" {
		strict, err := strconv.ParseBool(strictStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "strict must be a boolean"})
			return q, false
		}
		q.strict = &strict
	}
	return q, true
}
