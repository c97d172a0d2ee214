package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/metrics"
	"github.com/Conceptual-Machines/magda-sequencer/internal/midiexport"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
)

const contentTypeMIDI = "audio/midi"

type PlaybackHandler struct {
	planner *planner
}

func NewPlaybackHandler(cfg *config.Config, cw *metrics.Client, stats *metrics.EngineStats) *PlaybackHandler {
	return &PlaybackHandler{planner: newPlanner(cfg, cw, stats)}
}

type PlanRequest struct {
	Arrangement *models.Arrangement   `json:"arrangement" binding:"required"`
	BPM         float64               `json:"bpm"`
	Range       *models.PlaybackRange `json:"range"`  // defaults to the whole project
	Strict      *bool                 `json:"strict"` // overrides STRICT_TICKS
}

type PlanResponse struct {
	Plan   *models.PlaybackPlan `json:"plan"`
	Issues []string             `json:"issues"`
}

// Plan builds a playback plan for an inline arrangement
func (h *PlaybackHandler) Plan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, status, err := h.planner.build(c.Request.Context(), req.Arrangement, req.BPM, requestRange(req.Range), req.Strict)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, PlanResponse{Plan: result.Plan, Issues: result.IssueMessages()})
}

// Export builds a plan and returns it as a Standard MIDI File
func (h *PlaybackHandler) Export(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exportPlan(c, h.planner, req.Arrangement, req.BPM, requestRange(req.Range), req.Strict)
}

func exportPlan(c *gin.Context, p *planner, arr *models.Arrangement, bpm float64, rng models.PlaybackRange, strict *bool) {
	result, status, err := p.build(c.Request.Context(), arr, bpm, rng, strict)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	data, err := midiexport.Bytes(result.Plan, arr)
	if err != nil {
		fields := logger.WithContext(c)
		fields["project_id"] = arr.ProjectID
		logger.Error("MIDI export failed", err, fields)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export MIDI"})
		return
	}
	p.sentry.RecordExport(c.Request.Context(), len(data))
	p.stats.RecordExport(len(data))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", midiFilename(arr)))
	c.Data(http.StatusOK, contentTypeMIDI, data)
}
