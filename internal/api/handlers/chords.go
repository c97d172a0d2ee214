package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/metrics"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/playback"
	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

type ChordHandler struct {
	cfg   *config.Config
	stats *metrics.EngineStats
}

func NewChordHandler(cfg *config.Config, stats *metrics.EngineStats) *ChordHandler {
	if stats == nil {
		stats = metrics.NewEngineStats()
	}
	return &ChordHandler{cfg: cfg, stats: stats}
}

type ChordPosition struct {
	ClipStartBar     int `json:"clip_start_bar"`
	ClipOffsetTicks  int `json:"clip_offset_ticks"`
	TrackOffsetTicks int `json:"track_offset_ticks"`
}

type RenderChordRequest struct {
	Chord         models.ChordEvent `json:"chord"`
	Tonic         string            `json:"tonic"`
	Mode          string            `json:"mode"`
	Seed          int               `json:"seed"`
	BPM           float64           `json:"bpm"`
	TimeSignature *timing.Signature `json:"time_signature"` // defaults to 4/4
	Position      ChordPosition     `json:"position"`
	Strict        *bool             `json:"strict"`
}

type RenderChordResponse struct {
	Notes []models.RenderedNote `json:"notes"`
	Issue string                `json:"issue,omitempty"`
}

// Render previews one chord event
func (h *ChordHandler) Render(c *gin.Context) {
	var req RenderChordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := h.cfg.RenderOptions()
	if req.Strict != nil {
		opts.Strict = *req.Strict
	}
	sig := timing.FourFour
	if req.TimeSignature != nil {
		sig = *req.TimeSignature
	}
	bpm := req.BPM
	if bpm <= 0 {
		bpm = h.cfg.DefaultBPM
	}

	result := render.NewRenderer(opts).Render(req.Chord, render.Context{
		Tonic:     req.Tonic,
		Mode:      req.Mode,
		Seed:      req.Seed,
		BPM:       bpm,
		Signature: sig,
	}, render.Placement{
		ClipStartBar:     req.Position.ClipStartBar,
		ClipOffsetTicks:  req.Position.ClipOffsetTicks,
		TrackOffsetTicks: req.Position.TrackOffsetTicks,
	})

	resp := RenderChordResponse{Notes: result.Notes}
	if resp.Notes == nil {
		resp.Notes = []models.RenderedNote{}
	}
	kind := ""
	if result.Issue != nil {
		resp.Issue = result.Issue.Error()
		kind = playback.IssueKind(result.Issue)
	}
	h.stats.RecordChordRender(kind)
	c.JSON(http.StatusOK, resp)
}
