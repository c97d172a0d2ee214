package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/playback"
)

type VisualRequest struct {
	Arrangement *models.Arrangement `json:"arrangement" binding:"required"`
}

// VisualEvents returns editor blocks for every note and enabled chord
func VisualEvents(c *gin.Context) {
	var req VisualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := playback.VisualEventsForArrangement(req.Arrangement)
	if events == nil {
		events = []models.VisualEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
