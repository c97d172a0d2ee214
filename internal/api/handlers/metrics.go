package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/magda-sequencer/internal/metrics"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

// MetricsHandler serves the engine counters kept by EngineStats
type MetricsHandler struct {
	version string
	stats   *metrics.EngineStats
}

func NewMetricsHandler(version string, stats *metrics.EngineStats) *MetricsHandler {
	if stats == nil {
		stats = metrics.NewEngineStats()
	}
	return &MetricsHandler{version: version, stats: stats}
}

type EngineInfo struct {
	PPQ        int     `json:"ppq"`
	DefaultBPM float64 `json:"default_bpm"`
}

type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	HeapAllocKB  uint64 `json:"heap_alloc_kb"`
	NumGC        uint32 `json:"num_gc"`
}

type MetricsResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Uptime   string                 `json:"uptime"`
	Engine   EngineInfo             `json:"engine"`
	Counters metrics.EngineSnapshot `json:"counters"`
	Runtime  RuntimeInfo            `json:"runtime"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	snap := h.stats.Snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, MetricsResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(snap.StartedAt).Round(time.Millisecond).String(),
		Engine: EngineInfo{
			PPQ:        timing.PPQ,
			DefaultBPM: timing.DefaultBPM,
		},
		Counters: snap,
		Runtime: RuntimeInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			HeapAllocKB:  mem.HeapAlloc / 1024,
			NumGC:        mem.NumGC,
		},
	})
}
