package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/magda-sequencer/internal/config"
	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/metrics"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/playback"
)

var errUnknownRangeKind = errors.New("range kind must be \"project\" or \"bars\"")

// planner builds plans with the configured render options and records
// metrics for every build
type planner struct {
	cfg        *config.Config
	sentry     *metrics.SentryMetrics
	cloudwatch *metrics.Client
	stats      *metrics.EngineStats
}

func newPlanner(cfg *config.Config, cw *metrics.Client, stats *metrics.EngineStats) *planner {
	if stats == nil {
		stats = metrics.NewEngineStats()
	}
	return &planner{
		cfg:        cfg,
		sentry:     metrics.NewSentryMetrics(),
		cloudwatch: cw,
		stats:      stats,
	}
}

// build returns the result, or an HTTP status and error when the request
// cannot produce a plan
func (p *planner) build(ctx context.Context, arr *models.Arrangement, bpm float64, rng models.PlaybackRange, strict *bool) (*playback.Result, int, error) {
	if err := validateRange(rng); err != nil {
		return nil, http.StatusBadRequest, err
	}

	opts := p.cfg.RenderOptions()
	if strict != nil {
		opts.Strict = *strict
	}
	if bpm <= 0 && arr.BPM <= 0 {
		bpm = p.cfg.DefaultBPM
	}

	start := time.Now()
	result, err := playback.NewBuilder(opts).Build(arr, bpm, rng)
	duration := time.Since(start)

	if err != nil {
		p.record(ctx, 0, map[string]int{playback.IssueKind(err): 1}, duration, false)
		logger.Error("Strict plan build failed", err, logger.Fields{"project_id": arr.ProjectID})
		return nil, http.StatusUnprocessableEntity, err
	}

	p.record(ctx, len(result.Plan.Events), result.IssueCounts(), duration, true)
	logger.LogPlanBuild(ctx, duration, logger.Fields{
		"project_id": arr.ProjectID,
		"start_bar":  result.Plan.StartBar,
		"end_bar":    result.Plan.EndBar,
		"events":     len(result.Plan.Events),
		"issues":     len(result.Issues),
	})
	return result, http.StatusOK, nil
}

// record reports one build; issues is keyed by playback issue kind
func (p *planner) record(ctx context.Context, events int, issues map[string]int, duration time.Duration, success bool) {
	total := 0
	for _, n := range issues {
		total += n
	}
	p.stats.RecordBuild(events, issues, duration, success)
	p.sentry.RecordPlanBuild(ctx, events, total, duration, success)
	if p.cloudwatch != nil {
		p.cloudwatch.RecordPlanBuild(events, total, duration, success)
	}
}

func validateRange(rng models.PlaybackRange) error {
	switch rng.Kind {
	case models.RangeProject, models.RangeBars:
		return nil
	}
	return fmt.Errorf("%w, got %q", errUnknownRangeKind, rng.Kind)
}

// requestRange defaults a missing range to the whole project
func requestRange(rng *models.PlaybackRange) models.PlaybackRange {
	if rng == nil || rng.Kind == "" {
		return models.WholeProject()
	}
	return *rng
}

func midiFilename(arr *models.Arrangement) string {
	name := arr.ProjectName
	if name == "" {
		name = "arrangement"
	}
	return sanitizeFilename(name) + ".mid"
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "arrangement"
	}
	return string(out)
}
