package metrics

import (
	"sync"
	"time"
)

// EngineStats counts what the playback engine has done since start.
// It is safe for concurrent use.
type EngineStats struct {
	mu            sync.Mutex
	startedAt     time.Time
	planBuilds    int64
	failedBuilds  int64
	eventsEmitted int64
	buildTime     time.Duration
	issues        map[string]int64
	exports       int64
	exportBytes   int64
	chordRenders  int64
}

// EngineSnapshot is a point-in-time copy of EngineStats
type EngineSnapshot struct {
	StartedAt     time.Time        `json:"started_at"`
	PlanBuilds    int64            `json:"plan_builds"`
	FailedBuilds  int64            `json:"failed_builds"`
	EventsEmitted int64            `json:"events_emitted"`
	AvgBuildMs    float64          `json:"avg_build_ms"`
	IssuesByKind  map[string]int64 `json:"issues_by_kind"`
	Exports       int64            `json:"midi_exports"`
	ExportBytes   int64            `json:"midi_export_bytes"`
	ChordRenders  int64            `json:"chord_renders"`
}

func NewEngineStats() *EngineStats {
	return &EngineStats{
		startedAt: time.Now(),
		issues:    make(map[string]int64),
	}
}

// RecordBuild counts one plan build. issues is keyed by issue kind.
func (s *EngineStats) RecordBuild(events int, issues map[string]int, duration time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planBuilds++
	if !success {
		s.failedBuilds++
	}
	s.eventsEmitted += int64(events)
	s.buildTime += duration
	for kind, n := range issues {
		s.issues[kind] += int64(n)
	}
}

// RecordExport counts one MIDI file of size bytes
func (s *EngineStats) RecordExport(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports++
	s.exportBytes += int64(size)
}

// RecordChordRender counts one chord preview; a non-empty issue kind is
// tallied with the build issues
func (s *EngineStats) RecordChordRender(issueKind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chordRenders++
	if issueKind != "" {
		s.issues[issueKind]++
	}
}

func (s *EngineStats) Snapshot() EngineSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	issues := make(map[string]int64, len(s.issues))
	for kind, n := range s.issues {
		issues[kind] = n
	}
	var avg float64
	if s.planBuilds > 0 {
		avg = float64(s.buildTime.Microseconds()) / float64(s.planBuilds) / 1000
	}
	return EngineSnapshot{
		StartedAt:     s.startedAt,
		PlanBuilds:    s.planBuilds,
		FailedBuilds:  s.failedBuilds,
		EventsEmitted: s.eventsEmitted,
		AvgBuildMs:    avg,
		IssuesByKind:  issues,
		Exports:       s.exports,
		ExportBytes:   s.exportBytes,
		ChordRenders:  s.chordRenders,
	}
}
