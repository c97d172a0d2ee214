package models

import "github.com/Conceptual-Machines/magda-sequencer/internal/timing"

// RangeKind selects how a playback range is resolved
type RangeKind string

const (
	RangeProject RangeKind = "project"
	RangeBars    RangeKind = "bars"
)

// PlaybackRange is either the whole project or an explicit [StartBar, EndBar)
type PlaybackRange struct {
	Kind     RangeKind `json:"kind" yaml:"kind"`
	StartBar int       `json:"start_bar,omitempty" yaml:"start_bar,omitempty"`
	EndBar   int       `json:"end_bar,omitempty" yaml:"end_bar,omitempty"`
}

// WholeProject is the range covering the computed project length
func WholeProject() PlaybackRange {
	return PlaybackRange{Kind: RangeProject}
}

// BarRange is the explicit range [start, end)
func BarRange(start, end int) PlaybackRange {
	return PlaybackRange{Kind: RangeBars, StartBar: start, EndBar: end}
}

// PlaybackNoteEvent is one sounding note at an absolute tick from project start
type PlaybackNoteEvent struct {
	StartTick    int       `json:"start_tick"`
	DurationTick int       `json:"duration_tick"`
	Midi         int       `json:"midi"`
	Velocity     int       `json:"velocity"`
	TrackKind    TrackRole `json:"track_kind"`
	SourceID     string    `json:"source_id"`
	Channel      *int      `json:"channel,omitempty"`
}

// EndTick returns the tick at which the note stops sounding
func (e PlaybackNoteEvent) EndTick() int {
	return e.StartTick + e.DurationTick
}

// PlaybackPlan is the merged, time-ordered event list for one range
type PlaybackPlan struct {
	BPM         float64             `json:"bpm"`
	PPQ         int                 `json:"ppq"`
	TicksPerBar float64             `json:"ticks_per_bar"`
	StartBar    int                 `json:"start_bar"`
	EndBar      int                 `json:"end_bar"`
	Events      []PlaybackNoteEvent `json:"events"`
}

// WindowStartTick returns the first tick of the plan window
func (p *PlaybackPlan) WindowStartTick() int {
	return timing.Round(float64(p.StartBar) * p.TicksPerBar)
}

// WindowEndTick returns the tick just past the plan window
func (p *PlaybackPlan) WindowEndTick() int {
	return timing.Round(float64(p.EndBar) * p.TicksPerBar)
}

// IsEmpty reports whether the plan has nothing to play
func (p *PlaybackPlan) IsEmpty() bool {
	return len(p.Events) == 0
}

// RenderedNote is a chord tone at an absolute tick
type RenderedNote struct {
	Pitch        int `json:"pitch"`
	StartTick    int `json:"start_tick"`
	DurationTick int `json:"duration_tick"`
	Velocity     int `json:"velocity"`
}
