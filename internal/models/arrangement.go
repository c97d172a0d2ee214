package models

import "github.com/Conceptual-Machines/magda-sequencer/internal/timing"

// TrackRole identifies what a track plays
type TrackRole string

const (
	RoleDrums  TrackRole = "drums"
	RoleChords TrackRole = "chords"
	RoleBass   TrackRole = "bass"
	RoleMelody TrackRole = "melody"
)

// Valid reports whether r is one of the known roles
func (r TrackRole) Valid() bool {
	switch r {
	case RoleDrums, RoleChords, RoleBass, RoleMelody:
		return true
	}
	return false
}

// Arrangement is a read-only snapshot of a project and everything it plays
type Arrangement struct {
	ProjectID        string  `json:"project_id" yaml:"project_id"`
	ProjectName      string  `json:"project_name" yaml:"project_name"`
	BPM              float64 `json:"bpm" yaml:"bpm"`
	TimeSignatureNum int     `json:"time_signature_num" yaml:"time_signature_num"`
	TimeSignatureDen int     `json:"time_signature_den" yaml:"time_signature_den"`
	Bars             int     `json:"bars" yaml:"bars"`
	KeyTonic         string  `json:"key_tonic" yaml:"key_tonic"`
	Mode             string  `json:"mode" yaml:"mode"`
	Seed             int     `json:"seed" yaml:"seed"`
	Tracks           []Track `json:"tracks" yaml:"tracks"`
}

// Signature returns the arrangement's time signature
func (a *Arrangement) Signature() timing.Signature {
	return timing.Signature{Num: a.TimeSignatureNum, Den: a.TimeSignatureDen}
}

// Track owns an ordered list of clips
type Track struct {
	ID               string    `json:"id" yaml:"id"`
	Name             string    `json:"name" yaml:"name"`
	Role             TrackRole `json:"role" yaml:"role"`
	MidiChannel      *int      `json:"midi_channel,omitempty" yaml:"midi_channel,omitempty"`
	MidiProgram      int       `json:"midi_program" yaml:"midi_program"`
	IsMuted          bool      `json:"is_muted" yaml:"is_muted"`
	IsSoloed         bool      `json:"is_soloed" yaml:"is_soloed"`
	StartOffsetTicks int       `json:"start_offset_ticks" yaml:"start_offset_ticks"`
	Clips            []Clip    `json:"clips" yaml:"clips"`
}

// Clip positions are in bars; note and chord ticks inside it are clip-local
type Clip struct {
	ID               string       `json:"id" yaml:"id"`
	StartBar         int          `json:"start_bar" yaml:"start_bar"`
	LengthBars       int          `json:"length_bars" yaml:"length_bars"`
	IsMuted          bool         `json:"is_muted" yaml:"is_muted"`
	IsSoloed         bool         `json:"is_soloed" yaml:"is_soloed"`
	StartOffsetTicks int          `json:"start_offset_ticks" yaml:"start_offset_ticks"`
	Notes            []Note       `json:"notes" yaml:"notes"`
	ChordEvents      []ChordEvent `json:"chord_events" yaml:"chord_events"`
}

// EndBar returns the first bar after the clip
func (c *Clip) EndBar() int {
	return c.StartBar + c.LengthBars
}

// Note is a raw pitched event
type Note struct {
	ID           string `json:"id" yaml:"id"`
	Pitch        int    `json:"pitch" yaml:"pitch"`
	Velocity     int    `json:"velocity" yaml:"velocity"`
	StartTick    int    `json:"start_tick" yaml:"start_tick"`
	DurationTick int    `json:"duration_tick" yaml:"duration_tick"`
}

// Voicing styles
const (
	VoicingRoot   = "root"
	VoicingOpen   = "open"
	VoicingDrop2  = "drop2"
	VoicingSmooth = "smooth"
)

// ChordEvent is a symbolic chord expanded into notes at render time.
// StrumMs and HumanizeMs are legacy fields used only when the matching
// beat value is zero.
type ChordEvent struct {
	ID             string  `json:"id" yaml:"id"`
	StartTick      int     `json:"start_tick" yaml:"start_tick"`
	DurationTick   int     `json:"duration_tick" yaml:"duration_tick"`
	RomanNumeral   string  `json:"roman_numeral" yaml:"roman_numeral"`
	ChordName      string  `json:"chord_name" yaml:"chord_name"`
	Intensity      float64 `json:"intensity" yaml:"intensity"`
	Voicing        string  `json:"voicing" yaml:"voicing"`
	Inversion      int     `json:"inversion" yaml:"inversion"`
	StrumBeats     float64 `json:"strum_beats" yaml:"strum_beats"`
	HumanizeBeats  float64 `json:"humanize_beats" yaml:"humanize_beats"`
	StrumMs        float64 `json:"strum_ms,omitempty" yaml:"strum_ms,omitempty"`
	HumanizeMs     float64 `json:"humanize_ms,omitempty" yaml:"humanize_ms,omitempty"`
	VelocityJitter float64 `json:"velocity_jitter" yaml:"velocity_jitter"`
	IsEnabled      bool    `json:"is_enabled" yaml:"is_enabled"`
	IsLocked       bool    `json:"is_locked" yaml:"is_locked"`
}
