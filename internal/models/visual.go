package models

// VisualEventKind distinguishes raw notes from chord blocks
type VisualEventKind string

const (
	VisualNote  VisualEventKind = "note"
	VisualChord VisualEventKind = "chord"
)

// VisualEvent is an editor-facing block at a project-absolute position
type VisualEvent struct {
	ID           string          `json:"id"`
	Kind         VisualEventKind `json:"kind"`
	TrackID      string          `json:"track_id,omitempty"`
	StartTick    int             `json:"start_tick"`
	DurationTick int             `json:"duration_tick"`
	Pitch        int             `json:"pitch,omitempty"`
	Velocity     int             `json:"velocity,omitempty"`
	Label        string          `json:"label,omitempty"`
	Intensity    float64         `json:"intensity,omitempty"`
	Metadata     *VisualMetadata `json:"metadata,omitempty"`
}

// VisualMetadata carries chord details for display
type VisualMetadata struct {
	RomanNumeral string `json:"roman_numeral,omitempty"`
	ChordName    string `json:"chord_name,omitempty"`
	IsEnabled    bool   `json:"is_enabled"`
	IsLocked     bool   `json:"is_locked"`
}
