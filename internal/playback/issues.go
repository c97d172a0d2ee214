package playback

import (
	"errors"

	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

// Issue kinds as reported by IssueKind
const (
	IssueUnresolvedChord = "unresolved_chord_symbol"
	IssueEmptyVoicing    = "empty_voicing"
	IssueInvalidTick     = "invalid_tick"
	IssueInvalidRange    = "invalid_range"
	IssueWindowViolation = "window_violation"
	IssueOther           = "other"
)

// IssueKind names the taxonomy entry err belongs to
func IssueKind(err error) string {
	switch {
	case errors.Is(err, render.ErrUnresolvedChordSymbol):
		return IssueUnresolvedChord
	case errors.Is(err, render.ErrEmptyVoicing):
		return IssueEmptyVoicing
	case errors.Is(err, timing.ErrInvalidTick):
		return IssueInvalidTick
	case errors.Is(err, ErrInvalidRange):
		return IssueInvalidRange
	case errors.Is(err, ErrWindowViolation):
		return IssueWindowViolation
	}
	return IssueOther
}

// IssueCounts tallies Issues by kind
func (r *Result) IssueCounts() map[string]int {
	counts := make(map[string]int, len(r.Issues))
	for _, issue := range r.Issues {
		counts[IssueKind(issue)]++
	}
	return counts
}
