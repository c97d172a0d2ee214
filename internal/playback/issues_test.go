package playback

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

func TestIssueKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: chord x", render.ErrUnresolvedChordSymbol), IssueUnresolvedChord},
		{fmt.Errorf("%w: chord x", render.ErrEmptyVoicing), IssueEmptyVoicing},
		{fmt.Errorf("note n: %w", timing.ErrInvalidTick), IssueInvalidTick},
		{fmt.Errorf("%w: [3, 3)", ErrInvalidRange), IssueInvalidRange},
		{ErrWindowViolation, IssueWindowViolation},
		{errors.New("disk full"), IssueOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IssueKind(tt.err), tt.err.Error())
	}
}

func TestIssueCounts(t *testing.T) {
	arr := newArrangement(chordTrack("keys", 0, 1,
		models.ChordEvent{ID: "a", DurationTick: 480, ChordName: "Q", IsEnabled: true},
		models.ChordEvent{ID: "b", StartTick: 960, DurationTick: 480, ChordName: "Zz", IsEnabled: true},
		models.ChordEvent{ID: "c", StartTick: 1440, DurationTick: 480, ChordName: "C", IsEnabled: true},
	))

	res := build(t, arr, models.WholeProject())
	assert.Equal(t, map[string]int{IssueUnresolvedChord: 2}, res.IssueCounts())

	res = build(t, arr, models.BarRange(2, 2))
	assert.Equal(t, map[string]int{IssueInvalidRange: 1}, res.IssueCounts())
}
