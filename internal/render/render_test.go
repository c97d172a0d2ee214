package render

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

func cMajorContext() Context {
	return Context{
		Tonic:     "C",
		Mode:      "ionian",
		Seed:      42,
		BPM:       120,
		Signature: timing.FourFour,
	}
}

func tonicChord() models.ChordEvent {
	return models.ChordEvent{
		ID:           "chord-1",
		StartTick:    0,
		DurationTick: 1920,
		RomanNumeral: "I",
		Intensity:    1.0,
		Voicing:      models.VoicingRoot,
		IsEnabled:    true,
	}
}

func pitches(notes []models.RenderedNote) []int {
	out := make([]int, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Pitch)
	}
	sort.Ints(out)
	return out
}

func offsets(notes []models.RenderedNote, base int) []int {
	out := make([]int, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.StartTick-base)
	}
	sort.Ints(out)
	return out
}

func TestRenderTonicTriad(t *testing.T) {
	r := NewRenderer(DefaultOptions())
	res := r.Render(tonicChord(), cMajorContext(), Placement{})

	require.NoError(t, res.Issue)
	require.Len(t, res.Notes, 3)
	assert.Equal(t, []int{60, 64, 67}, pitches(res.Notes))
	for _, n := range res.Notes {
		assert.Equal(t, 100, n.Velocity)
		assert.Equal(t, 0, n.StartTick)
		assert.Equal(t, 1920, n.DurationTick)
	}
}

func TestRenderDisabledChord(t *testing.T) {
	ev := tonicChord()
	ev.IsEnabled = false

	res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{})
	assert.Empty(t, res.Notes)
	assert.NoError(t, res.Issue)
}

func TestRenderPlacement(t *testing.T) {
	ev := tonicChord()
	ev.StartTick = 480

	res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{
		ClipStartBar:     2,
		ClipOffsetTicks:  10,
		TrackOffsetTicks: 5,
	})
	require.Len(t, res.Notes, 3)
	for _, n := range res.Notes {
		assert.Equal(t, 480+2*1920+10+5, n.StartTick)
	}
}

func TestRenderRomanTakesPrecedence(t *testing.T) {
	ev := tonicChord()
	ev.RomanNumeral = "V"
	ev.ChordName = "Am"

	res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{})
	require.NoError(t, res.Issue)
	assert.Equal(t, []int{62, 67, 71}, pitches(res.Notes))
}

func TestRenderChordNameFallback(t *testing.T) {
	ev := tonicChord()
	ev.RomanNumeral = ""
	ev.ChordName = "Am"

	res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{})
	require.NoError(t, res.Issue)
	// E5 folds down into the C3..C5 range
	assert.Equal(t, []int{64, 69, 72}, pitches(res.Notes))
}

func TestRenderUnresolvedSymbol(t *testing.T) {
	ev := tonicChord()
	ev.RomanNumeral = ""
	ev.ChordName = "H7"

	res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{})
	assert.Empty(t, res.Notes)
	require.Error(t, res.Issue)
	assert.True(t, errors.Is(res.Issue, ErrUnresolvedChordSymbol))
}

func TestRenderEmptyVoicing(t *testing.T) {
	ev := tonicChord()
	r := NewRenderer(Options{Octave: 4, LowMIDI: 61, HighMIDI: 62})

	res := r.Render(ev, cMajorContext(), Placement{})
	assert.Empty(t, res.Notes)
	assert.True(t, errors.Is(res.Issue, ErrEmptyVoicing))
}

func TestRenderInvalidTick(t *testing.T) {
	ctx := cMajorContext()
	ctx.Signature = timing.Signature{Num: 4, Den: 0}

	strict := NewRenderer(Options{Strict: true}).Render(tonicChord(), ctx, Placement{ClipStartBar: 1})
	assert.Empty(t, strict.Notes)
	assert.True(t, errors.Is(strict.Issue, timing.ErrInvalidTick))

	permissive := NewRenderer(Options{}).Render(tonicChord(), ctx, Placement{ClipStartBar: 1})
	require.NoError(t, permissive.Issue)
	require.Len(t, permissive.Notes, 3)
	for _, n := range permissive.Notes {
		assert.Equal(t, 0, n.StartTick)
	}
}

func TestRenderStrumBounds(t *testing.T) {
	tests := []struct {
		name      string
		beats     float64
		ms        float64
		maxOffset int
	}{
		{name: "quarter of a beat", beats: 0.25, maxOffset: 120},
		{name: "full beat", beats: 1, maxOffset: 480},
		{name: "legacy milliseconds", ms: 250, maxOffset: 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tonicChord()
			ev.StrumBeats = tt.beats
			ev.StrumMs = tt.ms

			res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{ClipStartBar: 1})
			require.Len(t, res.Notes, 3)

			got := offsets(res.Notes, 1920)
			assert.Equal(t, 0, got[0])
			assert.Equal(t, tt.maxOffset, got[len(got)-1])
			assert.Equal(t, []int{0, tt.maxOffset / 2, tt.maxOffset}, got)
			assert.Equal(t, []int{60, 64, 67}, pitches(res.Notes))
		})
	}
}

func TestRenderStrumIgnoredWhenBeatsSet(t *testing.T) {
	ev := tonicChord()
	ev.StrumBeats = 0.25
	ev.StrumMs = 1000

	res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{})
	got := offsets(res.Notes, 0)
	assert.Equal(t, 120, got[len(got)-1])
}

func TestRenderHumanizeStaysInsideChord(t *testing.T) {
	for seed := 0; seed < 50; seed++ {
		ev := tonicChord()
		ev.DurationTick = 100
		ev.HumanizeBeats = 1
		ev.StrumBeats = 0.5
		ctx := cMajorContext()
		ctx.Seed = seed

		res := NewRenderer(DefaultOptions()).Render(ev, ctx, Placement{ClipStartBar: 1})
		require.Len(t, res.Notes, 3)
		for _, n := range res.Notes {
			assert.GreaterOrEqual(t, n.StartTick, 1920)
			assert.LessOrEqual(t, n.StartTick, 1920+100)
		}
	}
}

func TestRenderVelocity(t *testing.T) {
	tests := []struct {
		name      string
		intensity float64
		expected  int
	}{
		{name: "full", intensity: 1, expected: 100},
		{name: "default when zero", intensity: 0, expected: 85},
		{name: "negative clamps to minimum", intensity: -1, expected: 1},
		{name: "small negative clamps to minimum", intensity: -0.2, expected: 1},
		{name: "clamped high", intensity: 2, expected: 127},
		{name: "clamped low", intensity: 0.004, expected: 1},
		{name: "rounds", intensity: 0.904, expected: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tonicChord()
			ev.Intensity = tt.intensity
			res := NewRenderer(DefaultOptions()).Render(ev, cMajorContext(), Placement{})
			for _, n := range res.Notes {
				assert.Equal(t, tt.expected, n.Velocity)
			}
		})
	}
}

func TestRenderVelocityJitter(t *testing.T) {
	ev := tonicChord()
	ev.VelocityJitter = 20

	for seed := 0; seed < 50; seed++ {
		ctx := cMajorContext()
		ctx.Seed = seed
		res := NewRenderer(DefaultOptions()).Render(ev, ctx, Placement{})
		for _, n := range res.Notes {
			assert.GreaterOrEqual(t, n.Velocity, 80)
			assert.LessOrEqual(t, n.Velocity, 120)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	ev := tonicChord()
	ev.RomanNumeral = "V7"
	ev.StrumBeats = 0.5
	ev.HumanizeBeats = 0.1
	ev.VelocityJitter = 10

	r := NewRenderer(DefaultOptions())
	first := r.Render(ev, cMajorContext(), Placement{ClipStartBar: 3})
	second := r.Render(ev, cMajorContext(), Placement{ClipStartBar: 3})
	assert.Equal(t, first, second)
}

func TestApplyVoicing(t *testing.T) {
	tests := []struct {
		name      string
		notes     []int
		voicing   string
		inversion int
		low, high int
		expected  []int
	}{
		{name: "root", notes: []int{60, 64, 67}, voicing: models.VoicingRoot, low: 48, high: 72, expected: []int{60, 64, 67}},
		{name: "first inversion", notes: []int{60, 64, 67}, inversion: 1, low: 48, high: 72, expected: []int{64, 67, 72}},
		{name: "inversion capped at chord size", notes: []int{60, 64, 67}, inversion: 9, low: 36, high: 96, expected: []int{72, 76, 79}},
		{name: "drop2", notes: []int{60, 64, 67}, voicing: models.VoicingDrop2, low: 48, high: 72, expected: []int{52, 60, 67}},
		{name: "open", notes: []int{60, 64, 67, 71}, voicing: models.VoicingOpen, low: 36, high: 96, expected: []int{60, 64, 67, 83}},
		{name: "smooth behaves as root", notes: []int{60, 64, 67}, voicing: models.VoicingSmooth, low: 48, high: 72, expected: []int{60, 64, 67}},
		{name: "clamp folds by octaves", notes: []int{40, 80}, low: 48, high: 72, expected: []int{52, 68}},
		{name: "duplicates collapse", notes: []int{60, 72}, low: 48, high: 60, expected: []int{60}},
		{name: "empty in empty out", notes: nil, low: 48, high: 72, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyVoicing(tt.notes, tt.voicing, tt.inversion, tt.low, tt.high)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStrumOffset(t *testing.T) {
	assert.Equal(t, 0, StrumOffset(0, 3, 120))
	assert.Equal(t, 60, StrumOffset(1, 3, 120))
	assert.Equal(t, 120, StrumOffset(2, 3, 120))
	assert.Equal(t, 0, StrumOffset(0, 1, 120))
	assert.Equal(t, 0, StrumOffset(1, 3, 0))
	assert.Equal(t, 33, StrumOffset(1, 4, 100))
}
