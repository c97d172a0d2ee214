// Package render expands symbolic chord events into concrete, timed notes.
package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/rng"
	"github.com/Conceptual-Machines/magda-sequencer/internal/theory"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

const (
	defaultOctave    = 4
	defaultLowMIDI   = 48 // C3
	defaultHighMIDI  = 72 // C5
	defaultIntensity = 0.85
	baseVelocity     = 100
	minVelocity      = 1
	maxVelocity      = 127
	velocitySeedStep = 100
	semitones        = 12
)

var (
	// ErrUnresolvedChordSymbol means neither the numeral nor the chord name produced pitches
	ErrUnresolvedChordSymbol = errors.New("unresolved chord symbol")
	// ErrEmptyVoicing means voicing and range clamping removed every note
	ErrEmptyVoicing = errors.New("empty voicing")
)

// Options configure pitch placement
type Options struct {
	Octave   int  // octave the chord is built in (C4 = 60)
	LowMIDI  int  // lowest pitch kept after clamping
	HighMIDI int  // highest pitch kept after clamping
	Strict   bool // surface non-finite ticks instead of substituting 0
}

// DefaultOptions returns octave 4 and the C3..C5 range
func DefaultOptions() Options {
	return Options{
		Octave:   defaultOctave,
		LowMIDI:  defaultLowMIDI,
		HighMIDI: defaultHighMIDI,
	}
}

// Context is the arrangement-level information a chord needs
type Context struct {
	Tonic     string
	Mode      string
	Seed      int
	BPM       float64
	Signature timing.Signature
}

// Placement locates the chord's clip on the timeline
type Placement struct {
	ClipStartBar     int
	ClipOffsetTicks  int
	TrackOffsetTicks int
}

// Result holds the rendered notes. Issue, when set, explains an empty
// result and wraps ErrUnresolvedChordSymbol, ErrEmptyVoicing or
// timing.ErrInvalidTick; it never means the render failed.
type Result struct {
	Notes []models.RenderedNote
	Issue error
}

// Renderer turns chord events into notes. It holds no mutable state.
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer; zero-valued options take the defaults
func NewRenderer(opts Options) *Renderer {
	if opts.LowMIDI == 0 && opts.HighMIDI == 0 {
		opts.LowMIDI = defaultLowMIDI
		opts.HighMIDI = defaultHighMIDI
	}
	if opts.Octave == 0 {
		opts.Octave = defaultOctave
	}
	return &Renderer{opts: opts}
}

// Options returns the renderer's effective options
func (r *Renderer) Options() Options {
	return r.opts
}

// Render expands one chord event. Disabled events render nothing.
func (r *Renderer) Render(ev models.ChordEvent, ctx Context, at Placement) Result {
	if !ev.IsEnabled {
		return Result{}
	}

	pitches, err := r.ResolvePitches(ev, ctx.Tonic, ctx.Mode)
	if err != nil {
		issue := fmt.Errorf("%w: chord %s (%q): %v", ErrUnresolvedChordSymbol, ev.ID, ev.ChordName, err)
		logger.Warn("Could not resolve chord", logger.Fields{
			"chord_id":   ev.ID,
			"chord_name": ev.ChordName,
			"roman":      ev.RomanNumeral,
			"error":      err.Error(),
		})
		return Result{Issue: issue}
	}

	voiced := ApplyVoicing(pitches, ev.Voicing, ev.Inversion, r.opts.LowMIDI, r.opts.HighMIDI)
	if len(voiced) == 0 {
		logger.Warn("No notes left after voicing", logger.Fields{
			"chord_id":  ev.ID,
			"pitches":   pitches,
			"voicing":   ev.Voicing,
			"inversion": ev.Inversion,
		})
		return Result{Issue: fmt.Errorf("%w: chord %s", ErrEmptyVoicing, ev.ID)}
	}

	rawStart := ctx.Signature.ClipLocalToProject(
		float64(ev.StartTick),
		float64(at.ClipStartBar),
		float64(at.ClipOffsetTicks),
		float64(at.TrackOffsetTicks),
	)
	rawStart, err = timing.Sanitize(rawStart, "chord "+ev.ID+" start", r.opts.Strict)
	if err != nil {
		return Result{Issue: err}
	}
	baseStart := timing.Round(rawStart)

	return Result{Notes: r.schedule(ev, ctx, voiced, baseStart)}
}

// ResolvePitches prefers the roman numeral and falls back to the chord name
func (r *Renderer) ResolvePitches(ev models.ChordEvent, tonic, mode string) ([]int, error) {
	if roman := strings.TrimSpace(ev.RomanNumeral); roman != "" {
		return theory.RomanChord(roman, tonic, mode, r.opts.Octave), nil
	}
	return theory.SymbolChord(ev.ChordName, r.opts.Octave)
}

func (r *Renderer) schedule(ev models.ChordEvent, ctx Context, voiced []int, baseStart int) []models.RenderedNote {
	bpm := ctx.BPM
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		bpm = timing.DefaultBPM
	}

	strumBeats := ev.StrumBeats
	if strumBeats == 0 && ev.StrumMs > 0 {
		strumBeats = timing.MsToBeats(ev.StrumMs, bpm)
	}
	humanizeBeats := ev.HumanizeBeats
	if humanizeBeats == 0 && ev.HumanizeMs > 0 {
		humanizeBeats = timing.MsToBeats(ev.HumanizeMs, bpm)
	}
	strumTicks := timing.BeatsToTicks(strumBeats)
	humanizeTicks := timing.BeatsToTicks(humanizeBeats)

	// zero is unset; negative values clamp to the minimum velocity
	intensity := ev.Intensity
	if intensity == 0 || math.IsNaN(intensity) {
		intensity = defaultIntensity
	}

	strumSeed, humanizeSeed := rng.ChordSeeds(ctx.Seed, ev.ID)
	n := len(voiced)

	order := identity(n)
	if strumTicks > 0 {
		order = rng.Permutation(n, strumSeed)
	}

	notes := make([]models.RenderedNote, 0, n)
	for i, idx := range order {
		start := baseStart + StrumOffset(i, n, strumTicks)

		if humanizeBeats > 0 {
			offset := timing.Round((rng.Scalar(humanizeSeed+i) - 0.5) * 2 * float64(humanizeTicks))
			start = clamp(start+offset, baseStart, baseStart+ev.DurationTick)
		}

		velocity := timing.Round(baseVelocity * intensity)
		if ev.VelocityJitter > 0 {
			velocity += timing.Round((rng.Scalar(humanizeSeed+i+velocitySeedStep) - 0.5) * 2 * ev.VelocityJitter)
		}

		notes = append(notes, models.RenderedNote{
			Pitch:        voiced[idx],
			StartTick:    start,
			DurationTick: ev.DurationTick,
			Velocity:     clamp(velocity, minVelocity, maxVelocity),
		})
	}
	return notes
}

// StrumOffset is the onset offset of strum position i out of n notes:
// round(i/(n-1) * strumTicks), or 0 without a strum or with a single note.
func StrumOffset(i, n, strumTicks int) int {
	if strumTicks <= 0 || n <= 1 {
		return 0
	}
	return timing.Round(float64(i) / float64(n-1) * float64(strumTicks))
}

// ApplyVoicing applies inversion, voicing style and the [low, high] clamp.
// The result is sorted ascending without duplicates.
func ApplyVoicing(notes []int, voicing string, inversion, low, high int) []int {
	if len(notes) == 0 {
		return nil
	}

	voiced := append([]int(nil), notes...)
	for i := 0; i < inversion && i < len(notes); i++ {
		root := voiced[0]
		voiced = append(voiced[1:], root+semitones)
	}

	switch voicing {
	case models.VoicingOpen:
		for idx := range voiced {
			voiced[idx] += (idx / 3) * semitones
		}
	case models.VoicingDrop2:
		if len(voiced) >= 2 {
			voiced[1] -= semitones
		}
	}

	seen := make(map[int]bool, len(voiced))
	out := make([]int, 0, len(voiced))
	for _, note := range voiced {
		for note < low {
			note += semitones
		}
		for note > high {
			note -= semitones
		}
		if note < low || note > high || seen[note] {
			continue
		}
		seen[note] = true
		out = append(out, note)
	}
	sort.Ints(out)
	return out
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
