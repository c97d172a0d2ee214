// Package playback flattens an arrangement into a time-ordered PlaybackPlan
// for a bar range: mute/solo filtering, window clipping, chord rendering
// and the final merge.
package playback

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

var (
	// ErrInvalidRange means the resolved end bar is not after the start bar
	ErrInvalidRange = errors.New("invalid playback range")
	// ErrWindowViolation means an event escaped the plan window
	ErrWindowViolation = errors.New("event outside plan window")
)

// Result is a built plan plus the non-fatal issues met along the way
type Result struct {
	Plan   *models.PlaybackPlan `json:"plan"`
	Issues []error              `json:"-"`
}

// IssueMessages returns Issues as strings for JSON responses
func (r *Result) IssueMessages() []string {
	out := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		out = append(out, issue.Error())
	}
	return out
}

// Builder builds playback plans. It is safe for concurrent use.
type Builder struct {
	renderer *render.Renderer
	strict   bool
}

// NewBuilder creates a builder. opts.Strict turns non-finite ticks and
// window violations into errors.
func NewBuilder(opts render.Options) *Builder {
	return &Builder{
		renderer: render.NewRenderer(opts),
		strict:   opts.Strict,
	}
}

// Strict reports whether the builder fails on invalid ticks
func (b *Builder) Strict() bool {
	return b.strict
}

// Build flattens arr over rng. bpm overrides the arrangement tempo when
// positive. The returned error is only set in strict mode; every other
// problem lands in Result.Issues.
func (b *Builder) Build(arr *models.Arrangement, bpm float64, rng models.PlaybackRange) (*Result, error) {
	started := time.Now()
	if arr == nil {
		arr = &models.Arrangement{}
	}

	sig := arr.Signature()
	startBar, endBar := ResolveRange(arr, rng)
	plan := &models.PlaybackPlan{
		BPM:         effectiveBPM(bpm, arr.BPM),
		PPQ:         timing.PPQ,
		TicksPerBar: sig.TicksPerBar(),
		StartBar:    startBar,
		EndBar:      endBar,
		Events:      []models.PlaybackNoteEvent{},
	}
	result := &Result{Plan: plan}

	if endBar <= startBar {
		issue := fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, startBar, endBar)
		logger.Warn("Empty playback range", logger.Fields{"start_bar": startBar, "end_bar": endBar})
		result.Issues = append(result.Issues, issue)
		return result, nil
	}

	if math.IsNaN(plan.TicksPerBar) || math.IsInf(plan.TicksPerBar, 0) {
		err := timing.Check(plan.TicksPerBar, "ticks per bar")
		if b.strict {
			return nil, err
		}
		logger.Warn("Unusable time signature, returning empty plan", logger.Fields{
			"num": sig.Num,
			"den": sig.Den,
		})
		result.Issues = append(result.Issues, err)
		return result, nil
	}

	w := window{start: plan.WindowStartTick(), end: plan.WindowEndTick()}
	ctx := render.Context{
		Tonic:     arr.KeyTonic,
		Mode:      arr.Mode,
		Seed:      arr.Seed,
		BPM:       plan.BPM,
		Signature: sig,
	}

	for _, track := range VisibleTracks(arr.Tracks) {
		for _, clip := range VisibleClips(track.Clips) {
			if clip.EndBar() <= startBar || clip.StartBar >= endBar {
				continue
			}

			events, err := b.rawNotes(track, clip, sig, w)
			if err != nil {
				return nil, err
			}
			plan.Events = append(plan.Events, events...)

			events, issues, err := b.chordNotes(track, clip, ctx, w)
			if err != nil {
				return nil, err
			}
			plan.Events = append(plan.Events, events...)
			result.Issues = append(result.Issues, issues...)
		}
	}

	SortEvents(plan.Events)

	if err := CheckWindow(plan); err != nil {
		if b.strict {
			logger.Error("Playback plan escaped its window", err, logger.Fields{"project_id": arr.ProjectID})
			return nil, err
		}
		result.Issues = append(result.Issues, err)
	}

	logger.Debug("Playback plan built", logger.Fields{
		"project_id":  arr.ProjectID,
		"start_bar":   startBar,
		"end_bar":     endBar,
		"events":      len(plan.Events),
		"issues":      len(result.Issues),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return result, nil
}

type window struct {
	start, end int
}

// admit applies the clipping rule: starts outside [start, end) are
// dropped, a trailing overhang is cut at end, and nothing with a
// non-positive duration is emitted.
func (w window) admit(start, duration int) (int, bool) {
	if start < w.start || start >= w.end {
		return 0, false
	}
	if start+duration > w.end {
		duration = w.end - start
	}
	if duration <= 0 {
		return 0, false
	}
	return duration, true
}

func (b *Builder) rawNotes(track models.Track, clip models.Clip, sig timing.Signature, w window) ([]models.PlaybackNoteEvent, error) {
	events := make([]models.PlaybackNoteEvent, 0, len(clip.Notes))
	for _, note := range clip.Notes {
		abs := sig.ClipLocalToProject(
			float64(note.StartTick),
			float64(clip.StartBar),
			float64(clip.StartOffsetTicks),
			float64(track.StartOffsetTicks),
		)
		abs, err := timing.Sanitize(abs, "note "+note.ID+" start", b.strict)
		if err != nil {
			return nil, err
		}

		start := timing.Round(abs)
		duration, ok := w.admit(start, note.DurationTick)
		if !ok {
			continue
		}
		events = append(events, models.PlaybackNoteEvent{
			StartTick:    start,
			DurationTick: duration,
			Midi:         note.Pitch,
			Velocity:     note.Velocity,
			TrackKind:    track.Role,
			SourceID:     note.ID,
			Channel:      track.MidiChannel,
		})
	}
	return events, nil
}

func (b *Builder) chordNotes(track models.Track, clip models.Clip, ctx render.Context, w window) ([]models.PlaybackNoteEvent, []error, error) {
	var (
		events []models.PlaybackNoteEvent
		issues []error
	)
	at := render.Placement{
		ClipStartBar:     clip.StartBar,
		ClipOffsetTicks:  clip.StartOffsetTicks,
		TrackOffsetTicks: track.StartOffsetTicks,
	}

	for _, ev := range clip.ChordEvents {
		if !ev.IsEnabled {
			continue
		}
		chordStart := ctx.Signature.ClipLocalToProject(
			float64(ev.StartTick),
			float64(at.ClipStartBar),
			float64(at.ClipOffsetTicks),
			float64(at.TrackOffsetTicks),
		)
		// Non-finite starts go to the renderer, which owns the substitution.
		if timing.Check(chordStart, "chord") == nil {
			chordEnd := chordStart + float64(ev.DurationTick)
			if chordStart >= float64(w.end) || chordEnd <= float64(w.start) {
				continue
			}
		}

		res := b.renderer.Render(ev, ctx, at)
		if res.Issue != nil {
			if b.strict && errors.Is(res.Issue, timing.ErrInvalidTick) {
				return nil, nil, res.Issue
			}
			issues = append(issues, res.Issue)
			continue
		}

		for _, note := range res.Notes {
			duration, ok := w.admit(note.StartTick, note.DurationTick)
			if !ok {
				continue
			}
			events = append(events, models.PlaybackNoteEvent{
				StartTick:    note.StartTick,
				DurationTick: duration,
				Midi:         note.Pitch,
				Velocity:     note.Velocity,
				TrackKind:    models.RoleChords,
				SourceID:     ev.ID,
				Channel:      track.MidiChannel,
			})
		}
	}
	return events, issues, nil
}

// ProjectLengthBars is the larger of arr.Bars and the furthest clip end,
// never less than 1.
func ProjectLengthBars(arr *models.Arrangement) int {
	length := arr.Bars
	for _, track := range arr.Tracks {
		for _, clip := range track.Clips {
			if end := clip.EndBar(); end > length {
				length = end
			}
		}
	}
	if length < 1 {
		length = 1
	}
	return length
}

// ResolveRange turns a playback range into concrete [start, end) bars
func ResolveRange(arr *models.Arrangement, rng models.PlaybackRange) (int, int) {
	if rng.Kind == models.RangeBars {
		return rng.StartBar, rng.EndBar
	}
	return 0, ProjectLengthBars(arr)
}

// VisibleTracks drops muted tracks and, when anything is soloed, every
// track that is not.
func VisibleTracks(tracks []models.Track) []models.Track {
	anySolo := false
	for _, t := range tracks {
		if t.IsSoloed {
			anySolo = true
			break
		}
	}

	visible := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.IsMuted || (anySolo && !t.IsSoloed) {
			continue
		}
		visible = append(visible, t)
	}
	return visible
}

// VisibleClips applies the same mute/solo rule to the clips of one track
func VisibleClips(clips []models.Clip) []models.Clip {
	anySolo := false
	for _, c := range clips {
		if c.IsSoloed {
			anySolo = true
			break
		}
	}

	visible := make([]models.Clip, 0, len(clips))
	for _, c := range clips {
		if c.IsMuted || (anySolo && !c.IsSoloed) {
			continue
		}
		visible = append(visible, c)
	}
	return visible
}

// SortEvents orders events by start tick, then pitch. Equal keys keep
// their input order.
func SortEvents(events []models.PlaybackNoteEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartTick != events[j].StartTick {
			return events[i].StartTick < events[j].StartTick
		}
		return events[i].Midi < events[j].Midi
	})
}

// CheckWindow verifies every event starts inside the plan window and ends
// by its end tick.
func CheckWindow(plan *models.PlaybackPlan) error {
	start, end := plan.WindowStartTick(), plan.WindowEndTick()
	for i, ev := range plan.Events {
		if ev.StartTick < start || ev.StartTick >= end || ev.EndTick() > end {
			return fmt.Errorf("%w: event %d (%s) [%d, %d) not in [%d, %d)",
				ErrWindowViolation, i, ev.SourceID, ev.StartTick, ev.EndTick(), start, end)
		}
	}
	return nil
}

func effectiveBPM(requested, arrangement float64) float64 {
	for _, bpm := range []float64{requested, arrangement} {
		if bpm > 0 && !math.IsInf(bpm, 0) {
			return bpm
		}
	}
	return timing.DefaultBPM
}
