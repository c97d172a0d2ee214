package playback

import (
	"sort"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/theory"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

// NotesToVisualEvents places a clip's raw notes on the project timeline
func NotesToVisualEvents(track models.Track, clip models.Clip, sig timing.Signature) []models.VisualEvent {
	events := make([]models.VisualEvent, 0, len(clip.Notes))
	for _, note := range clip.Notes {
		events = append(events, models.VisualEvent{
			ID:           note.ID,
			Kind:         models.VisualNote,
			TrackID:      track.ID,
			StartTick:    absoluteTick(sig, note.StartTick, track, clip, "visual note "+note.ID),
			DurationTick: note.DurationTick,
			Pitch:        note.Pitch,
			Velocity:     note.Velocity,
			Label:        theory.MIDIToNoteName(note.Pitch),
		})
	}
	return events
}

// ChordEventsToVisualEvents places a clip's enabled chords on the project
// timeline as single blocks
func ChordEventsToVisualEvents(track models.Track, clip models.Clip, sig timing.Signature) []models.VisualEvent {
	events := make([]models.VisualEvent, 0, len(clip.ChordEvents))
	for _, ev := range clip.ChordEvents {
		if !ev.IsEnabled {
			continue
		}
		label := ev.RomanNumeral
		if label == "" {
			label = ev.ChordName
		}
		events = append(events, models.VisualEvent{
			ID:           ev.ID,
			Kind:         models.VisualChord,
			TrackID:      track.ID,
			StartTick:    absoluteTick(sig, ev.StartTick, track, clip, "visual chord "+ev.ID),
			DurationTick: ev.DurationTick,
			Label:        label,
			Intensity:    ev.Intensity,
			Metadata: &models.VisualMetadata{
				RomanNumeral: ev.RomanNumeral,
				ChordName:    ev.ChordName,
				IsEnabled:    ev.IsEnabled,
				IsLocked:     ev.IsLocked,
			},
		})
	}
	return events
}

// VisualEventsForArrangement collects every note and chord block. Mute and
// solo are ignored; this is the editor view.
func VisualEventsForArrangement(arr *models.Arrangement) []models.VisualEvent {
	sig := arr.Signature()
	var events []models.VisualEvent
	for _, track := range arr.Tracks {
		for _, clip := range track.Clips {
			events = append(events, NotesToVisualEvents(track, clip, sig)...)
			events = append(events, ChordEventsToVisualEvents(track, clip, sig)...)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTick < events[j].StartTick
	})
	return events
}

func absoluteTick(sig timing.Signature, local int, track models.Track, clip models.Clip, where string) int {
	abs := sig.ClipLocalToProject(
		float64(local),
		float64(clip.StartBar),
		float64(clip.StartOffsetTicks),
		float64(track.StartOffsetTicks),
	)
	abs, _ = timing.Sanitize(abs, where, false)
	return timing.Round(abs)
}
