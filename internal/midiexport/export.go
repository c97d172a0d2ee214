// Package midiexport writes playback plans as Standard MIDI Files.
package midiexport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

// General MIDI percussion channel (10, zero based)
const drumChannel = 9

var defaultChannels = map[models.TrackRole]uint8{
	models.RoleChords: 0,
	models.RoleBass:   1,
	models.RoleMelody: 2,
	models.RoleDrums:  drumChannel,
}

// ErrNilPlan is returned when there is nothing to write
var ErrNilPlan = errors.New("nil playback plan")

type trackKey struct {
	role    models.TrackRole
	channel uint8
}

type noteMsg struct {
	tick uint32
	off  bool
	key  uint8
	vel  uint8
	seq  int
}

// Write encodes plan as an SMF type 1 file: a conductor track with meter
// and tempo, then one track per (role, channel) in order of first
// appearance. Ticks are relative to the plan window start. arr may be nil;
// when set it supplies track names, programs and the time signature.
func Write(w io.Writer, plan *models.PlaybackPlan, arr *models.Arrangement) error {
	if plan == nil {
		return ErrNilPlan
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(timing.PPQ)

	num, den := uint8(4), uint8(4)
	if arr != nil && arr.TimeSignatureNum > 0 && arr.TimeSignatureDen > 0 {
		num, den = uint8(arr.TimeSignatureNum), uint8(arr.TimeSignatureDen)
	}
	bpm := plan.BPM
	if bpm <= 0 {
		bpm = timing.DefaultBPM
	}

	var conductor smf.Track
	if arr != nil && arr.ProjectName != "" {
		conductor.Add(0, smf.MetaTrackSequenceName(arr.ProjectName))
	}
	conductor.Add(0, smf.MetaMeter(num, den))
	conductor.Add(0, smf.MetaTempo(bpm))
	conductor.Close(0)
	if err := sm.Add(conductor); err != nil {
		return fmt.Errorf("error adding conductor track: %w", err)
	}

	keys, grouped := groupEvents(plan)
	windowStart := plan.WindowStartTick()
	for _, key := range keys {
		track := buildTrack(key, grouped[key], windowStart, arr)
		if err := sm.Add(track); err != nil {
			return fmt.Errorf("error adding %s track on channel %d: %w", key.role, key.channel, err)
		}
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// Bytes returns the encoded file
func Bytes(plan *models.PlaybackPlan, arr *models.Arrangement) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, plan, arr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Channel resolves the MIDI channel for an event: the track's explicit
// channel when set, otherwise a per-role default.
func Channel(ev models.PlaybackNoteEvent) uint8 {
	return resolveChannel(ev.Channel, ev.TrackKind)
}

// resolveChannel ignores explicit channels outside 0..15
func resolveChannel(explicit *int, role models.TrackRole) uint8 {
	if explicit != nil && *explicit >= 0 && *explicit < 16 {
		return uint8(*explicit)
	}
	return defaultChannels[role]
}

func groupEvents(plan *models.PlaybackPlan) ([]trackKey, map[trackKey][]models.PlaybackNoteEvent) {
	var keys []trackKey
	grouped := make(map[trackKey][]models.PlaybackNoteEvent)
	for _, ev := range plan.Events {
		key := trackKey{role: ev.TrackKind, channel: Channel(ev)}
		if _, seen := grouped[key]; !seen {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], ev)
	}
	return keys, grouped
}

func buildTrack(key trackKey, events []models.PlaybackNoteEvent, windowStart int, arr *models.Arrangement) smf.Track {
	var track smf.Track
	name, program := trackInfo(key, arr)
	track.Add(0, smf.MetaTrackSequenceName(name))
	if program > 0 && key.channel != drumChannel {
		track.Add(0, midi.ProgramChange(key.channel, uint8(program)))
	}

	msgs := make([]noteMsg, 0, 2*len(events))
	for i, ev := range events {
		start := ev.StartTick - windowStart
		if start < 0 {
			start = 0
		}
		duration := ev.DurationTick
		if duration < 1 {
			duration = 1
		}
		key := uint8(clampInt(ev.Midi, 0, 127))
		vel := uint8(clampInt(ev.Velocity, 1, 127))
		msgs = append(msgs,
			noteMsg{tick: uint32(start), key: key, vel: vel, seq: i},
			noteMsg{tick: uint32(start + duration), off: true, key: key, seq: i},
		)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		if msgs[i].off != msgs[j].off {
			return msgs[i].off
		}
		return msgs[i].seq < msgs[j].seq
	})

	var last uint32
	for _, m := range msgs {
		delta := m.tick - last
		last = m.tick
		if m.off {
			track.Add(delta, midi.NoteOff(key.channel, m.key))
		} else {
			track.Add(delta, midi.NoteOn(key.channel, m.key, m.vel))
		}
	}
	track.Close(0)
	return track
}

func trackInfo(key trackKey, arr *models.Arrangement) (string, int) {
	name := string(key.role)
	if arr == nil {
		return name, 0
	}
	for _, t := range arr.Tracks {
		role := t.Role
		if key.role == models.RoleChords && hasChords(t) {
			// chord-rendered notes carry the chords role whatever their track says
			role = models.RoleChords
		}
		if role == key.role && resolveChannel(t.MidiChannel, role) == key.channel {
			if t.Name != "" {
				name = t.Name
			}
			return name, t.MidiProgram
		}
	}
	return name, 0
}

func hasChords(t models.Track) bool {
	for _, clip := range t.Clips {
		if len(clip.ChordEvents) > 0 {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
