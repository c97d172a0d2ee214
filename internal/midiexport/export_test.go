package midiexport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
)

type readNote struct {
	tick    uint64
	on      bool
	channel uint8
	key     uint8
	vel     uint8
}

func readNotes(t *testing.T, track smf.Track) []readNote {
	t.Helper()
	var (
		abs   uint64
		notes []readNote
	)
	for _, ev := range track {
		abs += uint64(ev.Delta)
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteOn(&ch, &key, &vel):
			notes = append(notes, readNote{tick: abs, on: true, channel: ch, key: key, vel: vel})
		case msg.GetNoteOff(&ch, &key, &vel):
			notes = append(notes, readNote{tick: abs, channel: ch, key: key})
		}
	}
	return notes
}

func channelPtr(ch int) *int {
	return &ch
}

func samplePlan() *models.PlaybackPlan {
	return &models.PlaybackPlan{
		BPM:         100,
		PPQ:         480,
		TicksPerBar: 1920,
		StartBar:    1,
		EndBar:      2,
		Events: []models.PlaybackNoteEvent{
			{StartTick: 1920, DurationTick: 240, Midi: 36, Velocity: 110, TrackKind: models.RoleDrums, SourceID: "kick"},
			{StartTick: 1920, DurationTick: 960, Midi: 60, Velocity: 90, TrackKind: models.RoleChords, SourceID: "c1", Channel: channelPtr(3)},
			{StartTick: 2160, DurationTick: 0, Midi: 38, Velocity: 100, TrackKind: models.RoleDrums, SourceID: "snare"},
		},
	}
}

func TestWriteRoundTrip(t *testing.T) {
	data, err := Bytes(samplePlan(), nil)
	require.NoError(t, err)

	sm, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)

	ticks, ok := sm.TimeFormat.(smf.MetricTicks)
	require.True(t, ok)
	assert.Equal(t, uint16(480), ticks.Resolution())

	// conductor, drums, chords
	require.Len(t, sm.Tracks, 3)

	tempos := sm.TempoChanges()
	require.NotEmpty(t, tempos)
	assert.InDelta(t, 100.0, tempos[0].BPM, 0.01)

	drums := readNotes(t, sm.Tracks[1])
	require.Len(t, drums, 4)
	assert.Equal(t, readNote{tick: 0, on: true, channel: drumChannel, key: 36, vel: 110}, drums[0])
	assert.Equal(t, readNote{tick: 240, channel: drumChannel, key: 36}, drums[1])
	assert.Equal(t, readNote{tick: 240, on: true, channel: drumChannel, key: 38, vel: 100}, drums[2])
	// zero durations are written as one tick
	assert.Equal(t, readNote{tick: 241, channel: drumChannel, key: 38}, drums[3])

	chords := readNotes(t, sm.Tracks[2])
	require.Len(t, chords, 2)
	assert.Equal(t, uint8(3), chords[0].channel)
	assert.Equal(t, uint64(960), chords[1].tick)
}

func TestWriteOffBeforeOnAtSameTick(t *testing.T) {
	plan := &models.PlaybackPlan{
		BPM:         120,
		TicksPerBar: 1920,
		StartBar:    0,
		EndBar:      1,
		Events: []models.PlaybackNoteEvent{
			{StartTick: 0, DurationTick: 480, Midi: 60, Velocity: 100, TrackKind: models.RoleMelody},
			{StartTick: 480, DurationTick: 480, Midi: 60, Velocity: 100, TrackKind: models.RoleMelody},
		},
	}
	data, err := Bytes(plan, nil)
	require.NoError(t, err)

	sm, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	notes := readNotes(t, sm.Tracks[1])
	require.Len(t, notes, 4)
	assert.True(t, notes[0].on)
	assert.False(t, notes[1].on)
	assert.Equal(t, uint64(480), notes[1].tick)
	assert.True(t, notes[2].on)
	assert.Equal(t, uint64(480), notes[2].tick)
}

func TestWriteUsesArrangementNames(t *testing.T) {
	arr := &models.Arrangement{
		ProjectName:      "Demo",
		TimeSignatureNum: 3,
		TimeSignatureDen: 4,
		Tracks: []models.Track{
			{ID: "t1", Name: "Kit", Role: models.RoleDrums},
		},
	}
	plan := samplePlan()
	plan.Events = plan.Events[:1]

	data, err := Bytes(plan, arr)
	require.NoError(t, err)
	sm, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, sm.Tracks, 2)

	var name string
	for _, ev := range sm.Tracks[1] {
		if ev.Message.GetMetaTrackName(&name) {
			break
		}
	}
	assert.Equal(t, "Kit", name)

	var num, den uint8
	for _, ev := range sm.Tracks[0] {
		if ev.Message.GetMetaMeter(&num, &den) {
			break
		}
	}
	assert.Equal(t, uint8(3), num)
	assert.Equal(t, uint8(4), den)
}

func TestWriteEmptyPlan(t *testing.T) {
	data, err := Bytes(&models.PlaybackPlan{BPM: 120, TicksPerBar: 1920, EndBar: 1}, nil)
	require.NoError(t, err)
	sm, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, sm.Tracks, 1)
}

func TestWriteNilPlan(t *testing.T) {
	_, err := Bytes(nil, nil)
	assert.ErrorIs(t, err, ErrNilPlan)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, uint8(drumChannel), Channel(models.PlaybackNoteEvent{TrackKind: models.RoleDrums}))
	assert.Equal(t, uint8(1), Channel(models.PlaybackNoteEvent{TrackKind: models.RoleBass}))
	assert.Equal(t, uint8(5), Channel(models.PlaybackNoteEvent{TrackKind: models.RoleBass, Channel: channelPtr(5)}))
	assert.Equal(t, uint8(0), Channel(models.PlaybackNoteEvent{TrackKind: models.RoleChords, Channel: channelPtr(99)}))
}

func trackMeta(t *testing.T, track smf.Track) (name string, program int) {
	t.Helper()
	program = -1
	for _, ev := range track {
		var s string
		var ch, prog uint8
		switch {
		case ev.Message.GetMetaTrackName(&s):
			name = s
		case midi.Message(ev.Message).GetProgramChange(&ch, &prog):
			program = int(prog)
		}
	}
	return name, program
}

func TestWriteOutOfRangeChannelKeepsTrackInfo(t *testing.T) {
	arr := &models.Arrangement{
		Tracks: []models.Track{
			{ID: "lead", Name: "Lead", Role: models.RoleMelody, MidiChannel: channelPtr(99), MidiProgram: 81},
			{ID: "pad", Name: "Pad", Role: models.RoleMelody, MidiProgram: 89, Clips: []models.Clip{{
				ID:          "c",
				ChordEvents: []models.ChordEvent{{ID: "ch", IsEnabled: true}},
			}}},
		},
	}
	plan := &models.PlaybackPlan{
		BPM:         120,
		TicksPerBar: 1920,
		EndBar:      1,
		Events: []models.PlaybackNoteEvent{
			{StartTick: 0, DurationTick: 480, Midi: 72, Velocity: 100, TrackKind: models.RoleMelody, SourceID: "n", Channel: channelPtr(99)},
			{StartTick: 0, DurationTick: 960, Midi: 60, Velocity: 90, TrackKind: models.RoleChords, SourceID: "ch"},
		},
	}

	data, err := Bytes(plan, arr)
	require.NoError(t, err)
	sm, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, sm.Tracks, 3)

	name, program := trackMeta(t, sm.Tracks[1])
	assert.Equal(t, "Lead", name)
	assert.Equal(t, 81, program)
	notes := readNotes(t, sm.Tracks[1])
	require.NotEmpty(t, notes)
	assert.Equal(t, uint8(2), notes[0].channel)

	name, program = trackMeta(t, sm.Tracks[2])
	assert.Equal(t, "Pad", name)
	assert.Equal(t, 89, program)
}
