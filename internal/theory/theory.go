// Package theory holds pitch, mode and chord tables and the parsers that
// turn roman numerals and chord symbols into MIDI pitches.
package theory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	semitonesPerOctave = 12
	degreesPerScale    = 7
	minMIDI            = 0
	maxMIDI            = 127
)

var (
	// ErrUnknownRoot means the chord symbol does not start with a known note
	ErrUnknownRoot = errors.New("unknown chord root")
	// ErrEmptySymbol means there was nothing to parse
	ErrEmptySymbol = errors.New("empty chord symbol")
)

// Note name to semitone offset from C
var noteSemitones = map[string]int{
	"C":  0,
	"C#": 1, "Db": 1,
	"D":  2,
	"D#": 3, "Eb": 3,
	"E":  4,
	"F":  5,
	"F#": 6, "Gb": 6,
	"G":  7,
	"G#": 8, "Ab": 8,
	"A":  9,
	"A#": 10, "Bb": 10,
	"B": 11,
}

var sharpNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Mode interval patterns, semitones from the tonic
var modeIntervals = map[string][]int{
	"ionian":     {0, 2, 4, 5, 7, 9, 11},
	"dorian":     {0, 2, 3, 5, 7, 9, 10},
	"phrygian":   {0, 1, 3, 5, 7, 8, 10},
	"lydian":     {0, 2, 4, 6, 7, 9, 11},
	"mixolydian": {0, 2, 4, 5, 7, 9, 10},
	"aeolian":    {0, 2, 3, 5, 7, 8, 10},
	"locrian":    {0, 1, 3, 5, 6, 8, 10},
}

var romanDegrees = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6, "VII": 7,
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5, "vi": 6, "vii": 7,
}

// PitchClass returns the semitone offset from C for a note name like "F#"
func PitchClass(name string) (int, bool) {
	pc, ok := noteSemitones[name]
	return pc, ok
}

// TonicPitchClass resolves a key tonic, treating unknown names as C
func TonicPitchClass(tonic string) int {
	pc, ok := noteSemitones[strings.TrimSpace(tonic)]
	if !ok {
		return 0
	}
	return pc
}

// ModeIntervals returns the interval pattern for mode, falling back to ionian
func ModeIntervals(mode string) []int {
	if intervals, ok := modeIntervals[strings.ToLower(mode)]; ok {
		return intervals
	}
	return modeIntervals["ionian"]
}

// IsKnownMode reports whether mode has an interval table
func IsKnownMode(mode string) bool {
	_, ok := modeIntervals[strings.ToLower(mode)]
	return ok
}

// OctaveBase returns the MIDI number of C in the given octave (C4 = 60)
func OctaveBase(octave int) int {
	return (octave + 1) * semitonesPerOctave
}

// ParseRoman splits a roman numeral like "V7" or "viidim" into its scale
// degree (1-7), whether it carries a seventh, and whether its case marks a
// minor quality. Unknown numerals resolve to degree 1.
func ParseRoman(roman string) (degree int, seventh, minor bool) {
	base := roman
	for _, token := range []string{"7", "sus", "dim", "aug"} {
		base = strings.ReplaceAll(base, token, "")
	}
	base = strings.TrimSpace(base)

	degree, ok := romanDegrees[base]
	if !ok {
		degree = 1
	}
	seventh = strings.Contains(roman, "7")
	minor = base == strings.ToLower(base)
	return degree, seventh, minor
}

// RomanChord builds root, third, fifth (and seventh when the numeral has a
// "7") from the scale of tonic/mode, every tone placed in the given octave
// and sorted ascending.
func RomanChord(roman, tonic, mode string, octave int) []int {
	degree, seventh, _ := ParseRoman(roman)
	tonicPC := TonicPitchClass(tonic)
	intervals := ModeIntervals(mode)
	base := OctaveBase(octave)
	degreeIdx := (degree - 1) % degreesPerScale

	steps := []int{0, 2, 4}
	if seventh {
		steps = append(steps, 6)
	}

	notes := make([]int, 0, len(steps))
	for _, step := range steps {
		idx := (degreeIdx + step) % degreesPerScale
		semitone := (tonicPC + intervals[idx]) % semitonesPerOctave
		notes = append(notes, base+semitone)
	}
	sort.Ints(notes)
	return notes
}

// ChordSymbol is a parsed chord name
type ChordSymbol struct {
	Root      string
	Quality   string
	Intervals []int
}

// ParseChordSymbol parses names like "C", "F#m", "Bbmaj7", "G7", "Bdim".
// Slash bass notes ("C/E") are ignored.
func ParseChordSymbol(symbol string) (ChordSymbol, error) {
	s := strings.TrimSpace(symbol)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return ChordSymbol{}, ErrEmptySymbol
	}

	root, rest, err := splitRoot(s)
	if err != nil {
		return ChordSymbol{}, fmt.Errorf("%w: %q", err, symbol)
	}

	quality := parseChordQuality(rest)
	return ChordSymbol{
		Root:      root,
		Quality:   quality,
		Intervals: buildChordIntervals(quality, parseSeventh(rest)),
	}, nil
}

// SymbolChord returns the MIDI pitches of a chord symbol rooted in octave
func SymbolChord(symbol string, octave int) ([]int, error) {
	parsed, err := ParseChordSymbol(symbol)
	if err != nil {
		return nil, err
	}

	rootMIDI := OctaveBase(octave) + noteSemitones[parsed.Root]
	notes := make([]int, 0, len(parsed.Intervals))
	for _, interval := range parsed.Intervals {
		midiNote := rootMIDI + interval
		if midiNote < minMIDI || midiNote > maxMIDI {
			continue
		}
		notes = append(notes, midiNote)
	}
	return notes, nil
}

func splitRoot(s string) (root, rest string, err error) {
	if s[0] < 'A' || s[0] > 'G' {
		return "", "", ErrUnknownRoot
	}
	root = s[:1]
	if len(s) > 1 && (s[1] == '#' || s[1] == 'b') {
		root = s[:2]
	}
	if _, ok := noteSemitones[root]; !ok {
		return "", "", ErrUnknownRoot
	}
	return root, s[len(root):], nil
}

func parseChordQuality(rest string) string {
	switch {
	case strings.HasPrefix(rest, "dim"):
		return "diminished"
	case strings.HasPrefix(rest, "aug"):
		return "augmented"
	case strings.HasPrefix(rest, "maj"), strings.HasPrefix(rest, "M"):
		return "major"
	case strings.HasPrefix(rest, "min"), strings.HasPrefix(rest, "m"):
		return "minor"
	}
	// unlisted qualities (sus2, sus4, add9, ...) voice as a major triad
	return "major"
}

func parseSeventh(rest string) string {
	if strings.Contains(rest, "maj7") || strings.Contains(rest, "M7") {
		return "maj7"
	}
	if strings.Contains(rest, "7") {
		return "7"
	}
	return ""
}

func buildChordIntervals(quality, seventh string) []int {
	var intervals []int

	switch quality {
	case "minor":
		intervals = []int{0, 3, 7}
	case "diminished":
		intervals = []int{0, 3, 6}
	case "augmented":
		intervals = []int{0, 4, 8}
	default:
		intervals = []int{0, 4, 7}
	}

	switch seventh {
	case "maj7":
		intervals = append(intervals, 11)
	case "7":
		intervals = append(intervals, 10)
	}
	return intervals
}

// NoteNameToMIDI converts a note name like "E1", "C4", "F#3", "Bb2" to a
// MIDI note number. Format: <A-G><#|b?><octave>, C4 = 60.
func NoteNameToMIDI(noteName string) (int, error) {
	if len(noteName) < 2 {
		return 0, fmt.Errorf("note name too short: %s", noteName)
	}

	letter := strings.ToUpper(noteName[:1])
	semitone, ok := noteSemitones[letter]
	if !ok {
		return 0, fmt.Errorf("invalid note letter: %s", letter)
	}

	idx := 1
	switch noteName[idx] {
	case '#':
		semitone++
		idx++
	case 'b':
		semitone--
		idx++
	}

	if idx >= len(noteName) {
		return 0, fmt.Errorf("missing octave in note name: %s", noteName)
	}

	var octave int
	if _, err := fmt.Sscanf(noteName[idx:], "%d", &octave); err != nil {
		return 0, fmt.Errorf("invalid octave in note name %s: %w", noteName, err)
	}

	midiNote := OctaveBase(octave) + semitone
	if midiNote < minMIDI {
		midiNote = minMIDI
	}
	if midiNote > maxMIDI {
		midiNote = maxMIDI
	}
	return midiNote, nil
}

// MIDIToNoteName is the inverse of NoteNameToMIDI using sharps (60 -> "C4")
func MIDIToNoteName(midiNote int) string {
	octave := midiNote/semitonesPerOctave - 1
	pc := midiNote % semitonesPerOctave
	if pc < 0 {
		pc += semitonesPerOctave
		octave--
	}
	return fmt.Sprintf("%s%d", sharpNames[pc], octave)
}
