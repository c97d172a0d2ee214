// Package timing converts between bars, beats, ticks and seconds.
// All positions share one tick basis: PPQ ticks per quarter note.
package timing

import (
	"errors"
	"fmt"
	"math"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
)

// PPQ is the pulses-per-quarter-note resolution used everywhere.
const PPQ = 480

// DefaultBPM is used when a tempo is missing or not positive.
const DefaultBPM = 120.0

const (
	secondsPerMinute = 60.0
	msPerSecond      = 1000.0
)

// ErrInvalidTick reports a tick computation that produced NaN or ±Inf.
var ErrInvalidTick = errors.New("invalid tick")

// Signature is a time signature (numerator / denominator).
type Signature struct {
	Num int `json:"num" yaml:"num"`
	Den int `json:"den" yaml:"den"`
}

// FourFour is the common 4/4 signature.
var FourFour = Signature{Num: 4, Den: 4}

// TicksPerBar returns (Num*4/Den) * PPQ. A zero denominator yields +Inf,
// which callers catch with Check.
func (s Signature) TicksPerBar() float64 {
	quarterNotesPerBar := float64(s.Num*4) / float64(s.Den)
	return quarterNotesPerBar * PPQ
}

// BarsToTicks converts bars to ticks without rounding.
func (s Signature) BarsToTicks(bars float64) float64 {
	return bars * s.TicksPerBar()
}

// TicksToBars converts ticks to bars without rounding.
func (s Signature) TicksToBars(ticks float64) float64 {
	return ticks / s.TicksPerBar()
}

// ClipLocalToProject converts a clip-local tick into a project-absolute tick.
func (s Signature) ClipLocalToProject(localTick, clipStartBar, clipOffsetTicks, trackOffsetTicks float64) float64 {
	clipStartTicks := clipStartBar * s.TicksPerBar()
	return localTick + clipStartTicks + clipOffsetTicks + trackOffsetTicks
}

// Check returns ErrInvalidTick (wrapped with where) when tick is not finite.
func Check(tick float64, where string) error {
	if math.IsNaN(tick) || math.IsInf(tick, 0) {
		return fmt.Errorf("%w in %s: %v", ErrInvalidTick, where, tick)
	}
	return nil
}

// Sanitize validates tick. In permissive mode a non-finite value is logged
// and replaced with 0; in strict mode the error is returned alongside 0.
func Sanitize(tick float64, where string, strict bool) (float64, error) {
	err := Check(tick, where)
	if err == nil {
		return tick, nil
	}
	if strict {
		logger.Error("Invalid tick value", err, logger.Fields{"context": where})
		return 0, err
	}
	logger.Warn("Invalid tick value, substituting 0", logger.Fields{"context": where, "value": fmt.Sprintf("%v", tick)})
	return 0, nil
}

// Round rounds half toward positive infinity (2.5 -> 3, -2.5 -> -2).
// Reference renders use this rule, not math.Round.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// BeatsToTicks converts beats (quarter notes) to whole ticks.
func BeatsToTicks(beats float64) int {
	return Round(beats * PPQ)
}

// TicksToBeats converts ticks to beats.
func TicksToBeats(ticks float64) float64 {
	return ticks / PPQ
}

// MsToBeats converts milliseconds to beats at the given tempo.
func MsToBeats(ms, bpm float64) float64 {
	return ms / msPerSecond * (bpm / secondsPerMinute)
}

// TicksToSeconds converts ticks to seconds at the given tempo.
func TicksToSeconds(ticks, bpm float64) float64 {
	secondsPerTick := secondsPerMinute / (bpm * PPQ)
	return ticks * secondsPerTick
}

// SecondsToTicks converts seconds to whole ticks at the given tempo.
func SecondsToTicks(seconds, bpm float64) int {
	ticksPerSecond := (bpm * PPQ) / secondsPerMinute
	return Round(seconds * ticksPerSecond)
}
