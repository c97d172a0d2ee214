// Package session dispatches a playback plan in real time to a Sink.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/Conceptual-Machines/magda-sequencer/internal/logger"
	"github.com/Conceptual-Machines/magda-sequencer/internal/midiexport"
	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

// ErrAlreadyStarted is returned by Start on a session that ran before
var ErrAlreadyStarted = errors.New("session already started")

// Trigger is a note on or off at an offset from the window start
type Trigger struct {
	At    time.Duration
	On    bool
	Event models.PlaybackNoteEvent
}

// Message encodes the trigger as a channel voice message
func (t Trigger) Message() midi.Message {
	ch := midiexport.Channel(t.Event)
	key := uint8(clamp(t.Event.Midi, 0, 127))
	if t.On {
		return midi.NoteOn(ch, key, uint8(clamp(t.Event.Velocity, 1, 127)))
	}
	return midi.NoteOff(ch, key)
}

// Sink receives triggers as they come due
type Sink interface {
	Send(Trigger) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Trigger) error

// Send calls f(t)
func (f SinkFunc) Send(t Trigger) error {
	return f(t)
}

// LogSink writes every trigger to the log
type LogSink struct{}

// Send logs t
func (LogSink) Send(t Trigger) error {
	logger.Info("MIDI out", logger.Fields{
		"at":     t.At.String(),
		"msg":    t.Message().String(),
		"source": t.Event.SourceID,
		"track":  string(t.Event.TrackKind),
	})
	return nil
}

// Schedule maps plan events to triggers ordered by time. At equal times
// offs come before ons, then plan order is kept.
func Schedule(plan *models.PlaybackPlan) []Trigger {
	if plan == nil {
		return nil
	}
	windowStart := plan.WindowStartTick()
	triggers := make([]Trigger, 0, 2*len(plan.Events))
	for _, ev := range plan.Events {
		triggers = append(triggers,
			Trigger{At: offset(ev.StartTick-windowStart, plan.BPM), On: true, Event: ev},
			Trigger{At: offset(ev.EndTick()-windowStart, plan.BPM), Event: ev},
		)
	}
	sort.SliceStable(triggers, func(i, j int) bool {
		if triggers[i].At != triggers[j].At {
			return triggers[i].At < triggers[j].At
		}
		return !triggers[i].On && triggers[j].On
	})
	return triggers
}

// Length is the wall-clock length of the plan window
func Length(plan *models.PlaybackPlan) time.Duration {
	if plan == nil {
		return 0
	}
	return offset(plan.WindowEndTick()-plan.WindowStartTick(), plan.BPM)
}

func offset(ticks int, bpm float64) time.Duration {
	if bpm <= 0 {
		bpm = timing.DefaultBPM
	}
	return time.Duration(timing.TicksToSeconds(float64(ticks), bpm) * float64(time.Second))
}

// Options control dispatch
type Options struct {
	Loop bool // restart from the window start until stopped
}

type noteKey struct {
	channel uint8
	midi    int
}

// Session plays one plan. Start, Stop and Close are safe to call from any
// goroutine and more than once.
type Session struct {
	sink     Sink
	opts     Options
	triggers []Trigger
	length   time.Duration

	mu       sync.Mutex
	started  bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
	sounding map[noteKey]soundingNote
}

type soundingNote struct {
	event models.PlaybackNoteEvent
	count int
}

// New prepares a session for plan
func New(plan *models.PlaybackPlan, sink Sink, opts Options) *Session {
	return &Session{
		sink:     sink,
		opts:     opts,
		triggers: Schedule(plan),
		length:   Length(plan),
		done:     make(chan struct{}),
		sounding: make(map[noteKey]soundingNote),
	}
}

// Triggers returns the dispatch schedule
func (s *Session) Triggers() []Trigger {
	return s.triggers
}

// Start begins dispatch on a new goroutine. Cancelling ctx stops it.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(ctx)

	logger.Debug("Playback session started", logger.Fields{
		"triggers": len(s.triggers),
		"length":   s.length.String(),
		"loop":     s.opts.Loop,
	})
	return nil
}

// Stop halts dispatch and releases sounding notes. It does not wait.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Close stops dispatch and waits until every sounding note was released
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	started := s.started
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if !started {
		close(s.done)
		return nil
	}
	<-s.done
	return nil
}

// Done is closed when dispatch has ended and notes were released
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.releaseAll()

	loop := s.opts.Loop && s.length > 0
	for {
		origin := time.Now()
		for _, tr := range s.triggers {
			if !wait(ctx, origin.Add(tr.At)) {
				return
			}
			s.dispatch(tr)
		}
		if !loop {
			return
		}
		if !wait(ctx, origin.Add(s.length)) {
			return
		}
	}
}

func wait(ctx context.Context, until time.Time) bool {
	d := time.Until(until)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Session) dispatch(tr Trigger) {
	key := noteKey{channel: midiexport.Channel(tr.Event), midi: tr.Event.Midi}

	s.mu.Lock()
	note := s.sounding[key]
	if tr.On {
		note.event = tr.Event
		note.count++
		s.sounding[key] = note
	} else if note.count > 0 {
		note.count--
		if note.count == 0 {
			delete(s.sounding, key)
		} else {
			s.sounding[key] = note
		}
	}
	s.mu.Unlock()

	if err := s.sink.Send(tr); err != nil {
		logger.Warn("Sink rejected trigger", logger.Fields{
			"error":  err.Error(),
			"source": tr.Event.SourceID,
			"on":     tr.On,
		})
	}
}

func (s *Session) releaseAll() {
	s.mu.Lock()
	pending := make([]soundingNote, 0, len(s.sounding))
	for key, note := range s.sounding {
		pending = append(pending, note)
		delete(s.sounding, key)
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].event.Midi < pending[j].event.Midi
	})
	for _, note := range pending {
		if err := s.sink.Send(Trigger{Event: note.event}); err != nil {
			logger.Warn("Sink rejected note release", logger.Fields{"error": err.Error(), "midi": note.event.Midi})
		}
	}
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
