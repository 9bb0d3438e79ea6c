package sequencer

import (
	"github.com/probeat/probeat-go/internal/pattern"
	"github.com/probeat/probeat-go/internal/synth"
)

// MaxTriggersPerTick caps the dispatch fan-out of a single tick. Triggers
// past the cap are dropped, never queued, so one pathological step cannot
// push the transport behind the render clock.
const MaxTriggersPerTick = 64

const middleC = 60

// Trigger is one dispatched note, reported to taps (MIDI mirroring, tests).
type Trigger struct {
	TrackID  string
	Note     int
	Velocity float64
	At       uint64
}

// Scheduler walks the pattern grid on clock ticks and feeds the voice
// layer. The step index is derived from a tick counter, never from elapsed
// time, so tempo changes and long sessions cannot drift the grid position.
type Scheduler struct {
	rack Rack
	tick uint64
	step int

	// gateFrac scales the gate hold to a fraction of the tick interval.
	gateFrac float64
}

// Rack is the slice of engine state the scheduler reads each tick. The
// engine passes itself; tests pass a bare fixture.
type Rack interface {
	Pattern() *pattern.Store
	Interval() float64
	// Dispatch routes one trigger to the owning pool. It reports false when
	// the voice layer is not ready to sound (the trigger is then counted as
	// dropped).
	Dispatch(t *pattern.Track, spec synth.NoteSpec) bool
	// Position is notified on every tick, including silent ones, with the
	// step that was just scheduled.
	Position(step int)
	// Dropped is notified once per tick with the number of triggers that
	// exceeded the cap or failed dispatch.
	Dropped(step, n int)
	// Fired is the trigger tap; nil-safe behavior is the engine's concern.
	Fired(tr Trigger)
}

func NewScheduler(rack Rack) *Scheduler {
	return &Scheduler{rack: rack, gateFrac: 0.5}
}

// Tick schedules every audible active step at the given absolute sample
// time and advances the step counter. The step index is tick mod the
// current step count, so pattern-length edits re-derive the position
// immediately.
func (s *Scheduler) Tick(at uint64) {
	st := s.rack.Pattern()
	stepCount := st.StepCount()
	step := int(s.tick % uint64(stepCount))
	s.step = step
	s.tick++

	soloActive := st.SoloActive()
	gate := int(s.rack.Interval() * s.gateFrac)
	dispatched, dropped := 0, 0

	tracks := st.Tracks()
	for i := range tracks {
		t := &tracks[i]
		if !t.Steps[step] || !pattern.Audible(t, soloActive) {
			continue
		}
		if dispatched >= MaxTriggersPerTick {
			dropped++
			continue
		}
		spec := noteFor(t, at, gate)
		if !s.rack.Dispatch(t, spec) {
			dropped++
			continue
		}
		dispatched++
		s.rack.Fired(Trigger{TrackID: t.ID, Note: spec.Note, Velocity: spec.Velocity, At: at})
	}

	if dropped > 0 {
		s.rack.Dropped(step, dropped)
	}
	s.rack.Position(step)
}

// Reset rewinds the transport to step zero. In-flight voices are the
// engine's problem; the scheduler only owns the counter.
func (s *Scheduler) Reset() {
	s.tick = 0
	s.step = 0
}

// Step returns the most recently scheduled step index.
func (s *Scheduler) Step() int { return s.step }

func noteFor(t *pattern.Track, at uint64, gate int) synth.NoteSpec {
	wave := synth.WaveTriangle
	if t.Kind == pattern.KindLegacy {
		wave = synth.WaveSine
	}
	return synth.NoteSpec{
		Note:        middleC + t.Settings.Pitch,
		Velocity:    pattern.Velocity(t.Mixer.Volume),
		Waveform:    wave,
		Attack:      t.Settings.Attack,
		Decay:       t.Settings.Decay,
		Sustain:     t.Settings.Sustain,
		Release:     t.Settings.Release,
		GateSamples: gate,
		StartAt:     at,
	}
}
