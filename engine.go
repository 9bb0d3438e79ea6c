// Package probeat is a step-sequencer and synthesis engine for pattern-based
// music sessions. An Engine owns the pattern state, the transport, the voice
// pools and the effect graph; callers edit the pattern through the Engine's
// methods and pull rendered audio through Process, or hand the Engine to the
// audio backend in internal/audio.
package probeat

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/probeat/probeat-go/internal/effects"
	"github.com/probeat/probeat-go/internal/meter"
	"github.com/probeat/probeat-go/internal/pattern"
	"github.com/probeat/probeat-go/internal/sequencer"
	"github.com/probeat/probeat-go/internal/session"
	"github.com/probeat/probeat-go/internal/synth"
)

// Event reports a transport position change from Watch().
type Event struct {
	Step    int
	Playing bool
}

// Trigger mirrors one dispatched note to the trigger tap.
type Trigger = sequencer.Trigger

// ErrUnknownTrack is returned by editor methods given a track id that is
// not in the pattern.
var ErrUnknownTrack = pattern.ErrUnknownTrack

const (
	legacyPoolCapacity = 8
	stripHeadroom      = 0.5
)

type Option func(*config)

type config struct {
	voiceCapacity int
	sampleTap     func([]float32)
	triggerTap    func(Trigger)
	logger        *slog.Logger
}

func defaultConfig() config {
	return config{voiceCapacity: synth.DefaultCapacity, logger: slog.Default()}
}

// WithVoiceCapacity bounds the shared pitched-voice pool.
func WithVoiceCapacity(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.voiceCapacity = n
		}
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *config) {
		cfg.sampleTap = tap
	}
}

// WithTriggerTap installs a callback invoked for every dispatched trigger,
// on the audio thread. Used for MIDI mirroring and visual feedback.
func WithTriggerTap(tap func(Trigger)) Option {
	return func(cfg *config) {
		cfg.triggerTap = tap
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// Engine is the facade over the whole sequencer. One mutex serializes edits,
// transport commands and the audio callback onto a single timeline, so the
// scheduler always sees consistent pattern state and edits land between
// buffers, never inside one.
type Engine struct {
	mu sync.Mutex

	sampleRate int
	store      *pattern.Store
	clock      *sequencer.Clock
	sched      *sequencer.Scheduler
	graph      *effects.Graph
	shared     *synth.Pool
	legacy     map[string]*synth.Pool
	levels     *meter.Meter

	now    uint64
	step   int
	logger *slog.Logger

	sampleTap  func([]float32)
	triggerTap func(Trigger)

	eventCh   chan Event
	eventChMu sync.Mutex

	meterL, meterR []float32

	closeOnce sync.Once
	closed    bool

	// metadata of the loaded session, preserved across Save
	sessionID, sessionName, sessionDesc string
}

func New(sampleRate int, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	graph, err := effects.NewGraph(effects.DefaultGraphConfig(sampleRate))
	if err != nil {
		return nil, err
	}
	store := pattern.NewStore()
	e := &Engine{
		sampleRate: sampleRate,
		store:      store,
		clock:      sequencer.NewClock(sampleRate, store.Tempo()),
		graph:      graph,
		shared:     synth.NewPool(sampleRate, cfg.voiceCapacity),
		legacy:     make(map[string]*synth.Pool),
		levels:     meter.NewMeter(sampleRate, 512),
		logger:     cfg.logger,
		sampleTap:  cfg.sampleTap,
		triggerTap: cfg.triggerTap,
	}
	e.sched = sequencer.NewScheduler(engineRack{e})
	sends := store.Sends()
	graph.SetSends(sends.ReverbWet, sends.DelayWet, sends.MasterGainDB)
	return e, nil
}

// engineRack exposes the slice of engine state the scheduler needs without
// widening the Engine's public surface. All methods run under e.mu, on the
// audio thread.
type engineRack struct{ e *Engine }

func (r engineRack) Pattern() *pattern.Store { return r.e.store }
func (r engineRack) Interval() float64       { return r.e.clock.Interval() }

func (r engineRack) Dispatch(t *pattern.Track, spec synth.NoteSpec) bool {
	e := r.e
	if !e.graph.IsReady() {
		return false
	}
	if t.Kind == pattern.KindLegacy {
		pool, ok := e.legacy[t.ID]
		if !ok {
			return false
		}
		pool.Trigger(spec)
		return true
	}
	// Shared-bus tone follows the most recent trigger.
	e.graph.SetSharedTone(t.Settings.Distortion, t.Settings.Cutoff, t.Settings.Resonance)
	e.graph.SetSharedPan(t.Mixer.Pan)
	e.shared.Trigger(spec)
	return true
}

func (r engineRack) Position(step int) {
	r.e.step = step
	r.e.sendEvent(Event{Step: step, Playing: true})
}

func (r engineRack) Dropped(step, n int) {
	r.e.logger.Warn("trigger dispatch dropped", "step", step, "count", n)
}

func (r engineRack) Fired(tr sequencer.Trigger) {
	if r.e.triggerTap != nil {
		r.e.triggerTap(tr)
	}
}

// Process renders one interleaved stereo buffer. It is the audio callback:
// internal/audio's StreamReader calls it from the device goroutine, and the
// offline renderer calls it in a loop.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	frames := len(dst) / 2
	e.clock.TicksIn(e.now, frames, e.sched.Tick)

	if cap(e.meterL) < frames {
		e.meterL = make([]float32, frames)
		e.meterR = make([]float32, frames)
	}
	mL, mR := e.meterL[:frames], e.meterR[:frames]

	for i := 0; i < frames; i++ {
		l, r := e.graph.ProcessShared(e.shared.RenderFrame())
		for id, pool := range e.legacy {
			sl, sr := e.graph.ProcessStrip(id, pool.RenderFrame())
			l += sl
			r += sr
		}
		l, r = e.graph.ProcessMaster(l, r)
		dst[i*2] = float32(l)
		dst[i*2+1] = float32(r)
		mL[i], mR[i] = float32(l), float32(r)
	}
	e.now += uint64(frames)

	e.levels.Process(mL, mR)
	if e.sampleTap != nil {
		e.sampleTap(dst)
	}
}

// Play starts the transport from step zero. Triggers stay silent until the
// graph reports Ready.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.sched.Reset()
	e.clock.Start(e.now)
}

// Stop halts the transport and rewinds to step zero. Pending triggers are
// cancelled; sounding voices release naturally.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.clock.Stop()
	e.sched.Reset()
	e.shared.CancelPending()
	e.shared.ReleaseAll()
	for _, pool := range e.legacy {
		pool.CancelPending()
		pool.ReleaseAll()
	}
	e.step = 0
	e.levels.Reset()
	e.mu.Unlock()
	e.sendEvent(Event{Step: 0, Playing: false})
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Running()
}

// Step returns the most recently scheduled step.
func (e *Engine) Step() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// SetTempo clamps bpm into range and stages it; the new interval applies at
// the next tick boundary.
func (e *Engine) SetTempo(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.SetTempo(bpm)
	e.clock.SetTempo(e.store.Tempo())
}

func (e *Engine) Tempo() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Tempo()
}

// Ready is closed once the effect graph has finished its asynchronous setup
// and triggers will sound.
func (e *Engine) Ready() <-chan struct{} { return e.graph.Ready() }

// Watch returns a buffered channel of transport events. Events are dropped,
// never blocked on, when the receiver falls behind; only the most recent
// Watch channel receives events.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, 8)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}

func (e *Engine) sendEvent(ev Event) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// receiver behind; drop
		}
	}
}

// Levels returns the latest output meter reading.
func (e *Engine) Levels() (left, right meter.Levels) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levels.Read()
}

// Close stops the transport and disposes the effect graph. Idempotent;
// Process emits silence afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.Stop()
		e.mu.Lock()
		e.closed = true
		e.graph.Close()
		e.mu.Unlock()
	})
}

// LoadSession replaces the whole pattern with a parsed document,
// reconciling out-of-range values and rebuilding legacy strips.
func (e *Engine) LoadSession(f session.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f.Apply(e.store)
	e.sessionID, e.sessionName, e.sessionDesc = f.ID, f.Name, f.Description
	e.clock.SetTempo(e.store.Tempo())
	sends := e.store.Sends()
	e.graph.SetSends(sends.ReverbWet, sends.DelayWet, sends.MasterGainDB)
	e.syncStrips()
}

// Session snapshots the current pattern, preserving loaded metadata.
func (e *Engine) Session() session.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	return session.Snapshot(e.store, e.sessionID, e.sessionName, e.sessionDesc)
}

// syncStrips reconciles legacy pools and strips with the store. Caller
// holds e.mu.
func (e *Engine) syncStrips() {
	want := make(map[string]*pattern.Track)
	for _, t := range e.store.Tracks() {
		if t.Kind == pattern.KindLegacy {
			tc := t
			want[t.ID] = &tc
		}
	}
	for id := range e.legacy {
		if _, ok := want[id]; !ok {
			delete(e.legacy, id)
			e.graph.RemoveStrip(id)
		}
	}
	// Track volume reaches the audio as trigger velocity; strips carry the
	// same fixed headroom gain as the shared bus.
	for id, t := range want {
		if _, ok := e.legacy[id]; !ok {
			pool := synth.NewPool(e.sampleRate, legacyPoolCapacity)
			pool.SetNow(e.now)
			e.legacy[id] = pool
			e.graph.AddStrip(id, stripHeadroom, t.Mixer.Pan,
				t.Settings.Distortion, t.Settings.Cutoff, t.Settings.Resonance)
		} else {
			e.graph.UpdateStrip(id, stripHeadroom, t.Mixer.Pan,
				t.Settings.Distortion, t.Settings.Cutoff, t.Settings.Resonance)
		}
	}
}
