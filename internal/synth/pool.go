package synth

import "math"

const twoPi = math.Pi * 2

// DefaultCapacity bounds polyphony for the shared pitched-voice pool.
const DefaultCapacity = 64

// Waveform selects the oscillator shape for a voice.
type Waveform int

const (
	WaveTriangle Waveform = iota // stock piano voice
	WaveSine
	WaveSaw
)

// NoteSpec describes one trigger request. Synthesis parameters are a
// snapshot taken at trigger time; later edits never touch in-flight voices.
type NoteSpec struct {
	Note     int     // MIDI note number
	Velocity float64 // 0..1
	Waveform Waveform

	Attack  float64 // seconds
	Decay   float64 // seconds
	Sustain float64 // 0..1
	Release float64 // seconds

	// GateSamples is the sustain hold before the release stage begins; the
	// voice frees itself once the release tail finishes.
	GateSamples int

	// StartAt is the absolute sample time the voice should begin sounding.
	// Until the pool's render clock reaches it the voice stays silent.
	StartAt uint64
}

type envStage int

const (
	envAttack envStage = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active  bool
	startAt uint64
	seq     uint64

	freq        float64
	velocity    float64
	waveform    Waveform
	phase       float64
	env         float64
	stage       envStage
	attack      float64
	decay       float64
	sustain     float64
	release     float64
	releaseStep float64
	gateLeft    int
}

// Pool is a bounded polyphonic voice allocator. One pool serves all pitched
// tracks; legacy tracks own small private pools inside their strips. Pools
// are driven from the audio callback only and hold no locks.
type Pool struct {
	sampleRate float64
	voices     []voice
	seq        uint64
	now        uint64
}

func NewPool(sampleRate int, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		sampleRate: float64(sampleRate),
		voices:     make([]voice, capacity),
	}
}

func (p *Pool) Capacity() int { return len(p.voices) }

// Now returns the pool's render clock in samples.
func (p *Pool) Now() uint64 { return p.now }

// SetNow aligns the pool's render clock with a clock that has already
// advanced. A pool created mid-session would otherwise treat absolute
// trigger timestamps as far in the future and stay silent until its own
// clock caught up.
func (p *Pool) SetNow(now uint64) { p.now = now }

// Trigger allocates a voice for spec, stealing the oldest active voice when
// the pool is exhausted. Requests are never silently dropped; cutting an old
// release short is preferred over losing a step.
func (p *Pool) Trigger(spec NoteSpec) {
	slot := -1
	for i := range p.voices {
		if !p.voices[i].active {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = p.oldest()
	}
	p.seq++
	v := &p.voices[slot]
	*v = voice{
		active:   true,
		startAt:  spec.StartAt,
		seq:      p.seq,
		freq:     midiToFreq(spec.Note),
		velocity: clamp(spec.Velocity, 0, 1),
		waveform: spec.Waveform,
		stage:    envAttack,
		attack:   spec.Attack,
		decay:    spec.Decay,
		sustain:  clamp(spec.Sustain, 0, 1),
		release:  spec.Release,
		gateLeft: spec.GateSamples,
	}
	if v.gateLeft <= 0 {
		v.gateLeft = 1
	}
}

func (p *Pool) oldest() int {
	idx := 0
	for i := 1; i < len(p.voices); i++ {
		vi, vo := &p.voices[i], &p.voices[idx]
		if vi.startAt < vo.startAt || (vi.startAt == vo.startAt && vi.seq < vo.seq) {
			idx = i
		}
	}
	return idx
}

// CancelPending drops voices whose start time is still in the future.
// Voices already sounding keep running to their natural release, so a stop
// never leaves hung notes but also never fires residual triggers.
func (p *Pool) CancelPending() {
	for i := range p.voices {
		if p.voices[i].active && p.voices[i].startAt > p.now {
			p.voices[i] = voice{}
		}
	}
}

// ReleaseAll pushes every sounding voice into its release stage.
func (p *Pool) ReleaseAll() {
	for i := range p.voices {
		v := &p.voices[i]
		if v.active && v.stage != envRelease && v.stage != envOff {
			v.enterRelease(p.sampleRate)
		}
	}
}

func (p *Pool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// RenderFrame advances the pool one sample and returns the mono sum of all
// sounding voices. Finished voices return themselves to the free pool.
func (p *Pool) RenderFrame() float64 {
	var sum float64
	for i := range p.voices {
		v := &p.voices[i]
		if !v.active || v.startAt > p.now {
			continue
		}
		v.advanceEnv(p.sampleRate)
		if v.stage == envOff {
			*v = voice{}
			continue
		}
		sum += waveformSample(v.phase, v.waveform) * v.env * v.velocity
		v.phase += twoPi * v.freq / p.sampleRate
		if v.phase > twoPi {
			v.phase -= twoPi
		}
	}
	p.now++
	return sum
}

func (v *voice) advanceEnv(sampleRate float64) {
	switch v.stage {
	case envAttack:
		step := 1.0 / (v.attack * sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env += step
		if v.env >= 1 {
			v.env = 1
			v.stage = envDecay
		}
	case envDecay:
		step := (1 - v.sustain) / (v.decay * sampleRate)
		if step <= 0 {
			step = 1
		}
		v.env -= step
		if v.env <= v.sustain {
			v.env = v.sustain
			v.stage = envSustain
		}
	case envSustain:
	case envRelease:
		v.env -= v.releaseStep
		if v.env <= 0.0001 {
			v.env = 0
			v.stage = envOff
		}
	}
	// The gate is a sustain hold: it starts counting only once the attack
	// and decay have finished, so a slow decay never eats the hold.
	if v.stage == envSustain {
		v.gateLeft--
		if v.gateLeft <= 0 {
			v.enterRelease(sampleRate)
		}
	}
}

func (v *voice) enterRelease(sampleRate float64) {
	step := v.env / (v.release * sampleRate)
	if step <= 0 || math.IsInf(step, 1) || math.IsNaN(step) {
		step = 1
	}
	v.releaseStep = step
	v.stage = envRelease
}

func waveformSample(phase float64, w Waveform) float64 {
	switch w {
	case WaveSine:
		return math.Sin(phase)
	case WaveSaw:
		return 1.0 - 2.0*math.Mod(phase, twoPi)/twoPi
	default: // triangle
		return 2.0*math.Abs(2.0*math.Mod(phase, twoPi)/twoPi-1.0) - 1.0
	}
}

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
