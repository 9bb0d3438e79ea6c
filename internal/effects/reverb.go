package effects

import (
	"math"
	"math/rand"
)

const earlyTaps = 8

// Reverb combines a short early-reflection FIR with a Schroeder tail of
// four comb filters and two allpass filters. The early-reflection taps are
// carved out of a generated decaying-noise impulse; that generation runs on
// its own goroutine at construction, and Ready is closed when the reverb is
// usable. Until then Process passes dry signal through.
type Reverb struct {
	sampleRate int
	combs      [4]combFilter
	allpass    [2]allpassFilter
	wet        ramp
	decaySec   float64

	taps     [earlyTaps]tap
	earlyBuf []float64
	earlyPos int

	ready chan struct{}
}

type tap struct {
	delay int
	gain  float64
}

type combFilter struct {
	buf []float64
	pos int
	fb  float64
}

type allpassFilter struct {
	buf []float64
	pos int
	fb  float64
}

// NewReverb builds the tail immediately and generates the early-reflection
// impulse asynchronously. decaySec is the -60 dB time of the tail.
func NewReverb(sampleRate int, decaySec, wet float64) *Reverb {
	if decaySec <= 0 {
		decaySec = 2.5
	}
	r := &Reverb{
		sampleRate: sampleRate,
		wet:        newRamp(clamp(wet, 0, 1)),
		decaySec:   decaySec,
		ready:      make(chan struct{}),
	}
	base := sampleRate / 20 // 50 ms shortest comb
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = combFilter{
			buf: make([]float64, combLens[i]),
			fb:  combFeedback(combLens[i], decaySec, sampleRate),
		}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		if apLens[i] < 1 {
			apLens[i] = 1
		}
		r.allpass[i] = allpassFilter{buf: make([]float64, apLens[i]), fb: 0.5}
	}
	r.earlyBuf = make([]float64, sampleRate/10) // 100 ms of early reflections
	go r.generateImpulse()
	return r
}

// combFeedback derives the per-comb feedback so the tail decays 60 dB in
// decaySec regardless of comb length.
func combFeedback(length int, decaySec float64, sampleRate int) float64 {
	fb := math.Pow(0.001, float64(length)/(decaySec*float64(sampleRate)))
	return clamp(fb, 0, 0.98)
}

// generateImpulse renders a decaying noise burst and selects the loudest
// moments as early-reflection taps. Deterministically seeded so renders are
// reproducible.
func (r *Reverb) generateImpulse() {
	rng := rand.New(rand.NewSource(0x9b4e))
	n := len(r.earlyBuf)
	impulse := make([]float64, n)
	for i := range impulse {
		env := math.Exp(-4 * float64(i) / float64(n))
		impulse[i] = (rng.Float64()*2 - 1) * env
	}
	// One tap per equal-width window, at the window's absolute peak.
	window := n / earlyTaps
	for t := 0; t < earlyTaps; t++ {
		start := t * window
		best := start
		for i := start; i < start+window && i < n; i++ {
			if math.Abs(impulse[i]) > math.Abs(impulse[best]) {
				best = i
			}
		}
		r.taps[t] = tap{delay: best, gain: impulse[best] * 0.5}
	}
	close(r.ready)
}

// Ready is closed once impulse generation has finished.
func (r *Reverb) Ready() <-chan struct{} { return r.ready }

func (r *Reverb) isReady() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

func (r *Reverb) Process(l, r2 float64) (float64, float64) {
	wet := r.wet.next()
	if !r.isReady() {
		return l, r2
	}
	mono := (l + r2) * 0.5

	r.earlyBuf[r.earlyPos] = mono
	var early float64
	n := len(r.earlyBuf)
	for _, t := range r.taps {
		idx := r.earlyPos - t.delay
		if idx < 0 {
			idx += n
		}
		early += r.earlyBuf[idx] * t.gain
	}
	r.earlyPos++
	if r.earlyPos >= n {
		r.earlyPos = 0
	}

	in := mono + early
	var out float64
	for i := range r.combs {
		out += r.combs[i].process(in)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	out += early
	return l*(1-wet) + out*wet, r2*(1-wet) + out*wet
}

func (r *Reverb) SetWet(wet float64) {
	r.wet.set(clamp(wet, 0, 1), r.sampleRate/rampSamplesDivisor)
}

// SetDecay retunes the comb feedback for a new -60 dB time.
func (r *Reverb) SetDecay(decaySec float64) {
	if decaySec <= 0 {
		return
	}
	r.decaySec = decaySec
	for i := range r.combs {
		r.combs[i].fb = combFeedback(len(r.combs[i].buf), decaySec, r.sampleRate)
	}
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
	clear(r.earlyBuf)
	r.earlyPos = 0
}

func (c *combFilter) process(in float64) float64 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float64) float64 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
