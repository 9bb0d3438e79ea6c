package effects

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// coeffInterval is how often (in samples) the biquad coefficients are
// recomputed while cutoff or resonance ramps are in motion. Redesigning an
// RBJ lowpass every sample would dominate the hot path.
const coeffInterval = 64

// Filter is a stereo resonant lowpass built from two RBJ biquad sections.
// Cutoff and resonance changes ramp over ~100 ms.
type Filter struct {
	sampleRate int
	cutoff     ramp // Hz
	q          ramp
	left       *biquad.Section
	right      *biquad.Section

	designedCutoff float64
	designedQ      float64
	counter        int
}

func NewFilter(sampleRate int, cutoffHz, q float64) *Filter {
	cutoffHz = clamp(cutoffHz, 20, 20000)
	if q <= 0 {
		q = 1
	}
	c := design.Lowpass(cutoffHz, q, float64(sampleRate))
	return &Filter{
		sampleRate:     sampleRate,
		cutoff:         newRamp(cutoffHz),
		q:              newRamp(q),
		left:           biquad.NewSection(c),
		right:          biquad.NewSection(c),
		designedCutoff: cutoffHz,
		designedQ:      q,
	}
}

func (f *Filter) Process(l, r float64) (float64, float64) {
	cutoff := f.cutoff.next()
	q := f.q.next()
	if cutoff != f.designedCutoff || q != f.designedQ {
		f.counter++
		settled := cutoff == f.cutoff.target && q == f.q.target
		if f.counter >= coeffInterval || settled {
			f.counter = 0
			c := design.Lowpass(cutoff, q, float64(f.sampleRate))
			f.left.Coefficients = c
			f.right.Coefficients = c
			f.designedCutoff = cutoff
			f.designedQ = q
		}
	}
	return f.left.ProcessSample(l), f.right.ProcessSample(r)
}

func (f *Filter) SetCutoff(hz float64) {
	f.cutoff.set(clamp(hz, 20, 20000), f.sampleRate/rampSamplesDivisor)
}

func (f *Filter) SetResonance(q float64) {
	f.q.set(clamp(q, 0.1, 20), f.sampleRate/rampSamplesDivisor)
}

func (f *Filter) Reset() {
	f.left.Reset()
	f.right.Reset()
}
