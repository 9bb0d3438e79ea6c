package effects

import "math"

// Distortion implements tanh waveshaping with a dry/wet blend controlled by
// a single 0..1 amount. Zero amount is an exact passthrough.
type Distortion struct {
	sampleRate int
	amount     ramp
}

func NewDistortion(sampleRate int, amount float64) *Distortion {
	return &Distortion{
		sampleRate: sampleRate,
		amount:     newRamp(clamp(amount, 0, 1)),
	}
}

func (d *Distortion) Process(l, r float64) (float64, float64) {
	a := d.amount.next()
	if a <= 0 {
		return l, r
	}
	drive := 1 + a*9
	return l*(1-a) + math.Tanh(l*drive)*a,
		r*(1-a) + math.Tanh(r*drive)*a
}

func (d *Distortion) SetAmount(amount float64) {
	d.amount.set(clamp(amount, 0, 1), d.sampleRate/rampSamplesDivisor)
}

func (d *Distortion) Reset() {}
