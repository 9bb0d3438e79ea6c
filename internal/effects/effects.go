package effects

// Effector processes stereo audio one frame at a time.
type Effector interface {
	Process(l, r float64) (float64, float64)
	Reset()
}

// rampSamplesDivisor sets the smoothing window for live parameter changes:
// sampleRate/10 samples, i.e. ~100 ms. Instantaneous parameter jumps click.
const rampSamplesDivisor = 10

// ramp moves a parameter linearly from its current value to a target over a
// fixed number of samples.
type ramp struct {
	cur    float64
	target float64
	step   float64
}

func newRamp(v float64) ramp {
	return ramp{cur: v, target: v}
}

func (r *ramp) set(target float64, samples int) {
	if samples <= 0 {
		r.cur = target
		r.target = target
		r.step = 0
		return
	}
	r.target = target
	r.step = (target - r.cur) / float64(samples)
}

func (r *ramp) next() float64 {
	if r.cur == r.target {
		return r.cur
	}
	r.cur += r.step
	if (r.step > 0 && r.cur >= r.target) || (r.step < 0 && r.cur <= r.target) {
		r.cur = r.target
	}
	return r.cur
}

func (r *ramp) value() float64 { return r.cur }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
