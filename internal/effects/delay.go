package effects

// maxDelaySec bounds the delay line so the tap time can change without
// reallocating on the audio thread.
const maxDelaySec = 1

// Delay is a stereo feedback delay with a wet/dry mix. The wet level ramps;
// time and feedback apply directly (they are not part of the live master
// sends and are normally set while wiring the graph).
type Delay struct {
	sampleRate int
	bufL, bufR []float64
	pos        int
	delay      int
	feedback   float64
	wet        ramp
}

func NewDelay(sampleRate int, delaySec, feedback, wet float64) *Delay {
	size := sampleRate * maxDelaySec
	d := &Delay{
		sampleRate: sampleRate,
		bufL:       make([]float64, size),
		bufR:       make([]float64, size),
		feedback:   clamp(feedback, 0, 0.95),
		wet:        newRamp(clamp(wet, 0, 1)),
	}
	d.SetTime(delaySec)
	return d
}

func (d *Delay) Process(l, r float64) (float64, float64) {
	wet := d.wet.next()
	read := d.pos - d.delay
	if read < 0 {
		read += len(d.bufL)
	}
	delL := d.bufL[read]
	delR := d.bufR[read]
	d.bufL[d.pos] = l + delL*d.feedback
	d.bufR[d.pos] = r + delR*d.feedback
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return l*(1-wet) + delL*wet, r*(1-wet) + delR*wet
}

func (d *Delay) SetWet(wet float64) {
	d.wet.set(clamp(wet, 0, 1), d.sampleRate/rampSamplesDivisor)
}

func (d *Delay) SetTime(delaySec float64) {
	samples := int(clamp(delaySec, 0, maxDelaySec) * float64(d.sampleRate))
	if samples < 1 {
		samples = 1
	}
	if samples >= len(d.bufL) {
		samples = len(d.bufL) - 1
	}
	d.delay = samples
}

func (d *Delay) SetFeedback(feedback float64) {
	d.feedback = clamp(feedback, 0, 0.95)
}

func (d *Delay) Reset() {
	clear(d.bufL)
	clear(d.bufR)
	d.pos = 0
}
