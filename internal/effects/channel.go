package effects

import "math"

// Channel is a mono-in, stereo-out gain/pan strip. It sits at the head of
// both the shared bus and each legacy track strip.
type Channel struct {
	sampleRate int
	gain       ramp
	pan        ramp // -1..+1
}

func NewChannel(sampleRate int, gain, pan float64) *Channel {
	return &Channel{
		sampleRate: sampleRate,
		gain:       newRamp(gain),
		pan:        newRamp(clamp(pan, -1, 1)),
	}
}

// Process applies gain and equal-power panning to one mono frame.
func (c *Channel) Process(mono float64) (float64, float64) {
	g := c.gain.next()
	p := c.pan.next()
	angle := (p + 1) / 2 * (math.Pi / 2)
	return mono * g * math.Cos(angle), mono * g * math.Sin(angle)
}

func (c *Channel) SetGain(gain float64) {
	c.gain.set(gain, c.sampleRate/rampSamplesDivisor)
}

func (c *Channel) SetPan(pan float64) {
	c.pan.set(clamp(pan, -1, 1), c.sampleRate/rampSamplesDivisor)
}

func (c *Channel) Reset() {}
