package sequencer

// Clock generates one trigger event per sixteenth-note subdivision, counted
// in samples against the render clock rather than wall or UI frame time.
// Tick timestamps are computed ahead of rendering (look-ahead within the
// current buffer), so callback jitter never shifts audio timing.
type Clock struct {
	sampleRate float64
	bpm        float64
	pendingBPM float64 // applied at the next tick boundary; 0 = none
	interval   float64 // samples per sixteenth
	nextTick   float64 // absolute sample time of the next tick
	running    bool
}

func NewClock(sampleRate int, bpm float64) *Clock {
	c := &Clock{sampleRate: float64(sampleRate)}
	c.bpm = bpm
	c.interval = samplesPerSixteenth(c.sampleRate, bpm)
	return c
}

func samplesPerSixteenth(sampleRate, bpm float64) float64 {
	return sampleRate * 60 / bpm / 4
}

// Start arms the clock; the first tick fires exactly at now.
func (c *Clock) Start(now uint64) {
	c.running = true
	c.nextTick = float64(now)
}

func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Running() bool { return c.running }

func (c *Clock) BPM() float64 { return c.bpm }

// SetTempo stages a tempo change; it takes effect on the next tick
// boundary, never retroactively.
func (c *Clock) SetTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	c.pendingBPM = bpm
}

// Interval returns the current tick spacing in samples.
func (c *Clock) Interval() float64 { return c.interval }

// TicksIn fires fn for every tick whose timestamp falls inside
// [now, now+frames), passing the exact intended sample time. Pending tempo
// changes are folded in at each boundary, so spacing within a tempo is
// exactly even and changes land cleanly between ticks.
func (c *Clock) TicksIn(now uint64, frames int, fn func(at uint64)) {
	if !c.running {
		return
	}
	limit := float64(now) + float64(frames)
	for c.nextTick < limit {
		fn(uint64(c.nextTick))
		if c.pendingBPM > 0 {
			c.bpm = c.pendingBPM
			c.pendingBPM = 0
			c.interval = samplesPerSixteenth(c.sampleRate, c.bpm)
		}
		c.nextTick += c.interval
	}
}
