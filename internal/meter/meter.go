// Package meter computes block peak and RMS levels of the rendered stereo
// stream for display. It runs on the audio callback's buffers, so all the
// heavy lifting is vectorized and scratch space is reused between blocks.
package meter

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Levels is one reading for one channel, in dBFS. Silent blocks report
// Floor rather than -Inf.
type Levels struct {
	PeakDB float64
	RMSDB  float64
}

// Floor is the reading reported for digital silence.
const Floor = -96.0

// Meter tracks stereo peak and RMS with a falling peak hold. Not safe for
// concurrent use; the engine reads it from the callback and publishes
// snapshots.
type Meter struct {
	peakHold [2]float32
	decay    float32
	tmp      []float32
	current  [2]Levels
}

// NewMeter builds a meter whose peak hold falls about 12 dB per second at
// the given block cadence.
func NewMeter(sampleRate, blockSize int) *Meter {
	blocksPerSecond := float64(sampleRate) / float64(blockSize)
	decay := math.Pow(10, -12.0/20/blocksPerSecond)
	return &Meter{decay: float32(decay)}
}

// Process folds one deinterleaved stereo block into the meter.
func (m *Meter) Process(left, right []float32) {
	m.current[0] = m.measure(0, left)
	m.current[1] = m.measure(1, right)
}

func (m *Meter) measure(chn int, block []float32) Levels {
	if len(block) == 0 {
		return m.current[chn]
	}
	if len(m.tmp) < len(block) {
		m.tmp = append(m.tmp, make([]float32, len(block)-len(m.tmp))...)
	}
	sq := vek32.Mul_Into(m.tmp[:len(block)], block, block)
	rms := math.Sqrt(float64(vek32.Mean(sq)))
	p := float32(math.Sqrt(float64(vek32.Max(sq))))

	held := m.peakHold[chn] * m.decay
	if p > held {
		held = p
	}
	m.peakHold[chn] = held

	return Levels{PeakDB: toDB(float64(held)), RMSDB: toDB(rms)}
}

// Read returns the latest left and right readings.
func (m *Meter) Read() (left, right Levels) {
	return m.current[0], m.current[1]
}

// Reset clears the hold, for transport stop.
func (m *Meter) Reset() {
	m.peakHold = [2]float32{}
	m.current = [2]Levels{{PeakDB: Floor, RMSDB: Floor}, {PeakDB: Floor, RMSDB: Floor}}
}

func toDB(v float64) float64 {
	if v <= 0 {
		return Floor
	}
	db := 20 * math.Log10(v)
	if db < Floor {
		return Floor
	}
	return db
}
