package probeat

import (
	"encoding/binary"
	"math"
)

const renderBlockFrames = 512

// RenderSamples pulls seconds of interleaved stereo audio from the engine
// without a device, blocking first until the effect graph is ready so the
// render is deterministic. Call Play beforehand to render the running
// pattern.
func RenderSamples(e *Engine, seconds float64) []float32 {
	<-e.Ready()
	frames := int(float64(e.sampleRate) * seconds)
	out := make([]float32, frames*2)
	for off := 0; off < len(out); {
		n := renderBlockFrames * 2
		if rem := len(out) - off; n > rem {
			n = rem
		}
		e.Process(out[off : off+n])
		off += n
	}
	return out
}

// EncodeWAVFloat32LE wraps interleaved samples in a RIFF/WAVE container
// with IEEE float format.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3) // IEEE float
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
