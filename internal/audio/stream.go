// Package audio bridges the engine's pull-style render callback to an oto
// output device. The device reads bytes; the engine produces interleaved
// stereo float32 frames.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// SampleSource fills dst with interleaved stereo float32 frames. It is
// called from the device's reader goroutine.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader adapts a SampleSource to the io.Reader the device consumes,
// encoding frames as little-endian float32 pairs.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

var (
	audioContextOnce sync.Once
	audioContext     *oto.Context
	audioContextErr  error
	audioSampleRate  int
)

// sharedAudioContext initializes the process-wide oto context on first use.
// oto allows exactly one context per process, so later calls must match the
// original sample rate.
func sharedAudioContext(sampleRate int) (*oto.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			audioContextErr = err
			return
		}
		<-ready
		audioContext = ctx
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Player owns one device voice fed by a SampleSource.
type Player struct {
	player *oto.Player
	reader *StreamReader
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	return &Player{
		player: ctx.NewPlayer(reader),
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// BufferedDuration reports how much rendered audio is queued ahead of the
// speaker, the output latency a position display should compensate for.
func (p *Player) BufferedDuration(sampleRate int) time.Duration {
	bytesPerSecond := sampleRate * 8
	return time.Duration(p.player.BufferedSize()) * time.Second / time.Duration(bytesPerSecond)
}

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
