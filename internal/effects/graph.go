package effects

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
)

// GraphConfig carries the construction-time parameters of the signal graph.
type GraphConfig struct {
	SampleRate    int
	ReverbDecay   float64 // seconds, -60 dB tail time
	ReverbWet     float64 // 0..1
	DelayTime     float64 // seconds
	DelayFeedback float64 // 0..1
	DelayWet      float64 // 0..1
	MasterGainDB  float64
}

func DefaultGraphConfig(sampleRate int) GraphConfig {
	return GraphConfig{
		SampleRate:    sampleRate,
		ReverbDecay:   2.5,
		ReverbWet:     0.2,
		DelayTime:     0.25,
		DelayFeedback: 0.35,
		DelayWet:      0.15,
		MasterGainDB:  0,
	}
}

// Graph is the fixed processing topology:
//
//	voices → shared channel → distortion → lowpass → reverb → delay →
//	limiter → master gain → output
//
// Legacy track strips (channel → distortion → filter each) join the bus
// between the shared filter and the reverb. The topology is wired once at
// construction and disposed exactly once by Close; only parameters move at
// runtime, always through ~100 ms ramps.
type Graph struct {
	sampleRate int

	channel    *Channel
	distortion *Distortion
	filter     *Filter
	reverb     *Reverb
	delay      *Delay
	limL       *dynamics.LookaheadLimiter
	limR       *dynamics.LookaheadLimiter
	master     ramp // linear gain

	strips map[string]*Strip

	closeOnce sync.Once
	closed    bool
}

// Strip is the exclusively-owned processing chain of one legacy track.
type Strip struct {
	channel    *Channel
	distortion *Distortion
	filter     *Filter
}

func (s *Strip) Process(mono float64) (float64, float64) {
	l, r := s.channel.Process(mono)
	l, r = s.distortion.Process(l, r)
	return s.filter.Process(l, r)
}

// NewGraph wires the topology. The reverb's impulse generation runs
// asynchronously; callers must wait on Ready before triggering voices.
func NewGraph(cfg GraphConfig) (*Graph, error) {
	limL, err := dynamics.NewLookaheadLimiter(float64(cfg.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("wire limiter: %w", err)
	}
	limR, err := dynamics.NewLookaheadLimiter(float64(cfg.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("wire limiter: %w", err)
	}
	g := &Graph{
		sampleRate: cfg.SampleRate,
		channel:    NewChannel(cfg.SampleRate, 0.5, 0),
		distortion: NewDistortion(cfg.SampleRate, 0),
		filter:     NewFilter(cfg.SampleRate, 20000, 1),
		reverb:     NewReverb(cfg.SampleRate, cfg.ReverbDecay, cfg.ReverbWet),
		delay:      NewDelay(cfg.SampleRate, cfg.DelayTime, cfg.DelayFeedback, cfg.DelayWet),
		limL:       limL,
		limR:       limR,
		master:     newRamp(dbToGain(cfg.MasterGainDB)),
		strips:     make(map[string]*Strip),
	}
	return g, nil
}

// Ready is closed once the reverb impulse has been generated and the graph
// may process triggers.
func (g *Graph) Ready() <-chan struct{} { return g.reverb.Ready() }

// IsReady reports readiness without blocking.
func (g *Graph) IsReady() bool {
	select {
	case <-g.Ready():
		return true
	default:
		return false
	}
}

// ProcessShared runs one mono frame of the shared voice bus through the
// front half of the graph (channel → distortion → filter).
func (g *Graph) ProcessShared(mono float64) (float64, float64) {
	l, r := g.channel.Process(mono)
	l, r = g.distortion.Process(l, r)
	return g.filter.Process(l, r)
}

// ProcessStrip runs one mono frame through a legacy track's private strip.
// Unknown ids contribute silence.
func (g *Graph) ProcessStrip(id string, mono float64) (float64, float64) {
	s, ok := g.strips[id]
	if !ok {
		return 0, 0
	}
	return s.Process(mono)
}

// ProcessMaster runs the summed bus through the tail of the graph
// (reverb → delay → limiter → master gain).
func (g *Graph) ProcessMaster(l, r float64) (float64, float64) {
	l, r = g.reverb.Process(l, r)
	l, r = g.delay.Process(l, r)
	l = g.limL.ProcessSample(l)
	r = g.limR.ProcessSample(r)
	gain := g.master.next()
	return l * gain, r * gain
}

// AddStrip creates the exclusive chain for a legacy track.
func (g *Graph) AddStrip(id string, gain, pan, distortion, cutoffHz, q float64) {
	g.strips[id] = &Strip{
		channel:    NewChannel(g.sampleRate, gain, pan),
		distortion: NewDistortion(g.sampleRate, distortion),
		filter:     NewFilter(g.sampleRate, cutoffHz, q),
	}
}

// RemoveStrip disposes a legacy track's chain.
func (g *Graph) RemoveStrip(id string) {
	delete(g.strips, id)
}

func (g *Graph) HasStrip(id string) bool {
	_, ok := g.strips[id]
	return ok
}

// UpdateStrip re-targets a legacy strip's parameters; changes ramp.
func (g *Graph) UpdateStrip(id string, gain, pan, distortion, cutoffHz, q float64) {
	s, ok := g.strips[id]
	if !ok {
		return
	}
	s.channel.SetGain(gain)
	s.channel.SetPan(pan)
	s.distortion.SetAmount(distortion)
	s.filter.SetCutoff(cutoffHz)
	s.filter.SetResonance(q)
}

// SetSends re-targets the master effect amounts; all changes ramp.
func (g *Graph) SetSends(reverbWet, delayWet, masterGainDB float64) {
	g.reverb.SetWet(reverbWet)
	g.delay.SetWet(delayWet)
	g.master.set(dbToGain(masterGainDB), g.sampleRate/rampSamplesDivisor)
}

// SetSharedTone re-targets the shared-bus stages. Per-track cutoff,
// resonance and distortion are not independently realizable on the shared
// path; the most recent update wins for every pitched track.
func (g *Graph) SetSharedTone(distortion, cutoffHz, q float64) {
	g.distortion.SetAmount(distortion)
	g.filter.SetCutoff(cutoffHz)
	g.filter.SetResonance(q)
}

func (g *Graph) SetSharedPan(pan float64) {
	g.channel.SetPan(pan)
}

// Close tears the graph down: buffers are cleared and strips dropped. Safe
// to call more than once; only the first call does work.
func (g *Graph) Close() {
	g.closeOnce.Do(func() {
		g.closed = true
		g.reverb.Reset()
		g.delay.Reset()
		g.filter.Reset()
		g.limL.Reset()
		g.limR.Reset()
		for id := range g.strips {
			delete(g.strips, id)
		}
	})
}

func (g *Graph) Closed() bool { return g.closed }

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
