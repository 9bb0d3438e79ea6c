package effects

import (
	"math"
	"testing"
)

func TestRampReachesTargetInWindow(t *testing.T) {
	r := newRamp(0)
	r.set(1, 100)
	for i := 0; i < 99; i++ {
		r.next()
	}
	if r.value() >= 1 {
		t.Fatalf("ramp arrived early: %v", r.value())
	}
	r.next()
	if r.value() != 1 {
		t.Fatalf("ramp should settle exactly on target, got %v", r.value())
	}
	// Zero-sample ramps jump.
	r.set(0.25, 0)
	if r.value() != 0.25 {
		t.Fatalf("instant set failed: %v", r.value())
	}
}

func TestChannelEqualPowerPan(t *testing.T) {
	hardLeft := NewChannel(48000, 1, -1)
	l, r := hardLeft.Process(1)
	if math.Abs(l-1) > 1e-9 || math.Abs(r) > 1e-9 {
		t.Fatalf("hard left: l=%v r=%v", l, r)
	}
	center := NewChannel(48000, 1, 0)
	l, r = center.Process(1)
	if math.Abs(l-r) > 1e-9 {
		t.Fatalf("center pan should balance channels: l=%v r=%v", l, r)
	}
	if math.Abs(l*l+r*r-1) > 1e-9 {
		t.Fatalf("equal-power pan should keep unit energy, got %v", l*l+r*r)
	}
}

func TestDistortionZeroAmountIsPassthrough(t *testing.T) {
	d := NewDistortion(48000, 0)
	l, r := d.Process(0.7, -0.3)
	if l != 0.7 || r != -0.3 {
		t.Fatalf("amount 0 must not color the signal: l=%v r=%v", l, r)
	}
}

func TestDistortionBoundsLoudInput(t *testing.T) {
	d := NewDistortion(48000, 1)
	l, _ := d.Process(10, 10)
	if math.Abs(l) > 1.0 {
		t.Fatalf("fully driven tanh shaping should stay bounded, got %v", l)
	}
	if l == 0 {
		t.Fatalf("expected non-zero shaped output")
	}
}

func TestFilterAttenuatesAboveCutoff(t *testing.T) {
	const sr = 48000
	f := NewFilter(sr, 500, 0.707)
	energyAt := func(freq float64) float64 {
		f.Reset()
		var e float64
		for i := 0; i < sr/2; i++ {
			x := math.Sin(2 * math.Pi * freq * float64(i) / sr)
			l, _ := f.Process(x, x)
			if i > sr/4 { // skip transient
				e += l * l
			}
		}
		return e
	}
	low := energyAt(100)
	high := energyAt(8000)
	if high >= low/10 {
		t.Fatalf("lowpass at 500 Hz: energy(8k)=%v should be well below energy(100)=%v", high, low)
	}
}

func TestFilterRampSettlesOnTarget(t *testing.T) {
	const sr = 48000
	f := NewFilter(sr, 20000, 1)
	f.SetCutoff(500)
	for i := 0; i < sr/5; i++ { // well past the ~100 ms ramp
		f.Process(0, 0)
	}
	if f.designedCutoff != 500 {
		t.Fatalf("coefficients should settle exactly on the target cutoff, got %v", f.designedCutoff)
	}
}

func TestDelayEchoesAfterSetTime(t *testing.T) {
	const sr = 48000
	d := NewDelay(sr, 0.1, 0.5, 1) // fully wet for the probe
	d.Process(1, 1)
	for i := 0; i < sr/10-2; i++ {
		d.Process(0, 0)
	}
	var found bool
	for i := 0; i < 4; i++ {
		l, _ := d.Process(0, 0)
		if math.Abs(l) > 0.01 {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected an echo at ~100 ms")
	}
}

func TestReverbTailAppearsOnceReady(t *testing.T) {
	r := NewReverb(48000, 1.5, 1)
	<-r.Ready()
	r.Process(1, 1)
	var maxOut float64
	for i := 0; i < 20000; i++ {
		l, _ := r.Process(0, 0)
		if math.Abs(l) > maxOut {
			maxOut = math.Abs(l)
		}
	}
	if maxOut < 0.001 {
		t.Fatalf("expected a reverb tail after the impulse")
	}
}

func TestGraphReadinessAndLifecycle(t *testing.T) {
	g, err := NewGraph(DefaultGraphConfig(48000))
	if err != nil {
		t.Fatalf("wire graph: %v", err)
	}
	<-g.Ready()
	if !g.IsReady() {
		t.Fatalf("IsReady should agree with Ready")
	}
	l, r := g.ProcessShared(0.5)
	l, r = g.ProcessMaster(l, r)
	if math.IsNaN(l) || math.IsNaN(r) {
		t.Fatalf("graph produced NaN")
	}
	g.Close()
	g.Close() // idempotent
	if !g.Closed() {
		t.Fatalf("graph should report closed")
	}
}

func TestGraphStripLifecycle(t *testing.T) {
	g, err := NewGraph(DefaultGraphConfig(48000))
	if err != nil {
		t.Fatalf("wire graph: %v", err)
	}
	if l, r := g.ProcessStrip("missing", 1); l != 0 || r != 0 {
		t.Fatalf("unknown strip must contribute silence")
	}
	g.AddStrip("drum-1", 0.8, 0, 0.2, 4000, 1)
	if !g.HasStrip("drum-1") {
		t.Fatalf("strip not registered")
	}
	l, r := g.ProcessStrip("drum-1", 0.5)
	if l == 0 && r == 0 {
		t.Fatalf("strip should pass signal")
	}
	g.RemoveStrip("drum-1")
	if g.HasStrip("drum-1") {
		t.Fatalf("strip should be disposed on removal")
	}
}

func TestLimiterHoldsCeiling(t *testing.T) {
	g, err := NewGraph(DefaultGraphConfig(48000))
	if err != nil {
		t.Fatalf("wire graph: %v", err)
	}
	<-g.Ready()
	var peak float64
	for i := 0; i < 48000; i++ {
		l, r := g.ProcessMaster(4, 4) // grossly hot bus
		if a := math.Abs(l); a > peak {
			peak = a
		}
		if a := math.Abs(r); a > peak {
			peak = a
		}
	}
	if peak > 1.2 {
		t.Fatalf("limiter should hold the output near the ceiling, peak=%v", peak)
	}
}
