package synth

import (
	"math"
	"testing"
)

func pianoSpec(note int, startAt uint64) NoteSpec {
	return NoteSpec{
		Note:        note,
		Velocity:    1,
		Attack:      0.005,
		Decay:       0.3,
		Sustain:     0.4,
		Release:     0.2,
		GateSamples: 4800,
		StartAt:     startAt,
	}
}

func TestPoolGeneratesSignal(t *testing.T) {
	p := NewPool(48000, 8)
	p.Trigger(pianoSpec(60, 0))
	var nonZero bool
	for i := 0; i < 5000; i++ {
		if p.RenderFrame() != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected non-zero output")
	}
}

func TestVoiceAutoReleasesAndReturnsToPool(t *testing.T) {
	p := NewPool(48000, 4)
	spec := pianoSpec(60, 0)
	spec.Decay = 0.005
	spec.GateSamples = 480
	spec.Release = 0.01
	p.Trigger(spec)
	if p.ActiveCount() != 1 {
		t.Fatalf("active = %d, want 1", p.ActiveCount())
	}
	// Attack, decay, gate hold and release tail, plus slack.
	for i := 0; i < 240+240+480+480+2000; i++ {
		p.RenderFrame()
	}
	if p.ActiveCount() != 0 {
		t.Fatalf("voice should free itself after its release tail, active = %d", p.ActiveCount())
	}
}

func TestExhaustedPoolStealsOldestVoice(t *testing.T) {
	p := NewPool(48000, 4)
	for i := 0; i < 4; i++ {
		p.Trigger(pianoSpec(60+i, uint64(i)))
	}
	if p.ActiveCount() != 4 {
		t.Fatalf("active = %d, want full pool", p.ActiveCount())
	}
	p.Trigger(pianoSpec(72, 100))
	if p.ActiveCount() != 4 {
		t.Fatalf("steal must not grow the pool, active = %d", p.ActiveCount())
	}
	// The voice with the earliest start (StartAt 0) must be gone; the
	// newest one must be present.
	var haveNew, haveOldest bool
	for i := range p.voices {
		switch p.voices[i].startAt {
		case 100:
			haveNew = true
		case 0:
			haveOldest = true
		}
	}
	if !haveNew {
		t.Fatalf("new trigger was dropped instead of stealing")
	}
	if haveOldest {
		t.Fatalf("expected the oldest voice to be stolen")
	}
}

func TestScheduledStartIsHonored(t *testing.T) {
	p := NewPool(48000, 4)
	p.Trigger(pianoSpec(60, 1000))
	for i := 0; i < 1000; i++ {
		if s := p.RenderFrame(); s != 0 {
			t.Fatalf("voice sounded %d samples early", 1000-i)
		}
	}
	var nonZero bool
	for i := 0; i < 2000; i++ {
		if p.RenderFrame() != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("voice never started at its scheduled time")
	}
}

func TestCancelPendingDropsOnlyFutureVoices(t *testing.T) {
	p := NewPool(48000, 4)
	p.Trigger(pianoSpec(60, 0))
	for i := 0; i < 100; i++ {
		p.RenderFrame()
	}
	p.Trigger(pianoSpec(64, 5000)) // still in the look-ahead window
	p.CancelPending()
	if p.ActiveCount() != 1 {
		t.Fatalf("active = %d, want only the already-sounding voice", p.ActiveCount())
	}
	// The surviving voice still runs to a clean finish.
	for i := 0; i < 48000; i++ {
		p.RenderFrame()
	}
	if p.ActiveCount() != 0 {
		t.Fatalf("sounding voice should still release cleanly after a cancel")
	}
}

func TestEnvelopeShape(t *testing.T) {
	p := NewPool(48000, 1)
	spec := pianoSpec(60, 0)
	spec.Attack = 0.01 // 480 samples
	spec.GateSamples = 4800
	p.Trigger(spec)
	var peak float64
	for i := 0; i < 600; i++ {
		p.RenderFrame()
		if env := p.voices[0].env; env > peak {
			peak = env
		}
	}
	if math.Abs(peak-1) > 1e-6 {
		t.Fatalf("attack should reach full level, peak env = %v", peak)
	}
	// The 0.3 s decay far outlasts the gate; the hold must still begin at
	// the sustain level, not cut the decay short. Attack (480) + decay
	// (14400) end at 14880; the gate then holds until 19680.
	for i := 600; i < 16000; i++ {
		p.RenderFrame()
	}
	v := p.voices[0]
	if v.stage != envSustain {
		t.Fatalf("after decay stage = %v, want sustain hold", v.stage)
	}
	if math.Abs(v.env-spec.Sustain) > 1e-6 {
		t.Fatalf("sustain env = %v, want %v", v.env, spec.Sustain)
	}
}

func TestMidSessionPoolHonorsAbsoluteTimestamps(t *testing.T) {
	p := NewPool(48000, 4)
	p.SetNow(48000) // pool joins after a second of engine time
	p.Trigger(pianoSpec(60, 48000))

	var nonZero bool
	for i := 0; i < 2000; i++ {
		if p.RenderFrame() != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("voice scheduled at the aligned clock never sounded")
	}
}
