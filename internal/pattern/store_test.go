package pattern

import (
	"errors"
	"math"
	"testing"
)

func newTestStore(stepCount int, ids ...string) *Store {
	s := NewStore()
	if err := s.SetStepCount(stepCount); err != nil {
		panic(err)
	}
	for _, id := range ids {
		s.AddTrack(Track{ID: id, Name: id, Settings: DefaultSettings()})
	}
	return s
}

func assertLengthInvariant(t *testing.T, s *Store) {
	t.Helper()
	for _, tr := range s.Tracks() {
		if len(tr.Steps) != s.StepCount() {
			t.Fatalf("track %s has %d steps, store has %d", tr.ID, len(tr.Steps), s.StepCount())
		}
	}
}

func TestToggleStepPairIsIdempotent(t *testing.T) {
	s := newTestStore(16, "a")
	if err := s.ToggleStep("a", 3); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := s.ToggleStep("a", 3); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	tr, _ := s.Find("a")
	if tr.Steps[3] {
		t.Fatalf("double toggle should restore the bit")
	}
	if s.StepCount() != 16 {
		t.Fatalf("step count changed to %d; toggles away from the tail must not grow", s.StepCount())
	}
	assertLengthInvariant(t, s)
}

func TestToggleNearTailGrowsPattern(t *testing.T) {
	s := newTestStore(16, "a", "b")
	s.Tracks()[0].Steps[0] = true
	s.Tracks()[0].Steps[7] = true

	if err := s.ToggleStep("a", 15); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s.StepCount() != 32 {
		t.Fatalf("step count = %d, want 32", s.StepCount())
	}
	tr, _ := s.Find("a")
	if !tr.Steps[0] || !tr.Steps[7] {
		t.Fatalf("pre-existing bits must survive growth")
	}
	if !tr.Steps[15] {
		t.Fatalf("toggled index should be set after growth")
	}
	for i := 16; i < 32; i++ {
		if tr.Steps[i] {
			t.Fatalf("new tail should be zero-filled, step %d set", i)
		}
	}
	assertLengthInvariant(t, s)
}

func TestToggleGrowthStopsAtMax(t *testing.T) {
	s := newTestStore(64, "a")
	if err := s.ToggleStep("a", 63); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s.StepCount() != 64 {
		t.Fatalf("step count = %d, must never exceed %d", s.StepCount(), MaxSteps)
	}
	// A second tail grow from 56 may only reach 64, not 72.
	s2 := newTestStore(16, "a")
	for s2.StepCount() < 64 {
		before := s2.StepCount()
		if err := s2.ToggleStep("a", s2.StepCount()-1); err != nil {
			t.Fatalf("toggle at %d: %v", before, err)
		}
		if s2.StepCount() <= before {
			t.Fatalf("expected growth past %d", before)
		}
	}
	assertLengthInvariant(t, s2)
}

func TestToggleStepRejectsOutOfPatternIndex(t *testing.T) {
	s := newTestStore(16, "a")
	for _, index := range []int{-1, 16, 30, MaxSteps} {
		if err := s.ToggleStep("a", index); !errors.Is(err, ErrInvalidStepIndex) {
			t.Fatalf("ToggleStep(%d) = %v, want ErrInvalidStepIndex", index, err)
		}
		if s.StepCount() != 16 {
			t.Fatalf("rejected toggle must not grow the pattern, got %d", s.StepCount())
		}
	}
	tr, _ := s.Find("a")
	for i, bit := range tr.Steps {
		if bit {
			t.Fatalf("rejected toggle flipped step %d", i)
		}
	}
}

func TestSetStepCountRejectsOutOfRange(t *testing.T) {
	s := newTestStore(16, "a")
	for _, n := range []int{0, 3, 65, -8, 1000} {
		if err := s.SetStepCount(n); !errors.Is(err, ErrInvalidStepCount) {
			t.Fatalf("SetStepCount(%d) = %v, want ErrInvalidStepCount", n, err)
		}
		if s.StepCount() != 16 {
			t.Fatalf("rejected resize must not change state, got %d", s.StepCount())
		}
	}
	if err := s.SetStepCount(8); err != nil {
		t.Fatalf("SetStepCount(8): %v", err)
	}
	assertLengthInvariant(t, s)
}

func TestSoloPrecedesMute(t *testing.T) {
	s := newTestStore(16, "a", "b")
	if err := s.ToggleSolo("a"); err != nil {
		t.Fatalf("solo: %v", err)
	}
	a, _ := s.Find("a")
	b, _ := s.Find("b")
	if !Audible(a, s.SoloActive()) {
		t.Fatalf("soloed track must be audible")
	}
	if Audible(b, s.SoloActive()) {
		t.Fatalf("unsoloed track must be silent while a solo is active")
	}
	// Solo wins even over the soloed track's own mute being clear on others.
	if err := s.ToggleSolo("a"); err != nil {
		t.Fatalf("unsolo: %v", err)
	}
	if err := s.ToggleMute("b"); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if !Audible(a, s.SoloActive()) || Audible(b, s.SoloActive()) {
		t.Fatalf("with no solo, mute alone decides audibility")
	}
}

func TestVelocityMapping(t *testing.T) {
	if v := Velocity(0); math.Abs(v-1) > 1e-9 {
		t.Fatalf("0 dB → %v, want 1.0", v)
	}
	if v := Velocity(-60); math.Abs(v-0.001) > 1e-9 {
		t.Fatalf("-60 dB → %v, want ~0.001", v)
	}
	if v := Velocity(6); v != 1 {
		t.Fatalf("+6 dB → %v, want clamp at 1", v)
	}
	prev := -1.0
	for db := -60.0; db <= 0; db += 0.5 {
		v := Velocity(db)
		if v <= prev {
			t.Fatalf("velocity mapping must be monotonic: %v dB → %v after %v", db, v, prev)
		}
		prev = v
	}
}

func TestReorderIsStableMove(t *testing.T) {
	s := newTestStore(16, "a", "b", "c", "d")
	s.Reorder(0, 2)
	got := make([]string, 0, 4)
	for _, tr := range s.Tracks() {
		got = append(got, tr.ID)
	}
	want := []string{"b", "c", "a", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after move = %v, want %v", got, want)
		}
	}
	// Out-of-range moves are ignored.
	s.Reorder(-1, 2)
	s.Reorder(0, 9)
	if s.Tracks()[0].ID != "b" {
		t.Fatalf("invalid moves must not mutate order")
	}
}

func TestReplaceReconcilesMalformedSessions(t *testing.T) {
	s := NewStore()
	s.Replace([]Track{
		{ID: "short", Steps: []bool{true, true}},
		{ID: "long", Steps: make([]bool, 200)},
		{ID: "loud", Mixer: Mixer{Volume: 40, Pan: -3}, Settings: Settings{Cutoff: 99999, Pitch: 100}},
	}, 999, 7)
	if s.StepCount() != 7 {
		t.Fatalf("step count = %d, want 7", s.StepCount())
	}
	if s.Tempo() != MaxTempo {
		t.Fatalf("tempo = %v, want clamp at %d", s.Tempo(), MaxTempo)
	}
	assertLengthInvariant(t, s)
	loud, _ := s.Find("loud")
	if loud.Mixer.Volume != 6 || loud.Mixer.Pan != -1 {
		t.Fatalf("mixer not clamped: %+v", loud.Mixer)
	}
	if loud.Settings.Cutoff != 20000 || loud.Settings.Pitch != 24 {
		t.Fatalf("settings not clamped: %+v", loud.Settings)
	}
	short, _ := s.Find("short")
	if !short.Steps[0] || !short.Steps[1] {
		t.Fatalf("existing bits must survive padding")
	}
}

func TestRemoveTrack(t *testing.T) {
	s := newTestStore(16, "a", "b")
	if !s.RemoveTrack("a") {
		t.Fatalf("expected removal")
	}
	if s.RemoveTrack("a") {
		t.Fatalf("second removal should report false")
	}
	if _, ok := s.Find("a"); ok {
		t.Fatalf("track still present after removal")
	}
	if _, ok := s.Find("b"); !ok {
		t.Fatalf("unrelated track lost")
	}
}

func TestParseKind(t *testing.T) {
	if ParseKind("piano") != KindPitched || ParseKind("") != KindPitched {
		t.Fatalf("piano tracks ride the shared voice path")
	}
	if ParseKind("drum") != KindLegacy {
		t.Fatalf("unknown types fall back to the legacy per-track chain")
	}
}
