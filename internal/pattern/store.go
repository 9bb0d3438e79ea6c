package pattern

import (
	"errors"
	"math"
)

const (
	MinSteps = 4
	MaxSteps = 64
	MinTempo = 60
	MaxTempo = 200

	// growQuantum is how many steps a pattern grows by when a toggle lands
	// near its tail, capped so stepCount never exceeds MaxSteps.
	growQuantum = 16
)

// ErrInvalidStepCount is returned when a requested step count falls outside
// [MinSteps, MaxSteps]. The store is left unchanged.
var ErrInvalidStepCount = errors.New("step count out of range")

// ErrInvalidStepIndex is returned when a toggle addresses a step outside
// the current pattern. The store is left unchanged.
var ErrInvalidStepIndex = errors.New("step index out of range")

var ErrUnknownTrack = errors.New("unknown track id")

// Kind selects which trigger path a track uses.
type Kind int

const (
	// KindPitched tracks share the polyphonic voice pool and the common
	// bus effects; only pitch and velocity vary per trigger.
	KindPitched Kind = iota
	// KindLegacy tracks each own an exclusive processing strip, created
	// when the track is added and disposed when it is removed.
	KindLegacy
)

func (k Kind) String() string {
	if k == KindLegacy {
		return "legacy"
	}
	return "piano"
}

// ParseKind maps a session payload track type to a Kind. The frontend only
// ever sends "piano"; anything else is treated as a legacy per-track chain.
func ParseKind(s string) Kind {
	if s == "piano" || s == "" {
		return KindPitched
	}
	return KindLegacy
}

// Settings are the per-track synthesis parameters, snapshotted by a voice at
// trigger time.
type Settings struct {
	Pitch      int     // semitone offset from C4, -24..24
	Attack     float64 // seconds
	Decay      float64 // seconds
	Sustain    float64 // 0..1
	Release    float64 // seconds
	Distortion float64 // 0..1
	Cutoff     float64 // Hz, 20..20000
	Resonance  float64 // filter Q
}

// DefaultSettings mirrors the stock piano patch of the original studio.
func DefaultSettings() Settings {
	return Settings{
		Pitch:      0,
		Attack:     0.005,
		Decay:      0.3,
		Sustain:    0.4,
		Release:    1.2,
		Distortion: 0,
		Cutoff:     20000,
		Resonance:  1,
	}
}

// Mixer is the per-track audibility state.
type Mixer struct {
	Muted  bool
	Soloed bool
	Volume float64 // dB, -60..+6
	Pan    float64 // -1 (left) .. +1 (right)
}

// Track is one row of the sequencer grid. Steps always has length equal to
// the store's step count; every resize runs over all tracks in the same
// mutation.
type Track struct {
	ID       string
	Name     string
	Kind     Kind
	Steps    []bool
	Mixer    Mixer
	Settings Settings
	Hidden   bool // display-only, no audio effect
}

func (t *Track) Copy() Track {
	steps := make([]bool, len(t.Steps))
	copy(steps, t.Steps)
	c := *t
	c.Steps = steps
	return c
}

// Sends are the master effect amounts applied at the shared bus.
type Sends struct {
	ReverbWet    float64 // 0..1
	DelayWet     float64 // 0..1
	MasterGainDB float64 // dB
}

// Store owns all track and transport state. It is not internally locked:
// the engine serializes edits and scheduler reads onto one timeline, so the
// scheduler always observes a consistent snapshot.
type Store struct {
	tracks    []Track
	stepCount int
	tempo     float64
	sends     Sends
}

func NewStore() *Store {
	return &Store{
		stepCount: 16,
		tempo:     120,
		sends:     Sends{ReverbWet: 0.2, DelayWet: 0.15, MasterGainDB: 0},
	}
}

func (s *Store) StepCount() int  { return s.stepCount }
func (s *Store) Tempo() float64  { return s.tempo }
func (s *Store) Sends() Sends    { return s.sends }
func (s *Store) Tracks() []Track { return s.tracks }

// Find returns a pointer into the store; the caller must not retain it
// across mutations.
func (s *Store) Find(id string) (*Track, bool) {
	for i := range s.tracks {
		if s.tracks[i].ID == id {
			return &s.tracks[i], true
		}
	}
	return nil, false
}

func (s *Store) SetTempo(bpm float64) {
	s.tempo = clamp(bpm, MinTempo, MaxTempo)
}

func (s *Store) SetSends(sends Sends) {
	s.sends = Sends{
		ReverbWet:    clamp(sends.ReverbWet, 0, 1),
		DelayWet:     clamp(sends.DelayWet, 0, 1),
		MasterGainDB: clamp(sends.MasterGainDB, -60, 6),
	}
}

// ToggleStep flips one step bit. A toggle landing on either of the last two
// positions first grows the pattern by min(growQuantum, MaxSteps-stepCount),
// zero-extending every track, then applies the flip; growth and flip are one
// mutation. Step count never shrinks from a toggle, and an index outside
// the current pattern is rejected rather than forcing growth.
func (s *Store) ToggleStep(id string, index int) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	if index < 0 || index >= s.stepCount {
		return ErrInvalidStepIndex
	}
	if index >= s.stepCount-2 && s.stepCount < MaxSteps {
		grown := s.stepCount + growQuantum
		if grown > MaxSteps {
			grown = MaxSteps
		}
		s.resize(grown)
	}
	t.Steps[index] = !t.Steps[index]
	return nil
}

// SetStepCount resizes every track's pattern by truncation or zero
// extension. Counts outside [MinSteps, MaxSteps] are rejected with no state
// change.
func (s *Store) SetStepCount(n int) error {
	if n < MinSteps || n > MaxSteps {
		return ErrInvalidStepCount
	}
	s.resize(n)
	return nil
}

func (s *Store) resize(n int) {
	s.stepCount = n
	for i := range s.tracks {
		s.tracks[i].Steps = resizeSteps(s.tracks[i].Steps, n)
	}
}

func resizeSteps(steps []bool, n int) []bool {
	if len(steps) == n {
		return steps
	}
	if len(steps) > n {
		return steps[:n]
	}
	out := make([]bool, n)
	copy(out, steps)
	return out
}

// AddTrack appends a track, reconciling its pattern length and clamping its
// mixer and synthesis ranges.
func (s *Store) AddTrack(t Track) {
	normalizeTrack(&t, s.stepCount)
	s.tracks = append(s.tracks, t)
}

func (s *Store) RemoveTrack(id string) bool {
	for i := range s.tracks {
		if s.tracks[i].ID == id {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) ToggleMute(id string) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	t.Mixer.Muted = !t.Mixer.Muted
	return nil
}

func (s *Store) ToggleSolo(id string) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	t.Mixer.Soloed = !t.Mixer.Soloed
	return nil
}

func (s *Store) SetVolume(id string, db float64) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	t.Mixer.Volume = clamp(db, -60, 6)
	return nil
}

func (s *Store) SetPan(id string, pan float64) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	t.Mixer.Pan = clamp(pan, -1, 1)
	return nil
}

func (s *Store) SetHidden(id string, hidden bool) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	t.Hidden = hidden
	return nil
}

func (s *Store) SetSettings(id string, settings Settings) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrUnknownTrack
	}
	t.Settings = clampSettings(settings)
	return nil
}

// Reorder moves the track at index from to index to, keeping the relative
// order of the rest. Display-order only; playback is unaffected.
func (s *Store) Reorder(from, to int) {
	n := len(s.tracks)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	t := s.tracks[from]
	s.tracks = append(s.tracks[:from], s.tracks[from+1:]...)
	s.tracks = append(s.tracks[:to], append([]Track{t}, s.tracks[to:]...)...)
}

// Replace swaps in a whole new session. Out-of-range values are clamped and
// mismatched pattern lengths reconciled; a best-effort playable state always
// results.
func (s *Store) Replace(tracks []Track, tempo float64, stepCount int) {
	if stepCount < MinSteps {
		stepCount = MinSteps
	}
	if stepCount > MaxSteps {
		stepCount = MaxSteps
	}
	s.stepCount = stepCount
	s.tempo = clamp(tempo, MinTempo, MaxTempo)
	s.tracks = make([]Track, 0, len(tracks))
	for _, t := range tracks {
		normalizeTrack(&t, stepCount)
		s.tracks = append(s.tracks, t)
	}
}

// SoloActive reports whether any track is soloed, in which case only soloed
// tracks are audible.
func (s *Store) SoloActive() bool {
	for i := range s.tracks {
		if s.tracks[i].Mixer.Soloed {
			return true
		}
	}
	return false
}

// Audible applies the solo-over-mute arbitration for one track.
func Audible(t *Track, soloActive bool) bool {
	if soloActive {
		return t.Mixer.Soloed
	}
	return !t.Mixer.Muted
}

// Velocity maps a track volume in dB to a 0..1 trigger velocity.
func Velocity(volumeDB float64) float64 {
	return clamp(math.Pow(10, volumeDB/20), 0, 1)
}

func normalizeTrack(t *Track, stepCount int) {
	t.Steps = resizeSteps(t.Steps, stepCount)
	t.Mixer.Volume = clamp(t.Mixer.Volume, -60, 6)
	t.Mixer.Pan = clamp(t.Mixer.Pan, -1, 1)
	t.Settings = clampSettings(t.Settings)
}

func clampSettings(c Settings) Settings {
	c.Pitch = clampInt(c.Pitch, -24, 24)
	c.Attack = clamp(c.Attack, 0, 10)
	c.Decay = clamp(c.Decay, 0, 10)
	c.Sustain = clamp(c.Sustain, 0, 1)
	c.Release = clamp(c.Release, 0, 30)
	c.Distortion = clamp(c.Distortion, 0, 1)
	c.Cutoff = clamp(c.Cutoff, 20, 20000)
	if c.Resonance <= 0 {
		c.Resonance = 1
	}
	c.Resonance = clamp(c.Resonance, 0.1, 20)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
