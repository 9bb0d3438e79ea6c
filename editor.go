package probeat

import (
	"github.com/probeat/probeat-go/internal/pattern"
)

// Editor methods mutate the pattern under the engine mutex, so edits land
// between audio buffers. In-flight voices are never touched; changed
// parameters apply from the next trigger, mixer and strip changes ramp.

// ToggleStep flips one cell. Toggling near the tail of the grid grows the
// pattern, up to the step ceiling.
func (e *Engine) ToggleStep(trackID string, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ToggleStep(trackID, index)
}

// SetStepCount resizes the grid for all tracks at once.
func (e *Engine) SetStepCount(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetStepCount(n)
}

func (e *Engine) StepCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.StepCount()
}

// AddTrack appends a track; legacy tracks get their private pool and strip
// here.
func (e *Engine) AddTrack(t pattern.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.AddTrack(t)
	e.syncStrips()
}

// RemoveTrack drops a track and disposes any strip it owned. Sounding
// voices in a removed legacy pool are cut with the pool.
func (e *Engine) RemoveTrack(trackID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.store.RemoveTrack(trackID)
	if ok {
		e.syncStrips()
	}
	return ok
}

func (e *Engine) ToggleMute(trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ToggleMute(trackID)
}

func (e *Engine) ToggleSolo(trackID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ToggleSolo(trackID)
}

func (e *Engine) SetVolume(trackID string, db float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetVolume(trackID, db)
}

func (e *Engine) SetPan(trackID string, pan float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SetPan(trackID, pan); err != nil {
		return err
	}
	if t, ok := e.store.Find(trackID); ok && t.Kind == pattern.KindLegacy {
		e.syncStrips()
	}
	return nil
}

func (e *Engine) SetHidden(trackID string, hidden bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.SetHidden(trackID, hidden)
}

// SetSettings replaces a track's synthesis parameters. Legacy strips ramp
// to the new tone immediately; pitched tracks pick it up on the next
// trigger.
func (e *Engine) SetSettings(trackID string, s pattern.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SetSettings(trackID, s); err != nil {
		return err
	}
	if t, ok := e.store.Find(trackID); ok && t.Kind == pattern.KindLegacy {
		e.syncStrips()
	}
	return nil
}

// Reorder moves a track to a new display position.
func (e *Engine) Reorder(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Reorder(from, to)
}

// SetSends re-targets the master effect amounts; changes ramp. Requests
// before the graph is ready are dropped, not queued.
func (e *Engine) SetSends(s pattern.Sends) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.graph.IsReady() {
		e.logger.Warn("sends change dropped, graph not ready")
		return
	}
	e.store.SetSends(s)
	applied := e.store.Sends()
	e.graph.SetSends(applied.ReverbWet, applied.DelayWet, applied.MasterGainDB)
}

// Tracks returns a deep copy of the track list, safe to hand to a UI.
func (e *Engine) Tracks() []pattern.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	src := e.store.Tracks()
	out := make([]pattern.Track, len(src))
	for i := range src {
		out[i] = src[i].Copy()
	}
	return out
}
