// Package session reads and writes pattern documents. The wire shape
// follows the studio's track payload; loading never rejects a document over
// out-of-range values, it clamps and reconciles instead so an old or
// hand-edited file always produces a playable pattern.
package session

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/probeat/probeat-go/internal/pattern"
)

// File is the serialized form of a whole session.
type File struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	BPM         float64 `json:"bpm" yaml:"bpm"`
	StepCount   int     `json:"stepCount" yaml:"stepCount"`
	Tracks      []TrackRecord `json:"tracks" yaml:"tracks"`
	Sends       *SendsRecord  `json:"sends,omitempty" yaml:"sends,omitempty"`
}

type TrackRecord struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Type     string         `json:"type" yaml:"type"`
	Steps    []bool         `json:"steps" yaml:"steps"`
	Mute     bool           `json:"mute,omitempty" yaml:"mute,omitempty"`
	Solo     bool           `json:"solo,omitempty" yaml:"solo,omitempty"`
	Volume   float64        `json:"volume" yaml:"volume"`
	Pan      float64        `json:"pan,omitempty" yaml:"pan,omitempty"`
	Hidden   bool           `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Settings SettingsRecord `json:"settings" yaml:"settings"`
}

type SettingsRecord struct {
	Pitch      int     `json:"pitch" yaml:"pitch"`
	Attack     float64 `json:"attack" yaml:"attack"`
	Decay      float64 `json:"decay" yaml:"decay"`
	Sustain    float64 `json:"sustain" yaml:"sustain"`
	Release    float64 `json:"release" yaml:"release"`
	Distortion float64 `json:"distortion,omitempty" yaml:"distortion,omitempty"`
	Cutoff     float64 `json:"cutoff" yaml:"cutoff"`
	Resonance  float64 `json:"resonance" yaml:"resonance"`
}

type SendsRecord struct {
	ReverbWet  float64 `json:"reverbWet" yaml:"reverbWet"`
	DelayWet   float64 `json:"delayWet" yaml:"delayWet"`
	MasterGain float64 `json:"masterGain" yaml:"masterGain"`
}

// Parse decodes a session document, accepting JSON first and falling back
// to YAML.
func Parse(data []byte) (File, error) {
	var f File
	if errJSON := json.Unmarshal(data, &f); errJSON != nil {
		f = File{}
		if errYAML := yaml.Unmarshal(data, &f); errYAML != nil {
			return File{}, fmt.Errorf("parse session: %w", errJSON)
		}
	}
	return f, nil
}

// EncodeJSON renders the session as indented JSON, the studio's native
// exchange format.
func EncodeJSON(f File) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// EncodeYAML renders the session as YAML for hand editing.
func EncodeYAML(f File) ([]byte, error) {
	return yaml.Marshal(f)
}

// Apply loads the document into the store. Out-of-range tempo, step count,
// mixer and synthesis values are clamped by the store's reconciliation;
// missing track ids and step rows are filled in here.
func (f File) Apply(st *pattern.Store) {
	tracks := make([]pattern.Track, 0, len(f.Tracks))
	for i, tr := range f.Tracks {
		id := tr.ID
		if id == "" {
			id = fmt.Sprintf("track-%d", i+1)
		}
		steps := make([]bool, len(tr.Steps))
		copy(steps, tr.Steps)
		tracks = append(tracks, pattern.Track{
			ID:    id,
			Name:  tr.Name,
			Kind:  pattern.ParseKind(tr.Type),
			Steps: steps,
			Mixer: pattern.Mixer{
				Muted:  tr.Mute,
				Soloed: tr.Solo,
				Volume: tr.Volume,
				Pan:    tr.Pan,
			},
			Settings: pattern.Settings{
				Pitch:      tr.Settings.Pitch,
				Attack:     tr.Settings.Attack,
				Decay:      tr.Settings.Decay,
				Sustain:    tr.Settings.Sustain,
				Release:    tr.Settings.Release,
				Distortion: tr.Settings.Distortion,
				Cutoff:     tr.Settings.Cutoff,
				Resonance:  tr.Settings.Resonance,
			},
			Hidden: tr.Hidden,
		})
	}
	st.Replace(tracks, f.BPM, f.StepCount)
	if f.Sends != nil {
		st.SetSends(pattern.Sends{
			ReverbWet:    f.Sends.ReverbWet,
			DelayWet:     f.Sends.DelayWet,
			MasterGainDB: f.Sends.MasterGain,
		})
	}
}

// Snapshot captures the store into a document, preserving the metadata of
// the session it was loaded from.
func Snapshot(st *pattern.Store, id, name, description string) File {
	sends := st.Sends()
	f := File{
		ID:          id,
		Name:        name,
		Description: description,
		BPM:         st.Tempo(),
		StepCount:   st.StepCount(),
		Sends: &SendsRecord{
			ReverbWet:  sends.ReverbWet,
			DelayWet:   sends.DelayWet,
			MasterGain: sends.MasterGainDB,
		},
	}
	for _, t := range st.Tracks() {
		steps := make([]bool, len(t.Steps))
		copy(steps, t.Steps)
		f.Tracks = append(f.Tracks, TrackRecord{
			ID:     t.ID,
			Name:   t.Name,
			Type:   t.Kind.String(),
			Steps:  steps,
			Mute:   t.Mixer.Muted,
			Solo:   t.Mixer.Soloed,
			Volume: t.Mixer.Volume,
			Pan:    t.Mixer.Pan,
			Hidden: t.Hidden,
			Settings: SettingsRecord{
				Pitch:      t.Settings.Pitch,
				Attack:     t.Settings.Attack,
				Decay:      t.Settings.Decay,
				Sustain:    t.Settings.Sustain,
				Release:    t.Settings.Release,
				Distortion: t.Settings.Distortion,
				Cutoff:     t.Settings.Cutoff,
				Resonance:  t.Settings.Resonance,
			},
		})
	}
	return f
}
