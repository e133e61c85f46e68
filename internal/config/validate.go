package config

import (
	"errors"
	"fmt"

	"github.com/linuxmatters/dubstage/internal/mux"
	"github.com/linuxmatters/dubstage/internal/vfx"
)

// Validate ensures the manifest describes a runnable composition. Checks
// needing runtime knowledge (decoded durations, the actual frame count) stay
// with the engine; everything detectable from the manifest alone is caught
// here.
func (m *Manifest) Validate() error {
	if err := m.validateSession(); err != nil {
		return err
	}
	if err := m.validateOutput(); err != nil {
		return err
	}
	if err := m.validateTracks(); err != nil {
		return err
	}
	if err := m.validateDucking(); err != nil {
		return err
	}
	if err := m.validateEffects(); err != nil {
		return err
	}
	if err := m.validateVideo(); err != nil {
		return err
	}
	return nil
}

func (m *Manifest) validateSession() error {
	if m.Session.SampleRate <= 0 {
		return errors.New("session.sample_rate must be positive")
	}
	return nil
}

func (m *Manifest) validateOutput() error {
	if m.Output.Path == "" {
		return errors.New("output.path must be set")
	}
	if !mux.SupportedContainer(m.Output.Container) {
		return fmt.Errorf("output.container %q is not supported (choose from %v)", m.Output.Container, mux.Containers())
	}
	if m.Output.FrameRate <= 0 {
		return errors.New("output.frame_rate must be positive")
	}
	if m.Output.ReportDir == "" {
		return errors.New("output.report_dir must be set")
	}
	return nil
}

func (m *Manifest) validateTracks() error {
	if len(m.Tracks) == 0 {
		return errors.New("at least one [[tracks]] entry is required")
	}
	seen := make(map[string]bool, len(m.Tracks))
	for i, t := range m.Tracks {
		if t.ID == "" {
			return fmt.Errorf("tracks[%d].id must be set", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("tracks[%d].id %q is a duplicate", i, t.ID)
		}
		seen[t.ID] = true
		if t.Path == "" {
			return fmt.Errorf("track %q: path must be set", t.ID)
		}
		if t.Gain() < 0 {
			return fmt.Errorf("track %q: volume must be >= 0", t.ID)
		}
		if t.StartOffset < 0 {
			return fmt.Errorf("track %q: start_offset must be >= 0", t.ID)
		}
		if t.FadeIn < 0 || t.FadeOut < 0 {
			return fmt.Errorf("track %q: fades must be >= 0", t.ID)
		}
	}
	return nil
}

func (m *Manifest) validateDucking() error {
	ids := make(map[string]bool, len(m.Tracks))
	for _, t := range m.Tracks {
		ids[t.ID] = true
	}
	for i, d := range m.Ducking {
		if err := d.Spec().Validate(); err != nil {
			return fmt.Errorf("ducking[%d]: %w", i, err)
		}
		if !ids[d.Reference] {
			return fmt.Errorf("ducking[%d].reference %q does not name a track", i, d.Reference)
		}
		if !ids[d.Target] {
			return fmt.Errorf("ducking[%d].target %q does not name a track", i, d.Target)
		}
	}
	return nil
}

func (m *Manifest) validateEffects() error {
	kinds := make(map[vfx.Kind]bool)
	for _, k := range vfx.Kinds() {
		kinds[k] = true
	}
	presets := make(map[vfx.Preset]bool)
	for _, p := range vfx.Presets() {
		presets[p] = true
	}

	for i, e := range m.Effects {
		if !kinds[vfx.Kind(e.Kind)] {
			return fmt.Errorf("effects[%d].kind %q is not known (choose from %v)", i, e.Kind, vfx.Kinds())
		}
		if vfx.Kind(e.Kind) == vfx.KindColorGrade && !presets[vfx.Preset(e.Preset)] {
			return fmt.Errorf("effects[%d].preset %q is not known (choose from %v)", i, e.Preset, vfx.Presets())
		}
		if e.Intensity < 0 {
			return fmt.Errorf("effects[%d].intensity must be >= 0", i)
		}
		if e.StartFrame < 0 {
			return fmt.Errorf("effects[%d].start_frame must be >= 0", i)
		}
		if e.EndFrame != nil && *e.EndFrame != LastFrame && *e.EndFrame < e.StartFrame {
			return fmt.Errorf("effects[%d].end_frame %d is before start_frame %d", i, *e.EndFrame, e.StartFrame)
		}
	}
	return nil
}

func (m *Manifest) validateVideo() error {
	if m.Video.Path == "" {
		return errors.New("video.path must be set")
	}
	return nil
}
