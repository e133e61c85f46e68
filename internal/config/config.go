// Package config loads and validates the TOML session manifest describing
// one composition: the audio tracks, ducking relationships, visual effects,
// the raw render to read frames from, and the output artifact.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/linuxmatters/dubstage/internal/mix"
	"github.com/linuxmatters/dubstage/internal/vfx"
)

//go:embed sample_session.toml
var sampleSession string

// Stock values for manifest fields that may be omitted. The ducking curve
// matches the mixer's conventional defaults.
const (
	DefaultSampleRate     = 48000
	DefaultFrameRate      = 30.0
	DefaultContainer      = "mp4"
	DefaultVolume         = 1.0
	DefaultReductionDb    = -12.0
	DefaultAttackMs       = 100.0
	DefaultReleaseMs      = 200.0
	DefaultVoiceThreshold = 0.1

	// LastFrame is the end_frame sentinel meaning "through the final frame",
	// resolved once the sequence length is known.
	LastFrame = -1
)

// Duration is a time.Duration that reads from TOML duration strings such as
// "1.5s" or "200ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Session contains the mixing parameters shared by every track.
type Session struct {
	SampleRate int  `toml:"sample_rate"`
	Normalize  bool `toml:"normalize"`
}

// Output describes the final artifact and where the report lands.
type Output struct {
	Path      string  `toml:"path"`
	Container string  `toml:"container"`
	FrameRate float64 `toml:"frame_rate"`
	ReportDir string  `toml:"report_dir"`
}

// Track is one audio input. Pointer fields distinguish an omitted value
// from an explicit zero; accessors resolve the defaults.
type Track struct {
	ID          string   `toml:"id"`
	Path        string   `toml:"path"`
	Volume      *float64 `toml:"volume"`
	StartOffset Duration `toml:"start_offset"`
	FadeIn      Duration `toml:"fade_in"`
	FadeOut     Duration `toml:"fade_out"`
}

// Gain returns the track's linear gain, DefaultVolume when omitted.
func (t Track) Gain() float64 {
	if t.Volume == nil {
		return DefaultVolume
	}
	return *t.Volume
}

// Ducking declares that target should be attenuated while reference carries
// voice. Omitted numbers take the stock curve.
type Ducking struct {
	Reference   string   `toml:"reference"`
	Target      string   `toml:"target"`
	ReductionDb *float64 `toml:"reduction_db"`
	AttackMs    *float64 `toml:"attack_ms"`
	ReleaseMs   *float64 `toml:"release_ms"`
	Threshold   *float64 `toml:"threshold"`
}

// Spec resolves the entry to the mixer's spec type.
func (d Ducking) Spec() mix.DuckingSpec {
	return mix.DuckingSpec{
		Reference:      d.Reference,
		Target:         d.Target,
		ReductionDb:    orDefault(d.ReductionDb, DefaultReductionDb),
		AttackMs:       orDefault(d.AttackMs, DefaultAttackMs),
		ReleaseMs:      orDefault(d.ReleaseMs, DefaultReleaseMs),
		VoiceThreshold: orDefault(d.Threshold, DefaultVoiceThreshold),
	}
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Effect is one entry of the ordered effect pipeline. EndFrame may be
// LastFrame (or omitted) to run through the final frame.
type Effect struct {
	Kind       string  `toml:"kind"`
	Preset     string  `toml:"preset"`
	Intensity  float64 `toml:"intensity"`
	StartFrame int     `toml:"start_frame"`
	EndFrame   *int    `toml:"end_frame"`
	Seed       int64   `toml:"seed"`
	OffsetPx   int     `toml:"offset_px"`
}

// Resolve returns the pipeline effect with the end-frame sentinel resolved
// against the actual sequence length.
func (e Effect) Resolve(frameCount int) vfx.Effect {
	end := LastFrame
	if e.EndFrame != nil {
		end = *e.EndFrame
	}
	if end == LastFrame {
		end = frameCount - 1
	}
	return vfx.Effect{
		Kind:       vfx.Kind(e.Kind),
		Intensity:  e.Intensity,
		StartFrame: e.StartFrame,
		EndFrame:   end,
		Preset:     vfx.Preset(e.Preset),
		Seed:       e.Seed,
		OffsetPx:   e.OffsetPx,
	}
}

// Video names the raw render whose frames feed the effect pipeline.
type Video struct {
	Path string `toml:"path"`
}

// Manifest is one composition session.
type Manifest struct {
	Session Session   `toml:"session"`
	Output  Output    `toml:"output"`
	Tracks  []Track   `toml:"tracks"`
	Ducking []Ducking `toml:"ducking"`
	Effects []Effect  `toml:"effects"`
	Video   Video     `toml:"video"`

	// Source is the resolved manifest path, set by Load.
	Source string `toml:"-"`
}

// Default returns a manifest with the stock session and output settings.
// Tracks, ducking, effects, and the video path have no defaults.
func Default() Manifest {
	return Manifest{
		Session: Session{SampleRate: DefaultSampleRate, Normalize: true},
		Output: Output{
			Path:      "final.mp4",
			Container: DefaultContainer,
			FrameRate: DefaultFrameRate,
			ReportDir: ".",
		},
	}
}

// Load parses and validates the manifest at path. Relative paths inside the
// manifest are resolved against the manifest's own directory.
func Load(path string) (*Manifest, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	m := Default()
	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m.Source = resolved
	if err := m.normalize(filepath.Dir(resolved)); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// normalize resolves every path field against baseDir.
func (m *Manifest) normalize(baseDir string) error {
	resolve := func(p string) (string, error) {
		if p == "" {
			return p, nil
		}
		expanded, err := expandPath(p)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(p) && !strings.HasPrefix(p, "~") {
			expanded = filepath.Join(baseDir, p)
		}
		return expanded, nil
	}

	var err error
	if m.Output.Path, err = resolve(m.Output.Path); err != nil {
		return err
	}
	if m.Output.ReportDir, err = resolve(m.Output.ReportDir); err != nil {
		return err
	}
	if m.Video.Path, err = resolve(m.Video.Path); err != nil {
		return err
	}
	for i := range m.Tracks {
		if m.Tracks[i].Path, err = resolve(m.Tracks[i].Path); err != nil {
			return err
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	return filepath.Clean(pathValue), nil
}

// CreateSample writes an annotated sample manifest to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleSession), 0o644); err != nil {
		return fmt.Errorf("write sample manifest: %w", err)
	}
	return nil
}
