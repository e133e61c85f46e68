package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/dubstage/internal/config"
)

const fullManifest = `
[session]
sample_rate = 44100
normalize   = false

[output]
path       = "out/final.mkv"
container  = "mkv"
frame_rate = 25.0
report_dir = "reports"

[video]
path = "render.mp4"

[[tracks]]
id           = "narration"
path         = "audio/voice.wav"
start_offset = "250ms"
fade_in      = "1.5s"

[[tracks]]
id      = "music"
path    = "audio/bed.flac"
volume  = 0.8

[[ducking]]
reference    = "narration"
target       = "music"
reduction_db = -9.0

[[effects]]
kind        = "color-grade"
preset      = "vintage"
intensity   = 0.7
start_frame = 10
end_frame   = 20

[[effects]]
kind        = "grain"
intensity   = 0.05
start_frame = 0
end_frame   = -1
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadFullManifest(t *testing.T) {
	path := writeManifest(t, fullManifest)
	base := filepath.Dir(path)

	m, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Source != path {
		t.Errorf("Source = %q, want %q", m.Source, path)
	}
	if m.Session.SampleRate != 44100 {
		t.Errorf("sample_rate = %d, want 44100", m.Session.SampleRate)
	}
	if m.Session.Normalize {
		t.Error("normalize should be false")
	}
	if want := filepath.Join(base, "out", "final.mkv"); m.Output.Path != want {
		t.Errorf("output path = %q, want %q", m.Output.Path, want)
	}
	if want := filepath.Join(base, "reports"); m.Output.ReportDir != want {
		t.Errorf("report dir = %q, want %q", m.Output.ReportDir, want)
	}
	if want := filepath.Join(base, "render.mp4"); m.Video.Path != want {
		t.Errorf("video path = %q, want %q", m.Video.Path, want)
	}

	if len(m.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(m.Tracks))
	}
	narration := m.Tracks[0]
	if narration.StartOffset.Std() != 250*time.Millisecond {
		t.Errorf("start_offset = %v, want 250ms", narration.StartOffset.Std())
	}
	if narration.FadeIn.Std() != 1500*time.Millisecond {
		t.Errorf("fade_in = %v, want 1.5s", narration.FadeIn.Std())
	}
	if narration.Gain() != 1.0 {
		t.Errorf("omitted volume resolves to %v, want 1.0", narration.Gain())
	}
	if m.Tracks[1].Gain() != 0.8 {
		t.Errorf("music volume = %v, want 0.8", m.Tracks[1].Gain())
	}
	if want := filepath.Join(base, "audio", "voice.wav"); narration.Path != want {
		t.Errorf("track path = %q, want %q", narration.Path, want)
	}
}

func TestDuckingSpecResolvesStockCurve(t *testing.T) {
	path := writeManifest(t, fullManifest)
	m, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	spec := m.Ducking[0].Spec()
	if spec.ReductionDb != -9.0 {
		t.Errorf("explicit reduction = %v, want -9", spec.ReductionDb)
	}
	if spec.AttackMs != config.DefaultAttackMs {
		t.Errorf("omitted attack = %v, want %v", spec.AttackMs, config.DefaultAttackMs)
	}
	if spec.ReleaseMs != config.DefaultReleaseMs {
		t.Errorf("omitted release = %v, want %v", spec.ReleaseMs, config.DefaultReleaseMs)
	}
	if spec.VoiceThreshold != config.DefaultVoiceThreshold {
		t.Errorf("omitted threshold = %v, want %v", spec.VoiceThreshold, config.DefaultVoiceThreshold)
	}
}

func TestEffectResolveEndFrameSentinel(t *testing.T) {
	path := writeManifest(t, fullManifest)
	m, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	explicit := m.Effects[0].Resolve(100)
	if explicit.StartFrame != 10 || explicit.EndFrame != 20 {
		t.Errorf("explicit range = %d-%d, want 10-20", explicit.StartFrame, explicit.EndFrame)
	}
	sentinel := m.Effects[1].Resolve(100)
	if sentinel.EndFrame != 99 {
		t.Errorf("sentinel end frame = %d, want 99", sentinel.EndFrame)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeManifest(t, `
[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "voice.wav"
`)
	m, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Session.SampleRate != config.DefaultSampleRate {
		t.Errorf("sample_rate = %d, want default %d", m.Session.SampleRate, config.DefaultSampleRate)
	}
	if !m.Session.Normalize {
		t.Error("normalize should default to true")
	}
	if m.Output.Container != config.DefaultContainer {
		t.Errorf("container = %q, want %q", m.Output.Container, config.DefaultContainer)
	}
	if m.Output.FrameRate != config.DefaultFrameRate {
		t.Errorf("frame_rate = %v, want %v", m.Output.FrameRate, config.DefaultFrameRate)
	}
}

func TestLoadRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name: "no tracks",
			body: `
[video]
path = "render.mp4"
`,
			wantMsg: "at least one",
		},
		{
			name: "duplicate track ids",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "a.wav"

[[tracks]]
id   = "narration"
path = "b.wav"
`,
			wantMsg: "duplicate",
		},
		{
			name: "negative volume",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id     = "narration"
path   = "a.wav"
volume = -0.5
`,
			wantMsg: "volume",
		},
		{
			name: "unknown container",
			body: `
[output]
container = "webm"

[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "a.wav"
`,
			wantMsg: "container",
		},
		{
			name: "dangling ducking reference",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "a.wav"

[[ducking]]
reference = "ghost"
target    = "narration"
`,
			wantMsg: "does not name a track",
		},
		{
			name: "boosting duck",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id   = "a"
path = "a.wav"

[[tracks]]
id   = "b"
path = "b.wav"

[[ducking]]
reference    = "a"
target       = "b"
reduction_db = 3.0
`,
			wantMsg: "boost",
		},
		{
			name: "unknown effect kind",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "a.wav"

[[effects]]
kind        = "glitch"
intensity   = 1.0
start_frame = 0
end_frame   = -1
`,
			wantMsg: "kind",
		},
		{
			name: "unknown grade preset",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "a.wav"

[[effects]]
kind        = "color-grade"
preset      = "sepia"
intensity   = 1.0
start_frame = 0
end_frame   = -1
`,
			wantMsg: "preset",
		},
		{
			name: "inverted frame range",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id   = "narration"
path = "a.wav"

[[effects]]
kind        = "grain"
intensity   = 0.05
start_frame = 10
end_frame   = 5
`,
			wantMsg: "end_frame",
		},
		{
			name: "negative start offset",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id           = "narration"
path         = "a.wav"
start_offset = "-1s"
`,
			wantMsg: "start_offset",
		},
		{
			name: "missing video",
			body: `
[[tracks]]
id   = "narration"
path = "a.wav"
`,
			wantMsg: "video.path",
		},
		{
			name: "malformed duration",
			body: `
[video]
path = "render.mp4"

[[tracks]]
id      = "narration"
path    = "a.wav"
fade_in = "fast"
`,
			wantMsg: "parse manifest",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.body)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load succeeded for a missing manifest")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	m, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if len(m.Tracks) == 0 {
		t.Error("sample manifest declares no tracks")
	}
	if len(m.Ducking) == 0 {
		t.Error("sample manifest declares no ducking")
	}
	if len(m.Effects) == 0 {
		t.Error("sample manifest declares no effects")
	}
}
