package compose

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/dubstage/internal/audio"
	"github.com/linuxmatters/dubstage/internal/config"
	"github.com/linuxmatters/dubstage/internal/mux"
	"github.com/linuxmatters/dubstage/internal/vfx"
)

type stubDecoder struct {
	buffers map[string]audio.Buffer
	fail    map[string]error
}

func (d stubDecoder) DecodePCM(_ context.Context, path string) ([]float64, int, error) {
	if err := d.fail[path]; err != nil {
		return nil, 0, err
	}
	buf, ok := d.buffers[path]
	if !ok {
		return nil, 0, fmt.Errorf("unexpected decode path %q", path)
	}
	return buf.Samples, buf.Rate, nil
}

type stubFrames struct {
	frames vfx.Sequence
	err    error
	path   string
}

func (s *stubFrames) ReadFrames(_ context.Context, path string) (vfx.Sequence, error) {
	s.path = path
	if s.err != nil {
		return nil, s.err
	}
	return s.frames, nil
}

type stubEncoder struct {
	job    mux.EncodeJob
	called int
	err    error
}

func (e *stubEncoder) Encode(_ context.Context, job mux.EncodeJob) error {
	e.called++
	e.job = job
	return e.err
}

func tone(seconds float64, rate int) audio.Buffer {
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*220*float64(i)/float64(rate))
	}
	return audio.New(samples, rate)
}

// testManifest builds a two-track session with one ducking rule and two
// effects, the same shape sample_session.toml describes.
func testManifest(t *testing.T) *config.Manifest {
	t.Helper()
	dir := t.TempDir()
	vol := 0.8
	m := config.Default()
	m.Source = filepath.Join(dir, "session.toml")
	m.Output.Path = filepath.Join(dir, "final.mp4")
	m.Output.ReportDir = dir
	m.Video.Path = "render.mp4"
	m.Tracks = []config.Track{
		{ID: "narration", Path: "narration.wav"},
		{ID: "music", Path: "music.flac", Volume: &vol},
	}
	m.Ducking = []config.Ducking{{Reference: "narration", Target: "music"}}
	m.Effects = []config.Effect{
		{Kind: "color-grade", Preset: "teal-orange", Intensity: 0.5},
		{Kind: "grain", Intensity: 0.05, Seed: 7},
	}
	return &m
}

type progressCall struct {
	stage  Stage
	detail string
	done   int
	total  int
}

func TestRunComposesSession(t *testing.T) {
	m := testManifest(t)
	decoder := stubDecoder{buffers: map[string]audio.Buffer{
		"narration.wav": tone(1.0, 48000),
		"music.flac":    tone(1.0, 44100), // forces a resample to the session rate
	}}
	frames := &stubFrames{frames: vfx.NewSequence(30, 8, 8)}
	encoder := &stubEncoder{}

	var calls []progressCall
	c := Composer{
		Manifest: m,
		Media:    Collaborators{Decoder: decoder, Frames: frames, Encoder: encoder},
		Progress: func(stage Stage, detail string, done, total int) {
			calls = append(calls, progressCall{stage, detail, done, total})
		},
		now: func() time.Time { return time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC) },
	}

	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OutputPath != m.Output.Path {
		t.Errorf("output path = %q, want %q", res.OutputPath, m.Output.Path)
	}
	if res.Frames != 30 {
		t.Errorf("frames = %d, want 30", res.Frames)
	}
	if res.Mix.Buffer.Rate != 48000 {
		t.Errorf("mix rate = %d, want 48000", res.Mix.Buffer.Rate)
	}
	if frames.path != "render.mp4" {
		t.Errorf("read frames from %q, want render.mp4", frames.path)
	}

	if encoder.called != 1 {
		t.Fatalf("encoder called %d times, want 1", encoder.called)
	}
	if encoder.job.Container != "mp4" || encoder.job.FrameRate != 30 {
		t.Errorf("encode job container/rate = %q/%v", encoder.job.Container, encoder.job.FrameRate)
	}
	if len(encoder.job.Frames) != 30 {
		t.Errorf("encode job has %d frames, want 30", len(encoder.job.Frames))
	}
	if encoder.job.Audio.Rate != 48000 {
		t.Errorf("encode job audio rate = %d, want 48000", encoder.job.Audio.Rate)
	}

	wantMessages := []string{
		"Added audio track: narration (1.00s)",
		"Added audio track: music (1.00s)",
		"Resampled music: 44100 Hz -> 48000 Hz",
		"Applied ducking: music (voice: narration, -12.0 dB)",
		"Mixed 2 tracks",
		"Loaded render: render.mp4 (30 frames)",
		"Applied color-grade (teal-orange) to frames 0-29",
		"Applied grain (0.05) to frames 0-29",
		"Merged video and audio: " + m.Output.Path,
	}
	steps := res.Report.Steps()
	if len(steps) != len(wantMessages) {
		for _, s := range steps {
			t.Logf("step: [%s] %s", s.Stage, s.Message)
		}
		t.Fatalf("report has %d steps, want %d", len(steps), len(wantMessages))
	}
	for i, want := range wantMessages {
		if steps[i].Message != want {
			t.Errorf("step %d = %q, want %q", i, steps[i].Message, want)
		}
	}

	wantReport := filepath.Join(m.Output.ReportDir, "processing_report_20260825_103000.json")
	if res.ReportPath != wantReport {
		t.Errorf("report path = %q, want %q", res.ReportPath, wantReport)
	}
	data, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("read exported report: %v", err)
	}
	if !strings.Contains(string(data), `"run_id"`) {
		t.Error("exported report missing run_id")
	}

	if len(calls) == 0 {
		t.Fatal("no progress calls recorded")
	}
	first := calls[0]
	if first.stage != StageDecode || first.detail != "narration" || first.done != 0 || first.total != 2 {
		t.Errorf("first progress call = %+v", first)
	}
	last := calls[len(calls)-1]
	if last.stage != StageMerge || last.done != 1 || last.total != 1 {
		t.Errorf("last progress call = %+v", last)
	}
	var sawEffect bool
	for _, call := range calls {
		if call.stage == StageEffects && call.detail == "grain (0.05)" {
			sawEffect = true
		}
	}
	if !sawEffect {
		t.Error("no per-effect progress call for grain")
	}
}

func TestRunStopsOnDecodeFailure(t *testing.T) {
	m := testManifest(t)
	decoder := stubDecoder{
		buffers: map[string]audio.Buffer{"narration.wav": tone(0.5, 48000)},
		fail:    map[string]error{"music.flac": errors.New("corrupt stream")},
	}
	encoder := &stubEncoder{}
	c := Composer{
		Manifest: m,
		Media:    Collaborators{Decoder: decoder, Frames: &stubFrames{}, Encoder: encoder},
	}

	res, err := c.Run(context.Background())
	if !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
	if res == nil {
		t.Fatal("result is nil on failure")
	}
	if res.Report.Len() != 1 {
		t.Errorf("report has %d steps, want 1 (narration only)", res.Report.Len())
	}
	if encoder.called != 0 {
		t.Errorf("encoder called %d times after decode failure", encoder.called)
	}
	if res.ReportPath != "" {
		t.Errorf("report path = %q, want empty on failure", res.ReportPath)
	}
}

func TestRunStopsOnBadEffect(t *testing.T) {
	m := testManifest(t)
	m.Effects = []config.Effect{{Kind: "glitch", Intensity: 0.5}}
	decoder := stubDecoder{buffers: map[string]audio.Buffer{
		"narration.wav": tone(0.5, 48000),
		"music.flac":    tone(0.5, 48000),
	}}
	frames := &stubFrames{frames: vfx.NewSequence(10, 4, 4)}
	encoder := &stubEncoder{}
	c := Composer{
		Manifest: m,
		Media:    Collaborators{Decoder: decoder, Frames: frames, Encoder: encoder},
	}

	res, err := c.Run(context.Background())
	if !errors.Is(err, vfx.ErrUnknownEffectKind) {
		t.Fatalf("err = %v, want ErrUnknownEffectKind", err)
	}
	steps := res.Report.Steps()
	lastStep := steps[len(steps)-1]
	if !strings.HasPrefix(lastStep.Message, "Loaded render:") {
		t.Errorf("last step = %q, want the render load", lastStep.Message)
	}
	if encoder.called != 0 {
		t.Error("encoder invoked despite invalid pipeline")
	}
}

func TestRunWrapsEncoderFailure(t *testing.T) {
	m := testManifest(t)
	m.Effects = nil
	decoder := stubDecoder{buffers: map[string]audio.Buffer{
		"narration.wav": tone(0.5, 48000),
		"music.flac":    tone(0.5, 48000),
	}}
	frames := &stubFrames{frames: vfx.NewSequence(15, 4, 4)}
	encoder := &stubEncoder{err: errors.New("x264 unavailable")}
	c := Composer{
		Manifest: m,
		Media:    Collaborators{Decoder: decoder, Frames: frames, Encoder: encoder},
	}

	res, err := c.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "x264 unavailable") {
		t.Fatalf("err = %v, want encoder failure", err)
	}
	if res.ReportPath != "" {
		t.Error("report exported despite merge failure")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := testManifest(t)
	encoder := &stubEncoder{}
	c := Composer{
		Manifest: m,
		Media:    Collaborators{Decoder: stubDecoder{}, Frames: &stubFrames{}, Encoder: encoder},
	}

	res, err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.Report == nil {
		t.Fatal("cancelled run must still return a result with its report")
	}
	if res.Report.Len() != 0 {
		t.Errorf("report has %d steps, want 0", res.Report.Len())
	}
	if encoder.called != 0 {
		t.Error("encoder invoked on a cancelled run")
	}
}

func TestRunRecordsFreezeAndPad(t *testing.T) {
	tests := []struct {
		name        string
		audioSec    float64
		frames      int
		wantMessage string
	}{
		{"audio longer freezes frames", 2.0, 30, "Froze last frame for 1.00s to match audio"},
		{"video longer pads silence", 1.0, 60, "Padded 1.00s of silence to match video"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testManifest(t)
			m.Effects = nil
			m.Ducking = nil
			m.Tracks = m.Tracks[:1]
			decoder := stubDecoder{buffers: map[string]audio.Buffer{
				"narration.wav": tone(tt.audioSec, 48000),
			}}
			frames := &stubFrames{frames: vfx.NewSequence(tt.frames, 4, 4)}
			c := Composer{
				Manifest: m,
				Media:    Collaborators{Decoder: decoder, Frames: frames, Encoder: &stubEncoder{}},
			}

			res, err := c.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			var found bool
			for _, s := range res.Report.Steps() {
				if s.Message == tt.wantMessage {
					found = true
				}
			}
			if !found {
				for _, s := range res.Report.Steps() {
					t.Logf("step: %s", s.Message)
				}
				t.Errorf("report missing %q", tt.wantMessage)
			}
		})
	}
}
