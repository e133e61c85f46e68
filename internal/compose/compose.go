// Package compose runs one composition end to end from a session manifest:
// decode and resample the audio tracks, mix with ducking, apply the effect
// pipeline to the render's frames, merge through the encoder, and export
// the processing report.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxmatters/dubstage/internal/audio"
	"github.com/linuxmatters/dubstage/internal/config"
	"github.com/linuxmatters/dubstage/internal/logging"
	"github.com/linuxmatters/dubstage/internal/mix"
	"github.com/linuxmatters/dubstage/internal/mux"
	"github.com/linuxmatters/dubstage/internal/report"
	"github.com/linuxmatters/dubstage/internal/vfx"
)

// Stage names the orchestrator's phases, in run order.
type Stage string

const (
	StageDecode  Stage = "decode"
	StageMix     Stage = "mix"
	StageEffects Stage = "effects"
	StageMerge   Stage = "merge"
)

// ProgressFunc is called between track, effect, and stage boundaries. detail
// names the item about to be worked (a track id, an effect description) and
// is empty on stage start and completion calls; done counts finished items
// of total within the stage.
type ProgressFunc func(stage Stage, detail string, done, total int)

// FrameSource reads a rendered video file's frames.
type FrameSource interface {
	ReadFrames(ctx context.Context, path string) (vfx.Sequence, error)
}

// Collaborators are the codec-touching dependencies of a run. internal/media
// provides ffmpeg-backed implementations.
type Collaborators struct {
	Decoder audio.Decoder
	Frames  FrameSource
	Encoder mux.Encoder
}

// Result summarizes a run. Report is always present, even when the run
// failed partway; its steps accumulate up to the failure point.
type Result struct {
	OutputPath string
	ReportPath string
	Report     *report.Report
	Mix        mix.MixResult
	Merge      mux.Result
	Frames     int
	Elapsed    time.Duration
}

// Composer runs the composition a manifest describes. Log and Progress are
// optional; the engine stays pure and all cancellation checks happen here,
// between track and effect boundaries.
type Composer struct {
	Manifest *config.Manifest
	Media    Collaborators
	Log      *slog.Logger
	Progress ProgressFunc

	// now names the report file; a test hook.
	now func() time.Time
}

// Run executes the composition. The returned Result is never nil and
// carries the report accumulated up to any failure.
func (c *Composer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	m := c.Manifest
	log := c.Log
	if log == nil {
		log = logging.Discard()
	}
	progress := c.Progress
	if progress == nil {
		progress = func(Stage, string, int, int) {}
	}

	rep := report.New(m.Source)
	res := &Result{Report: rep, OutputPath: m.Output.Path}

	tracks, err := c.decodeTracks(ctx, rep, progress, log)
	if err != nil {
		return res, err
	}

	mixed, err := c.mixTracks(ctx, rep, progress, log, tracks)
	if err != nil {
		return res, err
	}
	res.Mix = mixed

	frames, err := c.applyEffects(ctx, rep, progress, log)
	if err != nil {
		return res, err
	}
	res.Frames = len(frames)

	merged, err := c.merge(ctx, rep, progress, log, mixed.Buffer, frames)
	if err != nil {
		return res, err
	}
	res.Merge = merged

	res.ReportPath = report.TimestampedPath(m.Output.ReportDir, c.timeNow())
	if err := rep.ExportJSON(res.ReportPath); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(start)
	log.Info("composition complete",
		"output", res.OutputPath,
		"report", res.ReportPath,
		"elapsed", res.Elapsed)
	return res, nil
}

func (c *Composer) timeNow() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// decodeTracks loads every manifest track at its native rate and resamples
// to the session rate.
func (c *Composer) decodeTracks(ctx context.Context, rep *report.Report, progress ProgressFunc, log *slog.Logger) ([]mix.Track, error) {
	m := c.Manifest
	tracks := make([]mix.Track, 0, len(m.Tracks))
	for i, spec := range m.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress(StageDecode, spec.ID, i, len(m.Tracks))
		log.Info("decoding track", "id", spec.ID, "path", spec.Path)

		buf, err := audio.LoadBuffer(ctx, c.Media.Decoder, spec.Path)
		if err != nil {
			return nil, err
		}
		rep.Addf(string(StageDecode), "Added audio track: %s (%.2fs)", spec.ID, buf.Duration().Seconds())
		if buf.Rate != m.Session.SampleRate {
			resampled, err := buf.Resample(m.Session.SampleRate)
			if err != nil {
				return nil, fmt.Errorf("track %q: %w", spec.ID, err)
			}
			rep.Addf(string(StageDecode), "Resampled %s: %d Hz -> %d Hz", spec.ID, buf.Rate, m.Session.SampleRate)
			buf = resampled
		}

		tracks = append(tracks, mix.Track{
			ID:          spec.ID,
			Source:      buf,
			Volume:      spec.Gain(),
			StartOffset: spec.StartOffset.Std(),
			FadeIn:      spec.FadeIn.Std(),
			FadeOut:     spec.FadeOut.Std(),
		})
		rep.AddTrack(report.TrackEntry{
			ID:          spec.ID,
			Duration:    buf.Duration().Seconds(),
			Volume:      spec.Gain(),
			StartOffset: spec.StartOffset.Std().Seconds(),
		})
	}
	progress(StageDecode, "", len(m.Tracks), len(m.Tracks))
	return tracks, nil
}

func (c *Composer) mixTracks(ctx context.Context, rep *report.Report, progress ProgressFunc, log *slog.Logger, tracks []mix.Track) (mix.MixResult, error) {
	if err := ctx.Err(); err != nil {
		return mix.MixResult{}, err
	}
	progress(StageMix, "", 0, 1)

	m := c.Manifest
	specs := make([]mix.DuckingSpec, len(m.Ducking))
	for i, d := range m.Ducking {
		specs[i] = d.Spec()
	}
	mixer := mix.Mixer{Normalize: m.Session.Normalize}
	mixed, err := mixer.Mix(tracks, specs)
	if err != nil {
		return mix.MixResult{}, err
	}

	for _, spec := range specs {
		rep.Addf(string(StageMix), "Applied ducking: %s (voice: %s, %.1f dB)", spec.Target, spec.Reference, spec.ReductionDb)
	}
	switch {
	case mixed.ScaleFactor != 1:
		rep.Addf(string(StageMix), "Mixed %d tracks (peak scale %.2f)", len(tracks), mixed.ScaleFactor)
	case mixed.Limited:
		rep.Addf(string(StageMix), "Mixed %d tracks (hard-limited %d samples)", len(tracks), mixed.ClippedSamples)
	default:
		rep.Addf(string(StageMix), "Mixed %d tracks", len(tracks))
	}
	log.Info("mixed tracks",
		"tracks", len(tracks),
		"duration", mixed.Buffer.Duration(),
		"scale", mixed.ScaleFactor)
	progress(StageMix, "", 1, 1)
	return mixed, nil
}

// applyEffects reads the render's frames and applies the manifest's effects
// one at a time, checking for cancellation between them. The whole pipeline
// is validated before the first effect touches a pixel.
func (c *Composer) applyEffects(ctx context.Context, rep *report.Report, progress ProgressFunc, log *slog.Logger) (vfx.Sequence, error) {
	m := c.Manifest
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	progress(StageEffects, "", 0, len(m.Effects))

	frames, err := c.Media.Frames.ReadFrames(ctx, m.Video.Path)
	if err != nil {
		return nil, err
	}
	rep.Addf(string(StageEffects), "Loaded render: %s (%d frames)", m.Video.Path, len(frames))
	log.Info("loaded render", "path", m.Video.Path, "frames", len(frames))

	effects := make([]vfx.Effect, len(m.Effects))
	for i, e := range m.Effects {
		effects[i] = e.Resolve(len(frames))
	}
	if err := vfx.Validate(len(frames), effects); err != nil {
		return nil, err
	}

	for i, effect := range effects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress(StageEffects, effect.Describe(), i, len(effects))
		frames, err = vfx.Apply(frames, []vfx.Effect{effect})
		if err != nil {
			return nil, err
		}
		rep.Addf(string(StageEffects), "Applied %s to frames %d-%d", effect.Describe(), effect.StartFrame, effect.EndFrame)
		rep.AddEffect(report.EffectEntry{
			Kind:      string(effect.Kind),
			Intensity: effect.Intensity,
			Frames:    fmt.Sprintf("%d-%d", effect.StartFrame, effect.EndFrame),
		})
	}
	progress(StageEffects, "", len(effects), len(effects))
	return frames, nil
}

func (c *Composer) merge(ctx context.Context, rep *report.Report, progress ProgressFunc, log *slog.Logger, buf audio.Buffer, frames vfx.Sequence) (mux.Result, error) {
	if err := ctx.Err(); err != nil {
		return mux.Result{}, err
	}
	progress(StageMerge, "", 0, 1)

	m := c.Manifest
	muxer := mux.Muxer{Enc: c.Media.Encoder}
	merged, err := muxer.Merge(ctx, buf, frames, mux.Params{
		OutputPath: m.Output.Path,
		Container:  m.Output.Container,
		FrameRate:  m.Output.FrameRate,
	})
	if err != nil {
		return mux.Result{}, err
	}

	if merged.FrozenFrames > 0 {
		rep.Addf(string(StageMerge), "Froze last frame for %.2fs to match audio", float64(merged.FrozenFrames)/m.Output.FrameRate)
	}
	if merged.PaddedSilence > 0 {
		rep.Addf(string(StageMerge), "Padded %.2fs of silence to match video", merged.PaddedSilence.Seconds())
	}
	rep.Addf(string(StageMerge), "Merged video and audio: %s", m.Output.Path)
	log.Info("merged output",
		"path", m.Output.Path,
		"duration", merged.Duration,
		"frozen_frames", merged.FrozenFrames,
		"padded_silence", merged.PaddedSilence)
	progress(StageMerge, "", 1, 1)
	return merged, nil
}
