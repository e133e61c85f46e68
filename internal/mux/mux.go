// Package mux reconciles a mixed audio buffer with a rendered frame sequence
// and hands the pair to an encoder. When the streams disagree in length the
// muxer freezes the last frame or pads silence so neither stream is ever
// trimmed.
package mux

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/linuxmatters/dubstage/internal/audio"
	"github.com/linuxmatters/dubstage/internal/vfx"
)

var (
	// ErrEmptyInput reports a merge with no audio samples or no frames.
	ErrEmptyInput = errors.New("empty mux input")
	// ErrUnsupportedFormat reports an output container outside the supported
	// set.
	ErrUnsupportedFormat = errors.New("unsupported container format")
	// ErrInvalidParams reports merge parameters that cannot describe a valid
	// output, such as a zero frame rate.
	ErrInvalidParams = errors.New("invalid mux parameters")
)

// Containers returns the supported output containers in a stable order.
func Containers() []string {
	return []string{"mp4", "mkv", "mov"}
}

// SupportedContainer reports whether name is a container the muxer accepts.
func SupportedContainer(name string) bool {
	for _, c := range Containers() {
		if name == c {
			return true
		}
	}
	return false
}

// EncodeJob carries one reconciled audio/video pair to an encoder. By the
// time a job is built the streams agree in duration to within half a frame
// period.
type EncodeJob struct {
	OutputPath string
	Container  string
	FrameRate  float64
	Audio      audio.Buffer
	Frames     vfx.Sequence
}

// Encoder writes an encode job to its output path. Implementations live
// outside the core (internal/media provides one backed by the ffmpeg
// binary).
type Encoder interface {
	Encode(ctx context.Context, job EncodeJob) error
}

// Params describe the output a merge should produce.
type Params struct {
	OutputPath string
	Container  string  // mp4, mkv, or mov
	FrameRate  float64 // frames per second, > 0
}

// Result records what the merge produced, including any reconciliation
// applied, for the processing report.
type Result struct {
	OutputPath    string
	Duration      time.Duration
	FrozenFrames  int           // frames appended by freezing the last frame
	PaddedSilence time.Duration // silence appended to the audio
}

// Muxer merges audio and frames through an encoder.
type Muxer struct {
	Enc Encoder
}

// Merge reconciles the two streams and encodes them. Audio longer than the
// video freezes the last frame for the remainder; video longer than the
// audio pads trailing silence. Differences within half a frame period are
// left to the container. The inputs are not mutated.
func (m Muxer) Merge(ctx context.Context, buf audio.Buffer, frames vfx.Sequence, p Params) (Result, error) {
	if buf.Len() == 0 || len(frames) == 0 {
		return Result{}, fmt.Errorf("%w: %d samples, %d frames", ErrEmptyInput, buf.Len(), len(frames))
	}
	if !SupportedContainer(p.Container) {
		return Result{}, fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedFormat, p.Container, Containers())
	}
	if p.FrameRate <= 0 {
		return Result{}, fmt.Errorf("%w: frame rate %.3f must be > 0", ErrInvalidParams, p.FrameRate)
	}
	if buf.Rate <= 0 {
		return Result{}, fmt.Errorf("%w: audio buffer has no sample rate", ErrInvalidParams)
	}
	if m.Enc == nil {
		return Result{}, fmt.Errorf("%w: no encoder", ErrInvalidParams)
	}

	framePeriod := time.Duration(float64(time.Second) / p.FrameRate)
	tolerance := framePeriod / 2
	audioDur := buf.Duration()
	videoDur := time.Duration(float64(len(frames)) * float64(framePeriod))

	result := Result{OutputPath: p.OutputPath}
	switch {
	case audioDur > videoDur+tolerance:
		// Freeze the last frame until the video covers the audio.
		gap := audioDur - videoDur
		extra := int(math.Ceil(gap.Seconds() * p.FrameRate))
		frozen := make(vfx.Sequence, 0, len(frames)+extra)
		frozen = append(frozen, frames...)
		last := frames[len(frames)-1]
		for i := 0; i < extra; i++ {
			frozen = append(frozen, last.Clone())
		}
		frames = frozen
		result.FrozenFrames = extra
		videoDur = time.Duration(float64(len(frames)) * float64(framePeriod))
	case videoDur > audioDur+tolerance:
		gap := videoDur - audioDur
		pad := int(math.Ceil(gap.Seconds() * float64(buf.Rate)))
		padded := make([]float64, buf.Len()+pad)
		copy(padded, buf.Samples)
		buf = audio.New(padded, buf.Rate)
		result.PaddedSilence = time.Duration(float64(pad) / float64(buf.Rate) * float64(time.Second))
		audioDur = buf.Duration()
	}

	result.Duration = audioDur
	if videoDur > audioDur {
		result.Duration = videoDur
	}

	job := EncodeJob{
		OutputPath: p.OutputPath,
		Container:  p.Container,
		FrameRate:  p.FrameRate,
		Audio:      buf,
		Frames:     frames,
	}
	if err := m.Enc.Encode(ctx, job); err != nil {
		return Result{}, fmt.Errorf("mux encode: %w", err)
	}
	return result, nil
}
