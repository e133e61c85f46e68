package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/linuxmatters/dubstage/internal/mux"
	"github.com/linuxmatters/dubstage/internal/vfx"
)

// containerMuxers maps supported output containers to ffmpeg muxer names.
var containerMuxers = map[string]string{
	"mp4": "mp4",
	"mkv": "matroska",
	"mov": "mov",
}

// FFmpegEncoder writes a reconciled composition to disk via the ffmpeg
// binary: frames stream over stdin as rawvideo, the mixed audio rides a
// temporary f32le side file, and ffmpeg encodes h264 with aac into the
// requested container. It satisfies mux.Encoder.
type FFmpegEncoder struct {
	FFmpeg  string // ffmpeg binary, empty means DefaultFFmpeg
	TempDir string // for the PCM side file, empty means the system default
}

// Encode renders job to job.OutputPath. The caller has already reconciled
// stream durations, so no -shortest trimming is applied.
func (e FFmpegEncoder) Encode(ctx context.Context, job mux.EncodeJob) error {
	muxer, ok := containerMuxers[job.Container]
	if !ok {
		return fmt.Errorf("encode %s: %w: %q", job.OutputPath, mux.ErrUnsupportedFormat, job.Container)
	}
	if len(job.Frames) == 0 || job.Audio.Len() == 0 {
		return fmt.Errorf("encode %s: %w", job.OutputPath, mux.ErrEmptyInput)
	}
	w, h := job.Frames[0].W, job.Frames[0].H
	if w <= 0 || h <= 0 {
		return fmt.Errorf("encode %s: invalid frame size %dx%d", job.OutputPath, w, h)
	}
	for i, f := range job.Frames {
		if f.W != w || f.H != h || len(f.Pix) != w*h*3 {
			return fmt.Errorf("encode %s: frame %d is %dx%d, want %dx%d", job.OutputPath, i, f.W, f.H, w, h)
		}
	}

	pcmPath, err := writeTempPCM(e.TempDir, job.Audio.Samples)
	if err != nil {
		return fmt.Errorf("encode %s: %w", job.OutputPath, err)
	}
	defer os.Remove(pcmPath)

	binary := e.FFmpeg
	if binary == "" {
		binary = DefaultFFmpeg
	}
	cmd := exec.CommandContext(ctx, binary, encodeArgs(job, pcmPath, w, h, muxer)...)
	cmd.Stdin = frameStream(job.Frames)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errBuf.String()); msg != "" {
			return fmt.Errorf("encode %s: %w: %s", job.OutputPath, err, msg)
		}
		return fmt.Errorf("encode %s: %w", job.OutputPath, err)
	}
	return nil
}

// encodeArgs builds the two-input ffmpeg invocation: rawvideo frames on
// stdin, PCM from the side file, h264 and aac out.
func encodeArgs(job mux.EncodeJob, pcmPath string, w, h int, muxer string) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", strconv.FormatFloat(job.FrameRate, 'f', -1, 64),
		"-i", "pipe:0",
		"-f", "f32le",
		"-ar", strconv.Itoa(job.Audio.Rate),
		"-ac", "1",
		"-i", pcmPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-f", muxer,
		"-loglevel", "error",
		job.OutputPath,
	}
}

// frameStream concatenates the frames' pixel data into one reader without
// copying, ready to feed ffmpeg's stdin.
func frameStream(frames vfx.Sequence) io.Reader {
	readers := make([]io.Reader, len(frames))
	for i, f := range frames {
		readers[i] = bytes.NewReader(f.Pix)
	}
	return io.MultiReader(readers...)
}

// writeTempPCM writes samples as f32le to a temp file and returns its path.
func writeTempPCM(dir string, samples []float64) (string, error) {
	f, err := os.CreateTemp(dir, "dubstage-*.f32le")
	if err != nil {
		return "", fmt.Errorf("temp audio: %w", err)
	}
	if _, err := f.Write(f32leFromSamples(samples)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp audio: %w", err)
	}
	return f.Name(), nil
}
