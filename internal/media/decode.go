package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/linuxmatters/dubstage/internal/vfx"
)

// FFmpegDecoder turns any audio file ffmpeg understands into mono float64
// PCM at the file's native sample rate. It satisfies audio.Decoder; rate
// conversion stays with the engine, which resamples to the session rate.
type FFmpegDecoder struct {
	FFmpeg  string // ffmpeg binary, empty means DefaultFFmpeg
	FFprobe string // ffprobe binary, empty means DefaultFFprobe
}

// DecodePCM probes for the native sample rate, then decodes the file to
// mono 32-bit float PCM at that rate.
func (d FFmpegDecoder) DecodePCM(ctx context.Context, path string) ([]float64, int, error) {
	probe, err := Probe(ctx, d.FFprobe, path)
	if err != nil {
		return nil, 0, err
	}
	rate := probe.AudioSampleRate()
	if rate <= 0 {
		return nil, 0, fmt.Errorf("decode %s: no audio stream", path)
	}

	data, err := runPipe(ctx, d.FFmpeg, decodeArgs(path, rate))
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return samplesFromF32LE(data), rate, nil
}

// decodeArgs builds the ffmpeg invocation emitting mono f32le PCM on
// stdout. Forcing -ar keeps the output at the probed rate even for codecs
// whose decoder would otherwise pick its own.
func decodeArgs(path string, rate int) []string {
	return []string{
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-loglevel", "error",
		"pipe:1",
	}
}

// FrameReader reads a rendered video file's frames as raw RGB rasters for
// the effect pipeline.
type FrameReader struct {
	FFmpeg  string
	FFprobe string
}

// ReadFrames probes for the frame size, then decodes every frame to rgb24.
func (r FrameReader) ReadFrames(ctx context.Context, path string) (vfx.Sequence, error) {
	probe, err := Probe(ctx, r.FFprobe, path)
	if err != nil {
		return nil, err
	}
	w, h, ok := probe.VideoDimensions()
	if !ok {
		return nil, fmt.Errorf("read frames %s: no video stream", path)
	}

	data, err := runPipe(ctx, r.FFmpeg, rawFrameArgs(path))
	if err != nil {
		return nil, fmt.Errorf("read frames %s: %w", path, err)
	}
	frames, err := splitFrames(data, w, h)
	if err != nil {
		return nil, fmt.Errorf("read frames %s: %w", path, err)
	}
	return frames, nil
}

func rawFrameArgs(path string) []string {
	return []string{
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-loglevel", "error",
		"pipe:1",
	}
}

// splitFrames slices a rawvideo byte stream into w x h rgb24 frames. The
// stream must contain a whole number of frames; anything else means it was
// truncated.
func splitFrames(data []byte, w, h int) (vfx.Sequence, error) {
	frameSize := w * h * 3
	if frameSize <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	if len(data) == 0 {
		return nil, errors.New("no frame data")
	}
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("truncated stream: %d bytes is not a whole number of %dx%d frames", len(data), w, h)
	}
	frames := make(vfx.Sequence, len(data)/frameSize)
	for i := range frames {
		pix := make([]uint8, frameSize)
		copy(pix, data[i*frameSize:(i+1)*frameSize])
		frames[i] = vfx.Frame{W: w, H: h, Pix: pix}
	}
	return frames, nil
}

// runPipe executes the ffmpeg binary with stdout captured as raw bytes and
// stderr folded into any error.
func runPipe(ctx context.Context, binary string, args []string) ([]byte, error) {
	if binary == "" {
		binary = DefaultFFmpeg
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(errBuf.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out.Bytes(), nil
}
