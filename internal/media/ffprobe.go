// Package media shells out to the ffmpeg and ffprobe binaries for every
// codec-touching step: probing inputs, decoding audio to mono PCM, reading
// video frames as raw RGB, and encoding the finished composition. The engine
// packages stay codec-free and talk to this package through the narrow
// interfaces they define.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Binaries resolved from PATH when a collaborator is built with empty
// binary fields.
const (
	DefaultFFmpeg  = "ffmpeg"
	DefaultFFprobe = "ffprobe"
)

// ProbeResult is the subset of ffprobe's JSON document the engine reads.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one elementary stream of a probed container. Numeric
// fields ffprobe reports as strings stay strings and are parsed on demand.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
}

// Format describes the probed container.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Probe runs ffprobe against path and parses its JSON report. An empty
// binary falls back to DefaultFFprobe.
func Probe(ctx context.Context, binary, path string) (ProbeResult, error) {
	if binary == "" {
		binary = DefaultFFprobe
	}
	cmd := exec.CommandContext(ctx, binary, probeArgs(path)...)
	output, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s: %w%s", path, err, stderrSuffix(err))
	}
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s: parse output: %w", path, err)
	}
	return result, nil
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	}
}

// stderrSuffix formats the stderr an exec.Cmd.Output call captured, for
// folding into a wrapped error. Empty when there is nothing useful.
func stderrSuffix(err error) string {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if msg := strings.TrimSpace(string(ee.Stderr)); msg != "" {
			return ": " + msg
		}
	}
	return ""
}

// AudioStreamCount returns the number of audio streams.
func (r ProbeResult) AudioStreamCount() int {
	return r.countStreams("audio")
}

// VideoStreamCount returns the number of video streams.
func (r ProbeResult) VideoStreamCount() int {
	return r.countStreams("video")
}

func (r ProbeResult) countStreams(codecType string) int {
	count := 0
	for _, s := range r.Streams {
		if s.CodecType == codecType {
			count++
		}
	}
	return count
}

func (r ProbeResult) firstStream(codecType string) (Stream, bool) {
	for _, s := range r.Streams {
		if s.CodecType == codecType {
			return s, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration, or NaN when ffprobe did
// not report a parseable one.
func (r ProbeResult) DurationSeconds() float64 {
	seconds, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil {
		return math.NaN()
	}
	return seconds
}

// AudioSampleRate returns the first audio stream's sample rate in Hz, or 0
// when there is no audio stream or the rate is unparseable.
func (r ProbeResult) AudioSampleRate() int {
	s, ok := r.firstStream("audio")
	if !ok {
		return 0
	}
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate < 0 {
		return 0
	}
	return rate
}

// VideoDimensions returns the first video stream's frame size. ok is false
// when there is no video stream or it reports a degenerate size.
func (r ProbeResult) VideoDimensions() (w, h int, ok bool) {
	s, found := r.firstStream("video")
	if !found || s.Width <= 0 || s.Height <= 0 {
		return 0, 0, false
	}
	return s.Width, s.Height, true
}

// VideoFrameRate returns the first video stream's average frame rate, or 0
// when absent or unparseable. ffprobe reports rates as rationals such as
// "30000/1001".
func (r ProbeResult) VideoFrameRate() float64 {
	s, ok := r.firstStream("video")
	if !ok {
		return 0
	}
	return parseRational(s.AvgFrameRate)
}

func parseRational(raw string) float64 {
	num, den, found := strings.Cut(raw, "/")
	if !found {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	v := n / d
	if v < 0 {
		return 0
	}
	return v
}
