// Package mix combines labeled audio tracks into a single buffer: per-track
// fades, gain, and timeline offsets, automatic ducking of beds under voice
// tracks, and peak normalization or hard limiting on the summed output.
package mix

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/linuxmatters/dubstage/internal/audio"
)

var (
	// ErrEmptyMix reports a mix request with no tracks.
	ErrEmptyMix = errors.New("empty mix: no tracks")
	// ErrInvalidTrack reports a track with out-of-range parameters, a
	// duplicate identifier, or a ducking spec naming an unknown track.
	ErrInvalidTrack = errors.New("invalid track")
	// ErrRateMismatch reports tracks at different sample rates; callers
	// resample to a common rate before mixing.
	ErrRateMismatch = errors.New("sample rate mismatch")
)

// Track is one labeled input to a mix. Tracks are built per request and not
// retained across calls.
type Track struct {
	ID          string
	Source      audio.Buffer
	Volume      float64 // linear gain, >= 0
	StartOffset time.Duration
	FadeIn      time.Duration
	FadeOut     time.Duration
}

// Contribution records what the mixer did to one track, in request order,
// for the processing report.
type Contribution struct {
	ID          string
	Gain        float64
	StartOffset time.Duration
	FadeIn      time.Duration
	FadeOut     time.Duration
	DuckedBy    []string // reference track ids of envelopes applied
	Duration    time.Duration
}

// MixResult is the summed output plus everything the report needs to explain
// it. ScaleFactor is 1 when no normalization was applied.
type MixResult struct {
	Buffer         audio.Buffer
	Contributions  []Contribution
	ScaleFactor    float64
	Limited        bool
	ClippedSamples int
}

// Mixer combines tracks. With Normalize set, peaks above unity scale the
// whole output back to 1.0; otherwise out-of-range samples are hard-limited.
// Envelopes lets callers override the voice-activity analysis geometry.
type Mixer struct {
	Normalize bool
	Envelopes EnvelopeGenerator
}

// NewMixer returns a mixer with peak normalization enabled.
func NewMixer() Mixer {
	return Mixer{Normalize: true}
}

// Mix applies per-track preprocessing (fade-in and fade-out, then volume,
// then start offset), ducking envelopes, and sample-wise summation sized to
// the longest processed track. Output peaks above unity are scaled down to
// exactly 1.0, or hard-limited when normalization is disabled; either way
// the adjustment is recorded in the result.
func (m Mixer) Mix(tracks []Track, specs []DuckingSpec) (MixResult, error) {
	if len(tracks) == 0 {
		return MixResult{}, ErrEmptyMix
	}

	rate, err := commonRate(tracks)
	if err != nil {
		return MixResult{}, err
	}
	byID, err := indexTracks(tracks)
	if err != nil {
		return MixResult{}, err
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return MixResult{}, err
		}
		if _, ok := byID[spec.Reference]; !ok {
			return MixResult{}, fmt.Errorf("%w: ducking references unknown track %q", ErrInvalidTrack, spec.Reference)
		}
		if _, ok := byID[spec.Target]; !ok {
			return MixResult{}, fmt.Errorf("%w: ducking targets unknown track %q", ErrInvalidTrack, spec.Target)
		}
	}

	processed := make(map[string][]float64, len(tracks))
	contributions := make([]Contribution, 0, len(tracks))
	for _, t := range tracks {
		processed[t.ID] = processTrack(t, rate)
		contributions = append(contributions, Contribution{
			ID:          t.ID,
			Gain:        t.Volume,
			StartOffset: t.StartOffset,
			FadeIn:      t.FadeIn,
			FadeOut:     t.FadeOut,
		})
	}

	// Ducking multiplies each target by its envelope; several specs on one
	// target stack multiplicatively, so overlapping voices only ever reduce
	// the bed further.
	for _, spec := range specs {
		ref := audio.New(processed[spec.Reference], rate)
		target := processed[spec.Target]
		env, err := m.Envelopes.Generate(ref, len(target), spec)
		if err != nil {
			return MixResult{}, err
		}
		for i := range target {
			target[i] *= env[i]
		}
		for ci := range contributions {
			if contributions[ci].ID == spec.Target {
				contributions[ci].DuckedBy = append(contributions[ci].DuckedBy, spec.Reference)
			}
		}
	}

	var longest int
	for _, samples := range processed {
		if len(samples) > longest {
			longest = len(samples)
		}
	}
	sum := make([]float64, longest)
	for _, t := range tracks {
		for i, s := range processed[t.ID] {
			sum[i] += s
		}
	}
	for ci, t := range tracks {
		contributions[ci].Duration = audio.New(processed[t.ID], rate).Duration()
	}

	result := MixResult{
		Buffer:        audio.New(sum, rate),
		Contributions: contributions,
		ScaleFactor:   1,
	}
	m.condition(&result)
	return result, nil
}

// condition brings the summed buffer back into [-1, 1]: scale the whole
// buffer when normalizing, clamp sample-wise otherwise.
func (m Mixer) condition(result *MixResult) {
	peak := result.Buffer.Peak()
	if peak <= 1 {
		return
	}
	if m.Normalize {
		scale := 1 / peak
		for i := range result.Buffer.Samples {
			result.Buffer.Samples[i] *= scale
		}
		result.ScaleFactor = scale
		return
	}
	for i, s := range result.Buffer.Samples {
		if s > 1 {
			result.Buffer.Samples[i] = 1
			result.ClippedSamples++
		} else if s < -1 {
			result.Buffer.Samples[i] = -1
			result.ClippedSamples++
		}
	}
	result.Limited = true
}

func commonRate(tracks []Track) (int, error) {
	rate := tracks[0].Source.Rate
	if rate <= 0 {
		return 0, fmt.Errorf("%w: track %q has no sample rate", ErrInvalidTrack, tracks[0].ID)
	}
	for _, t := range tracks[1:] {
		if t.Source.Rate != rate {
			return 0, fmt.Errorf("%w: track %q at %d Hz, expected %d Hz", ErrRateMismatch, t.ID, t.Source.Rate, rate)
		}
	}
	return rate, nil
}

func indexTracks(tracks []Track) (map[string]Track, error) {
	byID := make(map[string]Track, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: track with empty id", ErrInvalidTrack)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate track id %q", ErrInvalidTrack, t.ID)
		}
		if t.Volume < 0 {
			return nil, fmt.Errorf("%w: track %q volume %.2f must be >= 0", ErrInvalidTrack, t.ID, t.Volume)
		}
		if t.StartOffset < 0 {
			return nil, fmt.Errorf("%w: track %q start offset must be >= 0", ErrInvalidTrack, t.ID)
		}
		if t.FadeIn < 0 || t.FadeOut < 0 {
			return nil, fmt.Errorf("%w: track %q fade durations must be >= 0", ErrInvalidTrack, t.ID)
		}
		byID[t.ID] = t
	}
	return byID, nil
}

// processTrack applies fades, then volume, then the start-offset shift,
// returning the track's samples positioned on the mix timeline.
func processTrack(t Track, rate int) []float64 {
	n := t.Source.Len()
	out := make([]float64, n)
	copy(out, t.Source.Samples)

	if fadeIn := durationToSamples(t.FadeIn, rate, n); fadeIn > 0 {
		for i := 0; i < fadeIn; i++ {
			out[i] *= float64(i) / float64(fadeIn)
		}
	}
	if fadeOut := durationToSamples(t.FadeOut, rate, n); fadeOut > 0 {
		for j := 0; j < fadeOut; j++ {
			out[n-1-j] *= float64(j) / float64(fadeOut)
		}
	}
	if t.Volume != 1 {
		for i := range out {
			out[i] *= t.Volume
		}
	}
	if offset := durationToSamples(t.StartOffset, rate, math.MaxInt); offset > 0 {
		shifted := make([]float64, offset+n)
		copy(shifted[offset:], out)
		out = shifted
	}
	return out
}

func durationToSamples(d time.Duration, rate, max int) int {
	if d <= 0 {
		return 0
	}
	n := int(math.Round(d.Seconds() * float64(rate)))
	if n > max {
		return max
	}
	return n
}
