package mix

import (
	"errors"
	"fmt"
	"math"

	"github.com/linuxmatters/dubstage/internal/audio"
)

// Default analysis geometry for voice-activity detection. At 48 kHz this is
// a ~43 ms window advancing in ~10.7 ms hops, fine enough to resolve the
// usual 100-200 ms attack and release times.
const (
	DefaultRMSWindow = 2048
	DefaultRMSHop    = 512
)

// normalizedSpan below this treats the reference as silent (or flat) and
// produces zero activity everywhere instead of dividing by zero.
const silentSpan = 1e-10

// ErrInvalidSpec reports a ducking spec with out-of-range parameters.
var ErrInvalidSpec = errors.New("invalid ducking spec")

// DuckingSpec declares that the Target track should be attenuated while the
// Reference track carries voice activity.
type DuckingSpec struct {
	Reference      string  // track id whose activity drives the duck
	Target         string  // track id being attenuated
	ReductionDb    float64 // gain at full duck, <= 0 (ducking never boosts)
	AttackMs       float64 // time to complete the transition into the duck
	ReleaseMs      float64 // time to complete the recovery to unity
	VoiceThreshold float64 // normalized RMS activity in [0, 1] counted as voice
}

// Validate checks the spec's parameter ranges. Track identifiers are resolved
// by the mixer against the actual mix request, not here.
func (s DuckingSpec) Validate() error {
	if s.Reference == "" || s.Target == "" {
		return fmt.Errorf("%w: reference and target must be named", ErrInvalidSpec)
	}
	if s.Reference == s.Target {
		return fmt.Errorf("%w: track %q cannot duck itself", ErrInvalidSpec, s.Target)
	}
	if s.ReductionDb > 0 {
		return fmt.Errorf("%w: reduction %.1f dB would boost, must be <= 0", ErrInvalidSpec, s.ReductionDb)
	}
	if s.AttackMs < 0 || s.ReleaseMs < 0 {
		return fmt.Errorf("%w: attack and release must be >= 0 ms", ErrInvalidSpec)
	}
	if s.VoiceThreshold < 0 || s.VoiceThreshold > 1 {
		return fmt.Errorf("%w: voice threshold %.2f outside [0, 1]", ErrInvalidSpec, s.VoiceThreshold)
	}
	return nil
}

// DuckGain returns the linear gain applied at full duck.
func (s DuckingSpec) DuckGain() float64 {
	return audio.DbToLinear(s.ReductionDb)
}

// Envelope is a per-sample gain multiplier sequence aligned to a target
// track's sample domain. Values stay within [duck gain, 1]; 1 means no
// reduction.
type Envelope []float64

// EnvelopeGenerator derives ducking envelopes from a reference track's
// voice activity. The zero value uses the default analysis geometry.
type EnvelopeGenerator struct {
	WindowSize int
	HopSize    int
}

func (g EnvelopeGenerator) window() int {
	if g.WindowSize > 0 {
		return g.WindowSize
	}
	return DefaultRMSWindow
}

func (g EnvelopeGenerator) hop() int {
	if g.HopSize > 0 {
		return g.HopSize
	}
	return DefaultRMSHop
}

// Generate derives a per-sample gain envelope of targetLen samples from the
// reference buffer:
//
//  1. Windowed RMS energy of the reference.
//  2. Min/max normalization to [0, 1] activity; a silent or flat reference
//     yields zero activity everywhere.
//  3. Thresholding into per-hop voice presence.
//  4. Asymmetric one-pole smoothing toward the per-hop target gain, so the
//     curve never overshoots the duck gain or unity.
//  5. Linear interpolation between hop centers up to per-sample resolution,
//     extending the nearest value past the first and last centers. Samples
//     beyond the reference's timeline hold the last computed value.
func (g EnvelopeGenerator) Generate(reference audio.Buffer, targetLen int, spec DuckingSpec) (Envelope, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if targetLen <= 0 {
		return Envelope{}, nil
	}

	env := make(Envelope, targetLen)
	energy := reference.RMSEnergy(g.window(), g.hop())
	if len(energy) == 0 {
		// No reference signal at all: nothing to duck against.
		for i := range env {
			env[i] = 1
		}
		return env, nil
	}
	if reference.Rate <= 0 {
		return nil, fmt.Errorf("ducking envelope: reference buffer has no sample rate")
	}

	activity := normalizeActivity(energy)
	hopGains := g.smoothGains(activity, spec, reference.Rate)

	// Interpolate across the reference's own timeline; any excess target
	// length holds the last computed value.
	limit := reference.Len()
	if limit > targetLen {
		limit = targetLen
	}
	g.interpolate(env[:limit], hopGains)
	for i := limit; i < targetLen; i++ {
		env[i] = env[limit-1]
	}
	return env, nil
}

// normalizeActivity maps energy onto [0, 1] using the observed minimum and
// maximum. A span too small to be meaningful (silence, or a perfectly flat
// signal) maps to zero activity.
func normalizeActivity(energy []float64) []float64 {
	lo, hi := energy[0], energy[0]
	for _, e := range energy[1:] {
		if e < lo {
			lo = e
		}
		if e > hi {
			hi = e
		}
	}

	activity := make([]float64, len(energy))
	span := hi - lo
	if span < silentSpan {
		return activity
	}
	for i, e := range energy {
		activity[i] = (e - lo) / span
	}
	return activity
}

// smoothGains turns per-hop voice presence into a smoothed per-hop gain
// curve. Attack and release times denote the interval in which the gain
// completes its transition (five time constants, ~99%), so a 100 ms attack
// reaches the ducked level within 100 ms of onset.
func (g EnvelopeGenerator) smoothGains(activity []float64, spec DuckingSpec, rate int) []float64 {
	duckGain := spec.DuckGain()
	hopSec := float64(g.hop()) / float64(rate)
	attackK := onePoleCoeff(hopSec, spec.AttackMs)
	releaseK := onePoleCoeff(hopSec, spec.ReleaseMs)

	gains := make([]float64, len(activity))
	gain := 1.0
	for i, a := range activity {
		target := 1.0
		k := releaseK
		if a >= spec.VoiceThreshold {
			target = duckGain
		}
		if target < gain {
			k = attackK
		}
		gain += k * (target - gain)
		// One-pole steps cannot overshoot the target, but keep the bounds
		// explicit against float drift.
		if gain < duckGain {
			gain = duckGain
		}
		if gain > 1 {
			gain = 1
		}
		gains[i] = gain
	}
	return gains
}

// onePoleCoeff returns the per-step smoothing coefficient for a transition
// completing in transitionMs. Zero or negative times switch instantly.
func onePoleCoeff(stepSec, transitionMs float64) float64 {
	if transitionMs <= 0 {
		return 1
	}
	tau := transitionMs / 1000 / 5
	return 1 - math.Exp(-stepSec/tau)
}

// interpolate expands per-hop gains to per-sample resolution. Hop i is
// anchored at its window center, i*hop + window/2; samples before the first
// center or after the last extend the nearest gain.
func (g EnvelopeGenerator) interpolate(env Envelope, hopGains []float64) {
	last := len(hopGains) - 1
	if last == 0 {
		for i := range env {
			env[i] = hopGains[0]
		}
		return
	}
	center0 := float64(g.window()) / 2
	hop := float64(g.hop())
	for i := range env {
		pos := (float64(i) - center0) / hop
		switch {
		case pos <= 0:
			env[i] = hopGains[0]
		case pos >= float64(last):
			env[i] = hopGains[last]
		default:
			j := int(pos)
			frac := pos - float64(j)
			env[i] = hopGains[j]*(1-frac) + hopGains[j+1]*frac
		}
	}
}
