package vfx

import (
	"errors"
	"fmt"
)

// Kind identifies an effect in the closed set the pipeline can apply.
// Dispatch is an exhaustive switch, so a new kind is a compile-time
// extension point rather than a runtime string lookup.
type Kind string

const (
	KindColorGrade          Kind = "color-grade"
	KindGrain               Kind = "grain"
	KindVignette            Kind = "vignette"
	KindBlur                Kind = "blur"
	KindSharpen             Kind = "sharpen"
	KindChromaticAberration Kind = "chromatic-aberration"
)

// Kinds lists every effect kind the pipeline knows, in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindColorGrade,
		KindGrain,
		KindVignette,
		KindBlur,
		KindSharpen,
		KindChromaticAberration,
	}
}

var (
	// ErrUnknownEffectKind reports an effect kind outside the closed set.
	ErrUnknownEffectKind = errors.New("unknown effect kind")
	// ErrUnknownPreset reports a color-grade preset with no curve table.
	ErrUnknownPreset = errors.New("unknown color-grade preset")
	// ErrInvalidFrameRange reports an effect whose frame range is inverted
	// or falls outside the sequence.
	ErrInvalidFrameRange = errors.New("invalid frame range")
)

// Effect scopes one transform to an inclusive frame range. Intensity runs
// from 0 (no visible change) to 1 (the kind's documented maximum); grain,
// vignette, and blur accept intensities above 1 for exaggerated looks and
// the pipeline never clamps them. Negative intensities are treated as 0 by
// every kind.
type Effect struct {
	Kind       Kind
	Intensity  float64
	StartFrame int // inclusive
	EndFrame   int // inclusive, >= StartFrame

	// Kind-specific parameters.
	Preset   Preset // color-grade curve set
	Seed     int64  // grain noise stream; same seed, same grain
	OffsetPx int    // chromatic aberration shift at intensity 1, default 3
}

// Describe renders the effect for report entries, e.g.
// "color-grade (teal-orange)" or "grain (0.05)".
func (e Effect) Describe() string {
	if e.Kind == KindColorGrade {
		return fmt.Sprintf("%s (%s)", e.Kind, e.Preset)
	}
	return fmt.Sprintf("%s (%.2g)", e.Kind, e.Intensity)
}

// transform is a pure per-frame function. The frame index feeds effects
// that vary over time, such as grain's per-frame noise stream.
type transform func(f Frame, index int) Frame

// compile resolves the effect to its transform, rejecting unknown kinds and
// presets.
func (e Effect) compile() (transform, error) {
	switch e.Kind {
	case KindColorGrade:
		lut, err := gradeLUT(e.Preset, e.Intensity)
		if err != nil {
			return nil, err
		}
		return func(f Frame, _ int) Frame { return applyLUT(f, lut) }, nil
	case KindGrain:
		return grainTransform(e), nil
	case KindVignette:
		return vignetteTransform(e), nil
	case KindBlur:
		return blurTransform(e), nil
	case KindSharpen:
		return sharpenTransform(e), nil
	case KindChromaticAberration:
		return aberrationTransform(e), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffectKind, e.Kind)
	}
}

// validateRange checks the effect's frame range against the sequence size.
func (e Effect) validateRange(frameCount int) error {
	if e.EndFrame < e.StartFrame {
		return fmt.Errorf("%w: %s frames %d-%d", ErrInvalidFrameRange, e.Kind, e.StartFrame, e.EndFrame)
	}
	if e.StartFrame < 0 || e.EndFrame >= frameCount {
		return fmt.Errorf("%w: %s frames %d-%d outside sequence of %d frames",
			ErrInvalidFrameRange, e.Kind, e.StartFrame, e.EndFrame, frameCount)
	}
	return nil
}

// Validate runs the same checks Apply performs, against a sequence of
// frameCount frames, without touching any pixels. Callers that apply
// effects incrementally use it to reject a bad pipeline before the first
// effect runs.
func Validate(frameCount int, effects []Effect) error {
	for _, e := range effects {
		if _, err := e.compile(); err != nil {
			return err
		}
		if err := e.validateRange(frameCount); err != nil {
			return err
		}
	}
	return nil
}

// Apply runs the effects strictly in the supplied order over a deep copy of
// frames. For each effect only frames inside its inclusive range are
// transformed; frames outside pass through that effect unchanged but keep
// earlier effects' changes. Every effect is validated before any pixel is
// touched, and a failure aborts the whole call rather than skipping the
// failing effect, because order is semantically significant.
func Apply(frames Sequence, effects []Effect) (Sequence, error) {
	type step struct {
		effect Effect
		fn     transform
	}
	plan := make([]step, 0, len(effects))
	for _, e := range effects {
		fn, err := e.compile()
		if err != nil {
			return nil, err
		}
		if err := e.validateRange(len(frames)); err != nil {
			return nil, err
		}
		plan = append(plan, step{effect: e, fn: fn})
	}

	out := frames.Clone()
	for _, s := range plan {
		for i := s.effect.StartFrame; i <= s.effect.EndFrame; i++ {
			out[i] = s.fn(out[i], i)
		}
	}
	return out, nil
}
