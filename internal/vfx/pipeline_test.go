package vfx

import (
	"errors"
	"testing"
)

func TestApplyEmptyEffects(t *testing.T) {
	in := graySequence(3, 4, 4, 100)
	in[1].SetRGB(2, 2, 10, 20, 30)

	out, err := Apply(in, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !out.Equal(in) {
		t.Error("empty pipeline changed the sequence")
	}

	// Copy-on-write: the output must not alias the input frames.
	out[1].SetRGB(2, 2, 0, 0, 0)
	if r, _, _ := in[1].RGB(2, 2); r != 10 {
		t.Error("mutating the output changed the input sequence")
	}
}

func TestApplyOrderSensitivity(t *testing.T) {
	in := graySequence(1, 16, 16, 128)
	grade := Effect{Kind: KindColorGrade, Preset: PresetTealOrange, Intensity: 1, StartFrame: 0, EndFrame: 0}
	vignette := Effect{Kind: KindVignette, Intensity: 0.5, StartFrame: 0, EndFrame: 0}

	gradeFirst, err := Apply(in, []Effect{grade, vignette})
	if err != nil {
		t.Fatalf("Apply(grade, vignette) error = %v", err)
	}
	vignetteFirst, err := Apply(in, []Effect{vignette, grade})
	if err != nil {
		t.Fatalf("Apply(vignette, grade) error = %v", err)
	}

	if gradeFirst.Equal(vignetteFirst) {
		t.Error("grade->vignette equals vignette->grade; effect order must matter")
	}
}

// TestApplyFrameScoping runs the canonical range-scoped pipeline: grade and
// grain over all 100 frames, vignette over the first 50 only.
func TestApplyFrameScoping(t *testing.T) {
	in := graySequence(100, 8, 8, 128)
	effects := []Effect{
		{Kind: KindColorGrade, Preset: PresetTealOrange, Intensity: 1, StartFrame: 0, EndFrame: 99},
		{Kind: KindGrain, Intensity: 0.05, Seed: 42, StartFrame: 0, EndFrame: 99},
		{Kind: KindVignette, Intensity: 0.3, StartFrame: 0, EndFrame: 49},
	}

	out, err := Apply(in, effects)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	withoutVignette, err := Apply(in, effects[:2])
	if err != nil {
		t.Fatalf("Apply() without vignette error = %v", err)
	}

	for i := 50; i < 100; i++ {
		if !out[i].Equal(withoutVignette[i]) {
			t.Fatalf("frame %d outside the vignette range was changed by it", i)
		}
	}
	for i := 0; i < 50; i++ {
		if out[i].Equal(withoutVignette[i]) {
			t.Fatalf("frame %d inside the vignette range shows no vignette", i)
		}
	}

	// The input render must survive untouched for a retry with new settings.
	for i := range in {
		for _, p := range in[i].Pix {
			if p != 128 {
				t.Fatal("pipeline mutated the input sequence")
			}
		}
	}
}

func TestApplySingleFrameRange(t *testing.T) {
	in := graySequence(3, 8, 8, 128)
	grade := Effect{Kind: KindColorGrade, Preset: PresetWarm, Intensity: 1, StartFrame: 1, EndFrame: 1}

	out, err := Apply(in, []Effect{grade})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !out[0].Equal(in[0]) || !out[2].Equal(in[2]) {
		t.Error("frames outside a single-frame range were modified")
	}
	if out[1].Equal(in[1]) {
		t.Error("frame inside a single-frame range was not modified")
	}
}

func TestApplyValidation(t *testing.T) {
	in := graySequence(10, 4, 4, 128)
	tests := []struct {
		name   string
		effect Effect
		want   error
	}{
		{
			name:   "unknown kind",
			effect: Effect{Kind: "sepia", Intensity: 1, StartFrame: 0, EndFrame: 9},
			want:   ErrUnknownEffectKind,
		},
		{
			name:   "unknown preset",
			effect: Effect{Kind: KindColorGrade, Preset: "noir", Intensity: 1, StartFrame: 0, EndFrame: 9},
			want:   ErrUnknownPreset,
		},
		{
			name:   "inverted range",
			effect: Effect{Kind: KindGrain, Intensity: 0.1, StartFrame: 5, EndFrame: 4},
			want:   ErrInvalidFrameRange,
		},
		{
			name:   "negative start",
			effect: Effect{Kind: KindGrain, Intensity: 0.1, StartFrame: -1, EndFrame: 4},
			want:   ErrInvalidFrameRange,
		},
		{
			name:   "end beyond sequence",
			effect: Effect{Kind: KindGrain, Intensity: 0.1, StartFrame: 0, EndFrame: 10},
			want:   ErrInvalidFrameRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(in, []Effect{tt.effect})
			if !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
			if out != nil {
				t.Error("Apply() returned a sequence alongside an error")
			}
		})
	}
}

func TestApplyFailureAbortsWholeCall(t *testing.T) {
	in := graySequence(10, 4, 4, 128)
	effects := []Effect{
		{Kind: KindGrain, Intensity: 0.1, Seed: 1, StartFrame: 0, EndFrame: 9},
		{Kind: KindColorGrade, Preset: "noir", Intensity: 1, StartFrame: 0, EndFrame: 9},
	}

	out, err := Apply(in, effects)
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("Apply() error = %v, want ErrUnknownPreset", err)
	}
	if out != nil {
		t.Error("a failing effect must abort the whole call, not return partial frames")
	}
}
