package vfx

import (
	"math"
	"math/rand"
)

// frameSeedStride decorrelates per-frame noise streams derived from one
// effect seed.
const frameSeedStride uint64 = 0x9E3779B97F4A7C15

// grainTransform adds monochrome gaussian film grain. The noise standard
// deviation is intensity*50 on the 0-255 scale and intensity may exceed 1;
// a 3x3 binomial pass softens the noise so it reads as film rather than
// salt-and-pepper. The effect seed plus the frame index determine the noise
// stream, keeping the transform a pure function of its inputs.
func grainTransform(e Effect) transform {
	return func(f Frame, index int) Frame {
		if e.Intensity <= 0 {
			return f.Clone()
		}
		sigma := e.Intensity * 50
		seed := uint64(e.Seed) ^ uint64(index+1)*frameSeedStride
		rng := rand.New(rand.NewSource(int64(seed)))

		noise := make([]float64, f.W*f.H)
		for i := range noise {
			noise[i] = rng.NormFloat64() * sigma
		}
		noise = smooth3x3(noise, f.W, f.H)

		out := f.Clone()
		for p, n := range noise {
			base := p * 3
			for c := 0; c < 3; c++ {
				out.Pix[base+c] = clampByte(float64(out.Pix[base+c]) + n)
			}
		}
		return out
	}
}

// vignetteTransform darkens toward the frame edges. The mask is the outer
// product of two 1-D gaussians (sigma = dimension/2) normalized to peak 1,
// raised to the intensity power: intensity 0 leaves the frame untouched,
// and intensities above 1 crush the corners further.
func vignetteTransform(e Effect) transform {
	var mask []float64
	var maskW, maskH int
	return func(f Frame, _ int) Frame {
		if e.Intensity <= 0 {
			return f.Clone()
		}
		if mask == nil || maskW != f.W || maskH != f.H {
			mask = vignetteMask(f.W, f.H, e.Intensity)
			maskW, maskH = f.W, f.H
		}

		out := f.Clone()
		for p, m := range mask {
			base := p * 3
			for c := 0; c < 3; c++ {
				out.Pix[base+c] = clampByte(float64(out.Pix[base+c]) * m)
			}
		}
		return out
	}
}

func vignetteMask(w, h int, intensity float64) []float64 {
	kx := gaussianProfile(w, float64(w)/2)
	ky := gaussianProfile(h, float64(h)/2)

	mask := make([]float64, w*h)
	var peak float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := ky[y] * kx[x]
			mask[y*w+x] = v
			if v > peak {
				peak = v
			}
		}
	}
	for i := range mask {
		mask[i] = math.Pow(mask[i]/peak, intensity)
	}
	return mask
}
