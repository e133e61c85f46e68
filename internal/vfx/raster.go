package vfx

import "math"

// clampByte rounds v into the 0-255 channel range.
func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

// channelPlane extracts channel c (0=R, 1=G, 2=B) as a float plane.
func channelPlane(f Frame, c int) []float64 {
	plane := make([]float64, f.W*f.H)
	for p := range plane {
		plane[p] = float64(f.Pix[p*3+c])
	}
	return plane
}

// smooth3x3 applies a separable 3x3 binomial blur ([1 2 1] in each axis,
// normalized) with clamp-to-edge sampling.
func smooth3x3(src []float64, w, h int) []float64 {
	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			l := row + clampIndex(x-1, w-1)
			r := row + clampIndex(x+1, w-1)
			tmp[row+x] = (src[l] + 2*src[row+x] + src[r]) / 4
		}
	}
	out := make([]float64, len(src))
	for y := 0; y < h; y++ {
		u := clampIndex(y-1, h-1) * w
		d := clampIndex(y+1, h-1) * w
		row := y * w
		for x := 0; x < w; x++ {
			out[row+x] = (tmp[u+x] + 2*tmp[row+x] + tmp[d+x]) / 4
		}
	}
	return out
}

// gaussianProfile returns exp(-(i-center)^2 / (2 sigma^2)) for i in [0, n),
// centered on (n-1)/2. Peak-normalization happens at the caller since the
// scale constant cancels there anyway.
func gaussianProfile(n int, sigma float64) []float64 {
	out := make([]float64, n)
	center := float64(n-1) / 2
	denom := 2 * sigma * sigma
	for i := range out {
		d := float64(i) - center
		out[i] = math.Exp(-d * d / denom)
	}
	return out
}
