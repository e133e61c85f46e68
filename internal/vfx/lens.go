package vfx

import "math"

// blurTransform is a separable box blur. The kernel half-width follows the
// classic look: int(intensity*21), so a full-intensity blur runs a 43-tap
// kernel and intensity may exceed 1 for heavier smears. Sampling clamps to
// the frame edge.
func blurTransform(e Effect) transform {
	radius := int(e.Intensity * 21)
	return func(f Frame, _ int) Frame {
		if radius <= 0 {
			return f.Clone()
		}
		out := Frame{W: f.W, H: f.H, Pix: make([]uint8, len(f.Pix))}
		for c := 0; c < 3; c++ {
			plane := boxBlurPlane(channelPlane(f, c), f.W, f.H, radius)
			for p, v := range plane {
				out.Pix[p*3+c] = clampByte(v)
			}
		}
		return out
	}
}

// boxBlurPlane runs a horizontal then a vertical sliding-window average of
// width 2*radius+1 over one channel plane.
func boxBlurPlane(src []float64, w, h, radius int) []float64 {
	k := float64(2*radius + 1)

	tmp := make([]float64, len(src))
	for y := 0; y < h; y++ {
		row := y * w
		var sum float64
		for i := -radius; i <= radius; i++ {
			sum += src[row+clampIndex(i, w-1)]
		}
		tmp[row] = sum / k
		for x := 1; x < w; x++ {
			sum += src[row+clampIndex(x+radius, w-1)]
			sum -= src[row+clampIndex(x-radius-1, w-1)]
			tmp[row+x] = sum / k
		}
	}

	out := make([]float64, len(src))
	for x := 0; x < w; x++ {
		var sum float64
		for i := -radius; i <= radius; i++ {
			sum += tmp[clampIndex(i, h-1)*w+x]
		}
		out[x] = sum / k
		for y := 1; y < h; y++ {
			sum += tmp[clampIndex(y+radius, h-1)*w+x]
			sum -= tmp[clampIndex(y-radius-1, h-1)*w+x]
			out[y*w+x] = sum / k
		}
	}
	return out
}

// sharpenTransform is an unsharp mask: out = in + amount*(in - blurred),
// with a 3x3 binomial blur and amount = intensity*2. Intensity 0 leaves the
// frame untouched; overshoot is clamped per channel.
func sharpenTransform(e Effect) transform {
	return func(f Frame, _ int) Frame {
		if e.Intensity <= 0 {
			return f.Clone()
		}
		amount := e.Intensity * 2
		out := Frame{W: f.W, H: f.H, Pix: make([]uint8, len(f.Pix))}
		for c := 0; c < 3; c++ {
			plane := channelPlane(f, c)
			blurred := smooth3x3(plane, f.W, f.H)
			for p := range plane {
				v := plane[p] + amount*(plane[p]-blurred[p])
				out.Pix[p*3+c] = clampByte(v)
			}
		}
		return out
	}
}

// aberrationTransform fakes lens fringing by rolling the red channel left
// and the blue channel right, wrapping at the frame edge. OffsetPx is the
// shift at intensity 1 (default 3 columns); green stays put.
func aberrationTransform(e Effect) transform {
	offset := e.OffsetPx
	if offset == 0 {
		offset = 3
	}
	return func(f Frame, _ int) Frame {
		shift := int(math.Round(float64(offset) * e.Intensity))
		if shift <= 0 || f.W == 0 {
			return f.Clone()
		}
		shift %= f.W

		out := f.Clone()
		for y := 0; y < f.H; y++ {
			row := y * f.W * 3
			for x := 0; x < f.W; x++ {
				rSrc := row + ((x+shift)%f.W)*3
				bSrc := row + ((x-shift+f.W)%f.W)*3
				out.Pix[row+x*3] = f.Pix[rSrc]
				out.Pix[row+x*3+2] = f.Pix[bSrc+2]
			}
		}
		return out
	}
}
