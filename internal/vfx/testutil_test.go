package vfx

func grayFrame(w, h int, v uint8) Frame {
	f := NewFrame(w, h)
	f.Fill(v, v, v)
	return f
}

func graySequence(n, w, h int, v uint8) Sequence {
	s := make(Sequence, n)
	for i := range s {
		s[i] = grayFrame(w, h, v)
	}
	return s
}

// gradientFrame ramps every channel horizontally so curve remaps touch many
// distinct input values.
func gradientFrame(w, h int) Frame {
	f := NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			f.SetRGB(x, y, v, v, v)
		}
	}
	return f
}
