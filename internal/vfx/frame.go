// Package vfx applies ordered, frame-range-scoped visual effects to raw RGB
// frame sequences: color grading, film grain, vignette, blur, sharpen, and
// chromatic aberration.
package vfx

// Frame is one 8-bit RGB raster, row-major, three bytes per pixel. The
// layout matches the rawvideo rgb24 format the media collaborators read and
// write, so frames move to and from the encoder without conversion.
type Frame struct {
	W, H int
	Pix  []uint8
}

// NewFrame returns a black frame of the given dimensions.
func NewFrame(w, h int) Frame {
	return Frame{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

// Clone returns a deep copy sharing no storage with the receiver.
func (f Frame) Clone() Frame {
	pix := make([]uint8, len(f.Pix))
	copy(pix, f.Pix)
	return Frame{W: f.W, H: f.H, Pix: pix}
}

// Fill sets every pixel to the given color.
func (f Frame) Fill(r, g, b uint8) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i] = r
		f.Pix[i+1] = g
		f.Pix[i+2] = b
	}
}

// RGB returns the pixel at (x, y).
func (f Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.W + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the pixel at (x, y).
func (f Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.W + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Equal reports whether two frames have identical dimensions and pixels.
func (f Frame) Equal(other Frame) bool {
	if f.W != other.W || f.H != other.H || len(f.Pix) != len(other.Pix) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// Sequence is an ordered list of frames, implicitly timestamped by position
// and frame rate. Sequences come from the render collaborator and are
// treated as read-only: the pipeline transforms a deep copy.
type Sequence []Frame

// NewSequence returns n black frames of the given dimensions.
func NewSequence(n, w, h int) Sequence {
	s := make(Sequence, n)
	for i := range s {
		s[i] = NewFrame(w, h)
	}
	return s
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	for i, f := range s {
		out[i] = f.Clone()
	}
	return out
}

// Equal reports whether two sequences are frame-for-frame identical.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}
	return true
}
