// Package audio provides the waveform primitives the composition engine is
// built on: an immutable mono sample buffer, deterministic resampling,
// windowed RMS energy, and decibel conversions.
package audio

import (
	"fmt"
	"math"
	"time"
)

// Buffer is a mono waveform: float64 samples, nominally in [-1, 1], at a
// fixed sample rate. Transforms return new buffers rather than mutating in
// place, so a buffer can be handed between pipeline stages and reused if a
// later stage is re-run with different parameters.
type Buffer struct {
	Samples []float64
	Rate    int
}

// New wraps samples at the given rate. The slice is not copied; the caller
// hands over ownership.
func New(samples []float64, rate int) Buffer {
	return Buffer{Samples: samples, Rate: rate}
}

// Silence returns a buffer of n zero samples at the given rate.
func Silence(n, rate int) Buffer {
	return Buffer{Samples: make([]float64, n), Rate: rate}
}

// Len returns the number of sample frames.
func (b Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the buffer's play time at its sample rate.
func (b Buffer) Duration() time.Duration {
	if b.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.Rate) * float64(time.Second))
}

// Clone returns a deep copy sharing no storage with the receiver.
func (b Buffer) Clone() Buffer {
	out := make([]float64, len(b.Samples))
	copy(out, b.Samples)
	return Buffer{Samples: out, Rate: b.Rate}
}

// Peak returns the largest absolute sample value, 0 for an empty buffer.
func (b Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Resample converts the buffer to targetRate using linear interpolation.
// The output length is round(len * target/source), which keeps total
// duration within one sample period of the input. Resampling at the
// buffer's own rate returns a copy.
func (b Buffer) Resample(targetRate int) (Buffer, error) {
	if targetRate <= 0 {
		return Buffer{}, fmt.Errorf("resample: invalid target rate %d", targetRate)
	}
	if b.Rate <= 0 {
		return Buffer{}, fmt.Errorf("resample: buffer has no sample rate")
	}
	if targetRate == b.Rate {
		return b.Clone(), nil
	}
	if len(b.Samples) == 0 {
		return Buffer{Rate: targetRate}, nil
	}

	outLen := int(math.Round(float64(len(b.Samples)) * float64(targetRate) / float64(b.Rate)))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float64, outLen)
	step := float64(b.Rate) / float64(targetRate)
	last := len(b.Samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = b.Samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = b.Samples[j]*(1-frac) + b.Samples[j+1]*frac
	}
	return Buffer{Samples: out, Rate: targetRate}, nil
}

// RMSEnergy computes windowed root-mean-square energy: one value per hop,
// where value i covers samples [i*hopSize, i*hopSize+windowSize). Windows at
// the tail shorter than windowSize are zero-padded rather than dropped, so
// the result always has ceil(Len/hopSize) entries.
func (b Buffer) RMSEnergy(windowSize, hopSize int) []float64 {
	if windowSize <= 0 || hopSize <= 0 || len(b.Samples) == 0 {
		return nil
	}
	n := (len(b.Samples) + hopSize - 1) / hopSize
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hopSize
		end := start + windowSize
		if end > len(b.Samples) {
			end = len(b.Samples)
		}
		var sum float64
		for _, s := range b.Samples[start:end] {
			sum += s * s
		}
		// Short tail windows divide by the full window length, which is
		// what zero-padding the missing samples works out to.
		out[i] = math.Sqrt(sum / float64(windowSize))
	}
	return out
}

// DbToLinear converts a decibel value to linear amplitude scale.
// Formula: linear = 10^(dB/20)
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDb converts a linear amplitude value to decibels.
// Formula: dB = 20 * log10(linear)
// Returns -150.0 for values <= 0 to avoid math errors (effectively silence).
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return -150.0
	}
	return 20 * math.Log10(linear)
}
