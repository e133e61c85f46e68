package mix

import (
	"math"
	"testing"

	"github.com/linuxmatters/dubstage/internal/audio"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func constantBuffer(value float64, n, rate int) audio.Buffer {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = value
	}
	return audio.New(samples, rate)
}

func sineBuffer(freq, amp, seconds float64, rate int) audio.Buffer {
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / float64(rate)
		samples[i] = amp * math.Sin(2*math.Pi*freq*t)
	}
	return audio.New(samples, rate)
}

// voiceBursts builds the alternating narration pattern used by the ducking
// tests: 2 s of 440 Hz tone, 2 s of silence, repeating for the requested
// duration, starting with tone.
func voiceBursts(seconds float64, rate int) audio.Buffer {
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / float64(rate)
		if int(t/2)%2 == 0 {
			samples[i] = 0.5 * math.Sin(2*math.Pi*440*t)
		}
	}
	return audio.New(samples, rate)
}

// rmsRange computes RMS energy of samples in the half-open second range
// [from, to).
func rmsRange(t *testing.T, buf audio.Buffer, from, to float64) float64 {
	t.Helper()
	a := int(from * float64(buf.Rate))
	b := int(to * float64(buf.Rate))
	if a < 0 || b > buf.Len() || a >= b {
		t.Fatalf("rmsRange [%v, %v) outside buffer of %d samples", from, to, buf.Len())
	}
	var sum float64
	for _, s := range buf.Samples[a:b] {
		sum += s * s
	}
	return math.Sqrt(sum / float64(b-a))
}
