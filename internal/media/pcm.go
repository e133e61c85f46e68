package media

import (
	"encoding/binary"
	"math"
)

// samplesFromF32LE reinterprets little-endian 32-bit float PCM as float64
// samples. A trailing partial sample is dropped.
func samplesFromF32LE(data []byte) []float64 {
	n := len(data) / 4
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples
}

// f32leFromSamples encodes float64 samples as little-endian 32-bit float
// PCM, the format the encoder's audio side file carries.
func f32leFromSamples(samples []float64) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(s)))
	}
	return out
}
