package audio

import (
	"context"
	"errors"
	"fmt"
)

// Decoder is the narrow capability interface the engine uses to turn an
// encoded media file into PCM. Implementations live outside the core
// (internal/media provides one backed by the ffmpeg binary) so the engine
// never depends on a particular codec stack.
type Decoder interface {
	// DecodePCM returns mono samples in [-1, 1] and their native sample rate.
	DecodePCM(ctx context.Context, path string) ([]float64, int, error)
}

// ErrDecode reports that a source file could not be decoded: unsupported
// container or codec, truncated or corrupt data, or an empty stream.
var ErrDecode = errors.New("decode error")

// LoadBuffer decodes the file at path into a Buffer using dec. Every decoder
// failure, including a decode that produces no samples, is reported as
// ErrDecode.
func LoadBuffer(ctx context.Context, dec Decoder, path string) (Buffer, error) {
	samples, rate, err := dec.DecodePCM(ctx, path)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	if len(samples) == 0 || rate <= 0 {
		return Buffer{}, fmt.Errorf("%w: %s: decoder produced no samples", ErrDecode, path)
	}
	return Buffer{Samples: samples, Rate: rate}, nil
}
