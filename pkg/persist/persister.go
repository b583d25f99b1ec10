package persist

import (
	"bytes"
	"fmt"
)

// Validator inspects a raw payload before it is decoded. It receives the
// payload codec so it can skip formats it does not understand.
type Validator func(payload []byte, codec Codec) error

// Persister handles I/O for one state type.
type Persister[T any] struct {
	codec    Codec
	limit    int64
	validate Validator
}

// NewPersister creates a persister that writes with codec. limit bounds the
// payload size on load (0 = unbounded); validate may be nil.
func NewPersister[T any](codec Codec, limit int64, validate Validator) *Persister[T] {
	return &Persister[T]{codec: codec, limit: limit, validate: validate}
}

// Codec returns the codec used for saving.
func (p *Persister[T]) Codec() Codec {
	return p.codec
}

// Save writes state as dir/basename plus the codec extension and returns the path.
func (p *Persister[T]) Save(dir, basename string, state *T) (string, error) {
	err := SaveState(dir, basename, p.codec, state)
	if err != nil {
		return "", err
	}

	return Path(dir, basename, p.codec), nil
}

// Load reads the state at path. The codec is inferred from the file name, so
// a persister can read files written in any supported format.
func (p *Persister[T]) Load(path string) (*T, error) {
	codec, err := CodecForPath(path)
	if err != nil {
		return nil, err
	}

	payload, inner, err := ReadPayload(path, codec, p.limit)
	if err != nil {
		return nil, err
	}

	if p.validate != nil {
		err = p.validate(payload, inner)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", path, err)
		}
	}

	var state T

	err = inner.Decode(bytes.NewReader(payload), &state)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &state, nil
}
