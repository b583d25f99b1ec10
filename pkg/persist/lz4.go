package persist

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec wraps another codec in an LZ4 frame.
type LZ4Codec struct {
	Inner Codec
	Level lz4.CompressionLevel
}

// NewLZ4Codec wraps inner with the fast compression level.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner, Level: lz4.Fast}
}

// Encode implements Codec.Encode.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	err := zw.Apply(lz4.CompressionLevelOption(c.Level))
	if err != nil {
		return fmt.Errorf("lz4 options: %w", err)
	}

	err = c.Inner.Encode(zw, state)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	return c.Inner.Decode(lz4.NewReader(r), state)
}

// Extension implements Codec.Extension: the inner extension plus ".lz4".
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}

// Unwrap returns the payload codec and a reader of the payload bytes.
func Unwrap(codec Codec, r io.Reader) (Codec, io.Reader) {
	for {
		wrapped, ok := codec.(*LZ4Codec)
		if !ok {
			return codec, r
		}

		codec, r = wrapped.Inner, lz4.NewReader(r)
	}
}
