// Package persist provides codec-based file persistence for run records:
// JSON, gob and YAML encodings, each optionally wrapped in LZ4 framing.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	gobExtension  = ".gob"
	yamlExtension = ".yaml"
	lz4Extension  = ".lz4"
)

// Format names accepted by CodecByName.
const (
	FormatJSON = "json"
	FormatGob  = "gob"
	FormatYAML = "yaml"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// ErrUnknownFormat is returned when a format name or file extension has no codec.
var ErrUnknownFormat = errors.New("unknown persistence format")

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".json", ".json.lz4").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	err := json.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// GobCodec implements Codec using gob encoding.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.Encode using gob encoding.
func (c *GobCodec) Encode(w io.Writer, state any) error {
	err := gob.NewEncoder(w).Encode(state)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, state any) error {
	err := gob.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for gob files.
func (c *GobCodec) Extension() string {
	return gobExtension
}

// YAMLCodec implements Codec using yaml.v3.
type YAMLCodec struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, state any) error {
	encoder := yaml.NewEncoder(w)

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding.
func (c *YAMLCodec) Decode(r io.Reader, state any) error {
	err := yaml.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// CodecByName returns the codec for a format name, LZ4-wrapped when compress
// is set.
func CodecByName(format string, compress bool) (Codec, error) {
	var codec Codec

	switch strings.ToLower(format) {
	case FormatJSON, "":
		codec = NewJSONCodec()
	case FormatGob:
		codec = NewGobCodec()
	case FormatYAML, "yml":
		codec = NewYAMLCodec()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if compress {
		return NewLZ4Codec(codec), nil
	}

	return codec, nil
}

// CodecForPath infers the codec from a file name such as "run.json" or
// "run.gob.lz4".
func CodecForPath(path string) (Codec, error) {
	name := filepath.Base(path)

	compress := strings.HasSuffix(name, lz4Extension)
	name = strings.TrimSuffix(name, lz4Extension)

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	return CodecByName(ext, compress)
}

// TrimExtension strips the codec extension from a file name.
func TrimExtension(name string) string {
	name = strings.TrimSuffix(name, lz4Extension)

	return strings.TrimSuffix(name, filepath.Ext(name))
}
