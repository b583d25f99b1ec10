package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned when a payload exceeds the caller's size limit.
var ErrTooLarge = errors.New("payload exceeds size limit")

// Path returns the file path for basename in dir under codec.
func Path(dir, basename string, codec Codec) string {
	return filepath.Join(dir, basename+codec.Extension())
}

// SaveState writes state to dir/basename+extension. The file is written to a
// temporary name first and renamed into place.
func SaveState(dir, basename string, codec Codec, state any) error {
	path := Path(dir, basename, codec)

	file, err := os.CreateTemp(dir, "."+basename+"-*")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	tmp := file.Name()

	err = codec.Encode(file, state)
	if err != nil {
		file.Close()
		os.Remove(tmp)

		return fmt.Errorf("encode state: %w", err)
	}

	err = file.Close()
	if err != nil {
		os.Remove(tmp)

		return fmt.Errorf("close state file: %w", err)
	}

	err = os.Rename(tmp, path)
	if err != nil {
		os.Remove(tmp)

		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// LoadState decodes dir/basename+extension into state, which must be a pointer.
func LoadState(dir, basename string, codec Codec, state any) error {
	file, err := os.Open(Path(dir, basename, codec))
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}

// ReadPayload reads the file at path, strips any compression layer and
// returns the raw payload with the codec that decodes it. A positive limit
// bounds the uncompressed payload size.
func ReadPayload(path string, codec Codec, limit int64) ([]byte, Codec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	inner, r := Unwrap(codec, file)
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	var buf bytes.Buffer

	_, err = buf.ReadFrom(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read state file: %w", err)
	}

	if limit > 0 && int64(buf.Len()) > limit {
		return nil, nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, path, limit)
	}

	return buf.Bytes(), inner, nil
}
