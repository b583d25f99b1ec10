// Package store keeps simulation run records on disk, one file per run,
// named after the model parameters and run index.
package store

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/persist"
)

// Sentinel errors.
var (
	// ErrInvalidRecord is returned for records that fail schema or model checks.
	ErrInvalidRecord = errors.New("invalid run record")
)

// File name prefixes per model.
const (
	filePrefix       = "Data_"
	generalizationID = "GenModel"
	specializationID = "SpecModel"
)

const dirPerm = 0o750

//go:embed record.schema.json
var schemaJSON []byte

var recordSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Params are the generating parameters of a run.
type Params struct {
	IntervalNumb int     `json:"interval_numb"        yaml:"interval_numb"`
	Delta        string  `json:"delta,omitempty"      yaml:"delta,omitempty"`
	Freeze       string  `json:"freeze,omitempty"     yaml:"freeze,omitempty"`
	Gamma        float64 `json:"gamma,omitempty"      yaml:"gamma,omitempty"`
	Cutoff       bool    `json:"cutoff,omitempty"     yaml:"cutoff,omitempty"`
	Detector     string  `json:"detector,omitempty"   yaml:"detector,omitempty"`
	MaxRounds    int     `json:"max_rounds,omitempty" yaml:"max_rounds,omitempty"`
}

// Record is one stored run.
type Record struct {
	Model  string `json:"model"  yaml:"model"`
	Params Params `json:"params" yaml:"params"`
	Seed   uint64 `json:"seed"   yaml:"seed"`
	Run    int    `json:"run"    yaml:"run"`

	model.Result `yaml:",inline"`

	// Error holds the failure text of a run that did not converge.
	Error     string    `json:"error,omitempty"   yaml:"error,omitempty"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedAt time.Time `json:"created_at"        yaml:"created_at"`
}

// Name returns the file basename of rec, e.g.
// Data_GenModel_IntNum-5000_Delta-relative_Run-3.
func Name(rec *Record) (string, error) {
	p := rec.Params

	switch rec.Model {
	case model.Generalization:
		return fmt.Sprintf("%s%s_IntNum-%d_Delta-%s_Run-%d",
			filePrefix, generalizationID, p.IntervalNumb, p.Delta, rec.Run), nil
	case model.Specialization:
		return fmt.Sprintf("%s%s_IntNum-%d_Gamma-%s_Cutoff-%t_Run-%d",
			filePrefix, specializationID, p.IntervalNumb, formatFloat(p.Gamma), p.Cutoff, rec.Run), nil
	default:
		return "", fmt.Errorf("%w: unknown model %q", ErrInvalidRecord, rec.Model)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Options configures a Store.
type Options struct {
	// Format is a persist format name: json, gob or yaml.
	Format   string
	Compress bool
	// MaxRecordSize bounds the uncompressed size of a record on load; 0 means
	// no bound.
	MaxRecordSize int64
}

// Store reads and writes records under one directory.
type Store struct {
	dir       string
	persister *persist.Persister[Record]
}

// New opens dir, creating it when missing.
func New(dir string, opts Options) (*Store, error) {
	codec, err := persist.CodecByName(opts.Format, opts.Compress)
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return &Store{
		dir:       dir,
		persister: persist.NewPersister[Record](codec, opts.MaxRecordSize, validatePayload),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes rec and returns its path. An existing file for the same
// parameters and run index is replaced.
func (s *Store) Save(rec *Record) (string, error) {
	name, err := Name(rec)
	if err != nil {
		return "", err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	path, err := s.persister.Save(s.dir, name, rec)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}

	return path, nil
}

// Load reads the record at path in whichever format its name indicates.
func (s *Store) Load(path string) (*Record, error) {
	rec, err := s.persister.Load(path)
	if err != nil {
		return nil, err
	}

	if rec.Model != model.Generalization && rec.Model != model.Specialization {
		return nil, fmt.Errorf("%w: %s: unknown model %q", ErrInvalidRecord, path, rec.Model)
	}

	return rec, nil
}

// List returns the paths of all record files in the store, sorted by name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}

	var paths []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) {
			continue
		}

		_, err = persist.CodecForPath(name)
		if err != nil {
			continue
		}

		paths = append(paths, filepath.Join(s.dir, name))
	}

	slices.Sort(paths)

	return paths, nil
}

// LoadAll loads every listed record.
func (s *Store) LoadAll() ([]*Record, error) {
	paths, err := s.List()
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(paths))

	for _, path := range paths {
		rec, loadErr := s.Load(path)
		if loadErr != nil {
			return nil, loadErr
		}

		records = append(records, rec)
	}

	return records, nil
}

// Validate checks a JSON record document against the record schema.
func Validate(payload []byte) error {
	schema, err := recordSchema()
	if err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
}

// validatePayload applies the schema to JSON payloads only.
func validatePayload(payload []byte, codec persist.Codec) error {
	if _, ok := codec.(*persist.JSONCodec); !ok {
		return nil
	}

	return Validate(payload)
}
