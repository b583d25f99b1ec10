// Package config loads semevo configuration from YAML files and SEMEVO_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/model/generalization"
	"github.com/Sumatoshi-tech/semevo/pkg/model/specialization"
	"github.com/Sumatoshi-tech/semevo/pkg/persist"
	"github.com/Sumatoshi-tech/semevo/pkg/plot"
)

// Sentinel validation errors.
var (
	ErrInvalidGeneralization = errors.New("invalid generalization settings")
	ErrInvalidSpecialization = errors.New("invalid specialization settings")
	ErrInvalidSweep          = errors.New("invalid sweep settings")
	ErrInvalidCoverage       = errors.New("invalid coverage settings")
	ErrInvalidPlot           = errors.New("invalid plot settings")
	ErrInvalidTelemetry      = errors.New("invalid telemetry settings")
)

const envPrefix = "SEMEVO"

// Config holds all semevo configuration.
type Config struct {
	Generalization GeneralizationConfig `mapstructure:"generalization" yaml:"generalization"`
	Specialization SpecializationConfig `mapstructure:"specialization" yaml:"specialization"`
	Sweep          SweepConfig          `mapstructure:"sweep"          yaml:"sweep"`
	Coverage       CoverageConfig       `mapstructure:"coverage"       yaml:"coverage"`
	Plot           PlotConfig           `mapstructure:"plot"           yaml:"plot"`
	Logging        LoggingConfig        `mapstructure:"logging"        yaml:"logging"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"      yaml:"telemetry"`
}

// GeneralizationConfig holds single-run generalization settings.
type GeneralizationConfig struct {
	IntervalNumb int    `mapstructure:"interval_numb" yaml:"interval_numb"`
	Delta        string `mapstructure:"delta"         yaml:"delta"`
	Freeze       string `mapstructure:"freeze"        yaml:"freeze"`
	MaxRounds    int    `mapstructure:"max_rounds"    yaml:"max_rounds"`
	Seed         uint64 `mapstructure:"seed"          yaml:"seed"`
}

// SpecializationConfig holds single-run specialization settings.
type SpecializationConfig struct {
	IntervalNumb int     `mapstructure:"interval_numb" yaml:"interval_numb"`
	Gamma        float64 `mapstructure:"gamma"         yaml:"gamma"`
	Cutoff       bool    `mapstructure:"cutoff"        yaml:"cutoff"`
	Detector     string  `mapstructure:"detector"      yaml:"detector"`
	MaxRounds    int     `mapstructure:"max_rounds"    yaml:"max_rounds"`
	Seed         uint64  `mapstructure:"seed"          yaml:"seed"`
}

// SweepConfig holds the parameter grid and record storage of a sweep.
type SweepConfig struct {
	// Workers bounds parallel runs; 0 means GOMAXPROCS.
	Workers  int    `mapstructure:"workers"   yaml:"workers"`
	Runs     int    `mapstructure:"runs"      yaml:"runs"`
	BaseSeed uint64 `mapstructure:"base_seed" yaml:"base_seed"`
	// Output is the record directory.
	Output        string `mapstructure:"output"          yaml:"output"`
	Format        string `mapstructure:"format"          yaml:"format"`
	Compress      bool   `mapstructure:"compress"        yaml:"compress"`
	MaxRecordSize string `mapstructure:"max_record_size" yaml:"max_record_size"`

	Generalization SweepGeneralization `mapstructure:"generalization" yaml:"generalization"`
	Specialization SweepSpecialization `mapstructure:"specialization" yaml:"specialization"`
}

// SweepGeneralization lists generalization values to combine. Freeze and
// max rounds come from the generalization section.
type SweepGeneralization struct {
	Enabled       bool     `mapstructure:"enabled"        yaml:"enabled"`
	IntervalNumbs []int    `mapstructure:"interval_numbs" yaml:"interval_numbs"`
	Deltas        []string `mapstructure:"deltas"         yaml:"deltas"`
}

// SweepSpecialization lists specialization values to combine. Detector and
// max rounds come from the specialization section.
type SweepSpecialization struct {
	Enabled       bool      `mapstructure:"enabled"        yaml:"enabled"`
	IntervalNumbs []int     `mapstructure:"interval_numbs" yaml:"interval_numbs"`
	Gammas        []float64 `mapstructure:"gammas"         yaml:"gammas"`
	Cutoffs       []bool    `mapstructure:"cutoffs"        yaml:"cutoffs"`
}

// CoverageConfig holds covering window settings.
type CoverageConfig struct {
	Rho       float64 `mapstructure:"rho"        yaml:"rho"`
	StartRank int     `mapstructure:"start_rank" yaml:"start_rank"`
	Step      int     `mapstructure:"step"       yaml:"step"`
}

// Options converts the section to coverage options.
func (c CoverageConfig) Options() coverage.Options {
	return coverage.Options{Rho: c.Rho, StartRank: c.StartRank, Step: c.Step}
}

// PlotConfig holds chart settings.
type PlotConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
	Dir   string `mapstructure:"dir"   yaml:"dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json"  yaml:"json"`
	// RoundEvery logs every n-th engine round at debug level; 0 disables it.
	RoundEvery int `mapstructure:"round_every" yaml:"round_every"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Environment  string  `mapstructure:"environment"   yaml:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"  yaml:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  yaml:"sample_ratio"`
	// MetricsAddr serves Prometheus /metrics during a sweep when set.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty configPath searches semevo.yaml in ., ./config and /etc/semevo; a
// missing file there is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("semevo")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/semevo")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when no file or environment
// overrides exist.
func Default() *Config {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	var config Config

	// Defaults are plain values; decoding them cannot fail.
	_ = viperCfg.Unmarshal(&config)

	return &config
}

// Validate checks every section.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateGeneralization(),
		c.validateSpecialization(),
		c.validateSweep(),
		c.validateCoverage(),
		c.validatePlot(),
		c.validateTelemetry(),
	)
}

func (c *Config) validateGeneralization() error {
	g := c.Generalization

	if g.IntervalNumb <= 0 {
		return fmt.Errorf("%w: interval_numb must be positive, got %d", ErrInvalidGeneralization, g.IntervalNumb)
	}

	if g.MaxRounds < 0 {
		return fmt.Errorf("%w: max_rounds must not be negative, got %d", ErrInvalidGeneralization, g.MaxRounds)
	}

	_, err := model.ParseDelta(g.Delta)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGeneralization, err)
	}

	_, err = generalization.ParseFreezeMode(g.Freeze)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGeneralization, err)
	}

	return nil
}

func (c *Config) validateSpecialization() error {
	s := c.Specialization

	if s.IntervalNumb <= 0 {
		return fmt.Errorf("%w: interval_numb must be positive, got %d", ErrInvalidSpecialization, s.IntervalNumb)
	}

	if !(s.Gamma > 1) {
		return fmt.Errorf("%w: gamma must be greater than 1, got %g", ErrInvalidSpecialization, s.Gamma)
	}

	if s.MaxRounds < 0 {
		return fmt.Errorf("%w: max_rounds must not be negative, got %d", ErrInvalidSpecialization, s.MaxRounds)
	}

	_, err := specialization.ParseDetector(s.Detector)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpecialization, err)
	}

	return nil
}

func (c *Config) validateSweep() error {
	s := c.Sweep

	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidSweep, s.Workers)
	}

	if s.Runs < 1 {
		return fmt.Errorf("%w: runs must be at least 1, got %d", ErrInvalidSweep, s.Runs)
	}

	_, err := persist.CodecByName(s.Format, s.Compress)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSweep, err)
	}

	_, err = s.MaxRecordBytes()
	if err != nil {
		return err
	}

	for _, d := range s.Generalization.Deltas {
		_, err = model.ParseDelta(d)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSweep, err)
		}
	}

	for _, n := range slices.Concat(s.Generalization.IntervalNumbs, s.Specialization.IntervalNumbs) {
		if n <= 0 {
			return fmt.Errorf("%w: interval_numbs must be positive, got %d", ErrInvalidSweep, n)
		}
	}

	for _, g := range s.Specialization.Gammas {
		if !(g > 1) {
			return fmt.Errorf("%w: gammas must be greater than 1, got %g", ErrInvalidSweep, g)
		}
	}

	return nil
}

// MaxRecordBytes parses MaxRecordSize ("64MB", "1GiB"); empty means no bound.
func (s SweepConfig) MaxRecordBytes() (int64, error) {
	trimmed := strings.TrimSpace(s.MaxRecordSize)
	if trimmed == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: max_record_size %q: %w", ErrInvalidSweep, s.MaxRecordSize, err)
	}

	return int64(size), nil
}

func (c *Config) validateCoverage() error {
	err := c.Coverage.Options().Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCoverage, err)
	}

	return nil
}

func (c *Config) validatePlot() error {
	_, err := plot.ParseTheme(c.Plot.Theme)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlot, err)
	}

	return nil
}

func (c *Config) validateTelemetry() error {
	r := c.Telemetry.SampleRatio
	if r < 0 || r > 1 {
		return fmt.Errorf("%w: sample_ratio must be within [0,1], got %g", ErrInvalidTelemetry, r)
	}

	return nil
}

// Dump writes the configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("flush config: %w", err)
	}

	return nil
}
