package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/semevo/pkg/config"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

const (
	testIntervalNumb = 1200
	testGamma        = 1.1
	testWorkers      = 6
	testMaxBytes     = 2_000_000
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "semevo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// TestLoadConfig_EmptyFileUsesDefaults verifies every default.
func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultIntervalNumb, cfg.Generalization.IntervalNumb)
	assert.Equal(t, model.RelativeDelta, cfg.Generalization.Delta)
	assert.Equal(t, "round-end", cfg.Generalization.Freeze)
	assert.InDelta(t, config.DefaultGamma, cfg.Specialization.Gamma, 1e-12)
	assert.True(t, cfg.Specialization.Cutoff)
	assert.Equal(t, "scan", cfg.Specialization.Detector)
	assert.Equal(t, config.DefaultSweepRuns, cfg.Sweep.Runs)
	assert.True(t, cfg.Sweep.Generalization.Enabled)
	assert.Equal(t, []int{config.DefaultSweepIntervalNumb}, cfg.Sweep.Generalization.IntervalNumbs)
	assert.False(t, cfg.Sweep.Specialization.Enabled)
	assert.Equal(t, "json", cfg.Sweep.Format)
	assert.InDelta(t, 2.0, cfg.Coverage.Rho, 1e-12)
	assert.Equal(t, 10, cfg.Coverage.Step)
	assert.Equal(t, "light", cfg.Plot.Theme)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, config.Default(), cfg)
}

// TestLoadConfig_ValidFile verifies file values override defaults.
func TestLoadConfig_ValidFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `generalization:
  interval_numb: 1200
  delta: "0.0001"
  freeze: immediate
specialization:
  gamma: 1.1
  cutoff: false
  detector: tree
sweep:
  workers: 6
  runs: 3
  compress: true
  max_record_size: 2MB
  specialization:
    enabled: true
    gammas: [1.1, 2.0]
    cutoffs: [true, false]
plot:
  theme: dark
`))
	require.NoError(t, err)

	assert.Equal(t, testIntervalNumb, cfg.Generalization.IntervalNumb)
	assert.Equal(t, "0.0001", cfg.Generalization.Delta)
	assert.Equal(t, "immediate", cfg.Generalization.Freeze)
	assert.InDelta(t, testGamma, cfg.Specialization.Gamma, 1e-12)
	assert.False(t, cfg.Specialization.Cutoff)
	assert.Equal(t, "tree", cfg.Specialization.Detector)
	assert.Equal(t, testWorkers, cfg.Sweep.Workers)
	assert.True(t, cfg.Sweep.Compress)
	assert.True(t, cfg.Sweep.Specialization.Enabled)
	assert.Equal(t, []float64{testGamma, 2.0}, cfg.Sweep.Specialization.Gammas)
	assert.Equal(t, []bool{true, false}, cfg.Sweep.Specialization.Cutoffs)
	assert.Equal(t, "dark", cfg.Plot.Theme)

	size, err := cfg.Sweep.MaxRecordBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(testMaxBytes), size)
}

// TestLoadConfig_Invalid verifies each section's validation error.
func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"zero intervals", "generalization:\n  interval_numb: 0\n", config.ErrInvalidGeneralization},
		{"bad delta", "generalization:\n  delta: wide\n", config.ErrInvalidGeneralization},
		{"bad freeze", "generalization:\n  freeze: later\n", config.ErrInvalidGeneralization},
		{"gamma one", "specialization:\n  gamma: 1\n", config.ErrInvalidSpecialization},
		{"bad detector", "specialization:\n  detector: grid\n", config.ErrInvalidSpecialization},
		{"zero runs", "sweep:\n  runs: 0\n", config.ErrInvalidSweep},
		{"bad format", "sweep:\n  format: xml\n", config.ErrInvalidSweep},
		{"bad size", "sweep:\n  max_record_size: lots\n", config.ErrInvalidSweep},
		{"bad sweep gamma", "sweep:\n  specialization:\n    gammas: [0.5]\n", config.ErrInvalidSweep},
		{"rho one", "coverage:\n  rho: 1\n", config.ErrInvalidCoverage},
		{"bad theme", "plot:\n  theme: neon\n", config.ErrInvalidPlot},
		{"bad ratio", "telemetry:\n  sample_ratio: 2\n", config.ErrInvalidTelemetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

// TestLoadConfig_MissingExplicitFile verifies an explicit path must exist.
func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestLoadConfig_Env verifies SEMEVO_ variables override the file.
func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SEMEVO_GENERALIZATION_INTERVAL_NUMB", "77")
	t.Setenv("SEMEVO_PLOT_THEME", "dark")

	cfg, err := config.LoadConfig(writeConfig(t, "generalization:\n  interval_numb: 5\n"))
	require.NoError(t, err)

	assert.Equal(t, 77, cfg.Generalization.IntervalNumb)
	assert.Equal(t, "dark", cfg.Plot.Theme)
}

// TestDump verifies the YAML dump loads back to the same configuration.
func TestDump(t *testing.T) {
	t.Parallel()

	want := config.Default()
	want.Specialization.Gamma = testGamma

	var buf bytes.Buffer
	require.NoError(t, want.Dump(&buf))
	assert.Contains(t, buf.String(), "interval_numb: 5000")

	got, err := config.LoadConfig(writeConfig(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
