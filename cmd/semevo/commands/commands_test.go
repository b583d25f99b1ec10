package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/semevo/cmd/semevo/commands"
	"github.com/Sumatoshi-tech/semevo/pkg/config"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
)

// writeConfig writes a small config into a temp dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "semevo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	root := commands.NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--no-color"))

	err := root.Execute()

	return stdout.String(), err
}

// TestRootCommand_Subcommands verifies the command tree.
func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"generalize", "specialize", "sweep", "cover", "mcp", "config", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "verbose", "log-json", "no-color"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

// TestMCPCommand_Exists verifies the MCP command metadata.
func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand(&commands.GlobalOptions{})
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}

// TestGeneralizeCommand_SavesAndPlots verifies a run is reported, stored and plotted.
func TestGeneralizeCommand_SavesAndPlots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\n")
	dataDir := filepath.Join(dir, "data")
	plotDir := filepath.Join(dir, "plots")

	out, err := execute(t, "generalize",
		"--config", cfgPath,
		"--intervals", "40",
		"--seed", "3",
		"--out", dataDir,
		"--plot", "--plot-dir", plotDir,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "generalization")
	assert.Contains(t, out, "delta=relative")

	name := "Data_GenModel_IntNum-40_Delta-relative_Run-0"
	assert.FileExists(t, filepath.Join(dataDir, name+".json"))
	assert.FileExists(t, filepath.Join(plotDir, name+".html"))
}

// TestSpecializeCommand_FlagsOverrideConfig verifies flags win over configured values and the
// record is saved whether or not the run settled.
func TestSpecializeCommand_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\nspecialization:\n  gamma: 4\n")
	dataDir := filepath.Join(dir, "data")

	out, err := execute(t, "specialize",
		"--config", cfgPath,
		"-n", "25",
		"--gamma", "3",
		"--cutoff=false",
		"--detector", "tree",
		"-o", dataDir,
	)
	if err != nil {
		// Partial overlaps inside the band may only decay geometrically.
		require.ErrorIs(t, err, model.ErrNotConverged)
	}

	assert.Contains(t, out, "gamma=3 cutoff=false")
	assert.FileExists(t, filepath.Join(dataDir, "Data_SpecModel_IntNum-25_Gamma-3_Cutoff-false_Run-0.json"))
}

// TestSpecializeCommand_Help verifies the help text describes the open ratio band.
func TestSpecializeCommand_Help(t *testing.T) {
	t.Parallel()

	cmd := commands.NewSpecializeCommand(&commands.GlobalOptions{})
	assert.Contains(t, cmd.Long, "strictly between 1/gamma and gamma")
	assert.NotContains(t, cmd.Long, "[1/gamma, gamma]")
}

// TestSpecializeThenCover verifies a large settled specialization record loads
// back through cover.
func TestSpecializeThenCover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\n")
	dataDir := filepath.Join(dir, "data")

	_, err := execute(t, "specialize",
		"--config", cfgPath,
		"-n", "1000",
		"--gamma", "2",
		"--cutoff",
		"--seed", "7",
		"--max-rounds", "200",
		"-o", dataDir,
	)
	if err != nil {
		require.ErrorIs(t, err, model.ErrNotConverged)
	}

	out, err := execute(t, "cover", "--config", cfgPath, "--model", "specialization", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Data_SpecModel_IntNum-1000_Gamma-2_Cutoff-true_Run-0")
}

// TestGeneralizeCommand_InvalidDelta verifies invalid parameters are rejected before running.
func TestGeneralizeCommand_InvalidDelta(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\n")

	_, err := execute(t, "generalize", "--config", cfgPath, "-n", "10", "--delta=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delta")
}

// TestSweepThenCover verifies a small sweep writes records that cover can analyze.
func TestSweepThenCover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	plotDir := filepath.Join(dir, "plots")
	cfgPath := writeConfig(t, dir, `
logging:
  level: error
sweep:
  runs: 2
  workers: 2
  output: `+dataDir+`
  generalization:
    enabled: true
    interval_numbs: [30]
    deltas: [relative]
  specialization:
    enabled: true
    interval_numbs: [30]
    gammas: [2]
    cutoffs: [true]
coverage:
  rho: 2
  start_rank: 1
  step: 1
`)

	out, err := execute(t, "sweep", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "4 jobs")

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	out, err = execute(t, "cover", "--config", cfgPath, "--model", "generalization", "--plot", "--plot-dir", plotDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Data_GenModel_IntNum-30_Delta-relative_Run-0")
	assert.Contains(t, out, "Data_GenModel_IntNum-30_Delta-relative_Run-1")
	assert.NotContains(t, out, "Data_SpecModel")
	assert.FileExists(t, filepath.Join(plotDir, "cover.html"))
}

// TestCoverCommand_EmptyDir verifies an empty record directory is an error.
func TestCoverCommand_EmptyDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\n")

	_, err := execute(t, "cover", "--config", cfgPath, filepath.Join(dir, "empty"))
	require.ErrorIs(t, err, commands.ErrNoRecords)
}

// TestSweepSpec verifies the plan input is assembled from the configuration.
func TestSweepSpec(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Sweep.Specialization.Enabled = true

	spec := commands.SweepSpec(cfg, cfg.Sweep)

	require.NotNil(t, spec.Generalization)
	require.NotNil(t, spec.Specialization)
	assert.Equal(t, cfg.Sweep.Runs, spec.Runs)
	assert.Equal(t, cfg.Generalization.Freeze, spec.Generalization.Freeze)
	assert.Equal(t, cfg.Specialization.Detector, spec.Specialization.Detector)
	assert.Equal(t, []float64{config.DefaultGamma}, spec.Specialization.Gammas)

	cfg.Sweep.Generalization.Enabled = false
	assert.Nil(t, commands.SweepSpec(cfg, cfg.Sweep).Generalization)
}

// TestConfigCommand_Dump verifies the effective configuration is printed.
func TestConfigCommand_Dump(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "specialization:\n  gamma: 5\n")

	out, err := execute(t, "config", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "gamma: 5")
	assert.Contains(t, out, "generalization:")
}

// TestVersionCommand verifies plain and JSON version output.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "semevo")

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}
