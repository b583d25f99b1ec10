// Package commands implements CLI command handlers for semevo.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/semevo/pkg/config"
	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/observability"
	"github.com/Sumatoshi-tech/semevo/pkg/plot"
	"github.com/Sumatoshi-tech/semevo/pkg/store"
	"github.com/Sumatoshi-tech/semevo/pkg/version"
)

// GlobalOptions holds the persistent root flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	LogJSON    bool
	NoColor    bool
}

// Bind registers the global flags on a root command.
func (g *GlobalOptions) Bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.ConfigPath, "config", "c", "", "config file (default: semevo.yaml in ., ./config, /etc/semevo)")
	flags.BoolVarP(&g.Verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&g.LogJSON, "log-json", false, "JSON log output")
	flags.BoolVar(&g.NoColor, "no-color", false, "disable colored output")
}

// session bundles the loaded configuration with initialized observability.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	runs      *observability.RunMetrics
	out       io.Writer
}

// openSession loads configuration and initializes observability for mode.
func openSession(cmd *cobra.Command, g *GlobalOptions, mode observability.AppMode, prometheus bool) (*session, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	return newSession(cmd, g, cfg, mode, prometheus)
}

// newSession initializes observability for an already loaded configuration.
func newSession(
	cmd *cobra.Command, g *GlobalOptions, cfg *config.Config, mode observability.AppMode, prometheus bool,
) (*session, error) {
	providers, err := observability.Init(observabilityConfig(cfg, g, mode, cmd.ErrOrStderr(), prometheus))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	runs, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())

		return nil, fmt.Errorf("create run metrics: %w", err)
	}

	return &session{cfg: cfg, providers: providers, runs: runs, out: cmd.OutOrStdout()}, nil
}

func observabilityConfig(
	cfg *config.Config, g *GlobalOptions, mode observability.AppMode, logWriter io.Writer, prometheus bool,
) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.Prometheus = prometheus
	obsCfg.LogLevel = observability.ParseLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.JSON || g.LogJSON
	obsCfg.LogWriter = logWriter

	if g.Verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return obsCfg
}

func (s *session) logger() *slog.Logger {
	return s.providers.Logger
}

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// openStore opens the record store configured in the sweep section, with dir
// overriding the configured output directory when set.
func openStore(cfg config.SweepConfig, dir string) (*store.Store, error) {
	if dir == "" {
		dir = cfg.Output
	}

	maxBytes, err := cfg.MaxRecordBytes()
	if err != nil {
		return nil, err
	}

	return store.New(dir, store.Options{
		Format:        cfg.Format,
		Compress:      cfg.Compress,
		MaxRecordSize: maxBytes,
	})
}

// runPage renders the rank-size and covering charts of one run.
func runPage(cfg *config.Config, title string, result model.Result) (*plot.Page, error) {
	theme, err := plot.ParseTheme(cfg.Plot.Theme)
	if err != nil {
		return nil, err
	}

	series, err := coverage.Zipf(result.Intervals, cfg.Coverage.Options())
	if err != nil {
		return nil, err
	}

	page := plot.NewPage(title, theme)
	co := page.ChartOpts()

	page.Add(
		plot.RankSizeChart(co, "Rank-size distribution", title, []plot.RankSizeSeries{
			{Name: title, Points: coverage.RankSize(result.Intervals)},
		}),
		plot.CoveringChart(co, "Covering", title, series),
	)

	return page, nil
}

// plotPath places a page named base under dir, falling back to the
// configured plot directory.
func plotPath(cfg *config.Config, dir, base string) string {
	if dir == "" {
		dir = cfg.Plot.Dir
	}

	return filepath.Join(dir, base+".html")
}

// writeStatus prints a one-line confirmation to w, ignoring write errors on
// the terminal.
func writeStatus(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
