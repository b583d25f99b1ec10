package config

import (
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/semevo/pkg/coverage"
	"github.com/Sumatoshi-tech/semevo/pkg/model"
	"github.com/Sumatoshi-tech/semevo/pkg/model/generalization"
	"github.com/Sumatoshi-tech/semevo/pkg/model/specialization"
	"github.com/Sumatoshi-tech/semevo/pkg/persist"
	"github.com/Sumatoshi-tech/semevo/pkg/plot"
)

// Model defaults.
const (
	DefaultIntervalNumb = 5000
	DefaultGamma        = 2.0
	DefaultCutoff       = true
)

// Sweep defaults.
const (
	DefaultSweepRuns          = 10
	DefaultSweepIntervalNumb  = 10000
	DefaultSweepOutput        = "data"
	DefaultSweepMaxRecordSize = "256MB"
)

// Output defaults.
const (
	DefaultPlotDir  = "plots"
	DefaultLogLevel = "info"
)

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Generalization defaults.
	viperCfg.SetDefault("generalization.interval_numb", DefaultIntervalNumb)
	viperCfg.SetDefault("generalization.delta", model.RelativeDelta)
	viperCfg.SetDefault("generalization.freeze", string(generalization.FreezeRoundEnd))
	viperCfg.SetDefault("generalization.max_rounds", 0)
	viperCfg.SetDefault("generalization.seed", 1)

	// Specialization defaults.
	viperCfg.SetDefault("specialization.interval_numb", DefaultIntervalNumb)
	viperCfg.SetDefault("specialization.gamma", DefaultGamma)
	viperCfg.SetDefault("specialization.cutoff", DefaultCutoff)
	viperCfg.SetDefault("specialization.detector", string(specialization.DetectorScan))
	viperCfg.SetDefault("specialization.max_rounds", specialization.DefaultMaxRounds)
	viperCfg.SetDefault("specialization.seed", 1)

	// Sweep defaults.
	viperCfg.SetDefault("sweep.workers", 0)
	viperCfg.SetDefault("sweep.runs", DefaultSweepRuns)
	viperCfg.SetDefault("sweep.base_seed", 1)
	viperCfg.SetDefault("sweep.output", DefaultSweepOutput)
	viperCfg.SetDefault("sweep.format", persist.FormatJSON)
	viperCfg.SetDefault("sweep.compress", false)
	viperCfg.SetDefault("sweep.max_record_size", DefaultSweepMaxRecordSize)
	viperCfg.SetDefault("sweep.generalization.enabled", true)
	viperCfg.SetDefault("sweep.generalization.interval_numbs", []int{DefaultSweepIntervalNumb})
	viperCfg.SetDefault("sweep.generalization.deltas", []string{model.RelativeDelta})
	viperCfg.SetDefault("sweep.specialization.enabled", false)
	viperCfg.SetDefault("sweep.specialization.interval_numbs", []int{DefaultIntervalNumb})
	viperCfg.SetDefault("sweep.specialization.gammas", []float64{DefaultGamma})
	viperCfg.SetDefault("sweep.specialization.cutoffs", []bool{DefaultCutoff})

	// Coverage defaults.
	viperCfg.SetDefault("coverage.rho", coverage.DefaultRho)
	viperCfg.SetDefault("coverage.start_rank", coverage.DefaultStartRank)
	viperCfg.SetDefault("coverage.step", coverage.DefaultStep)

	// Plot defaults.
	viperCfg.SetDefault("plot.theme", string(plot.ThemeLight))
	viperCfg.SetDefault("plot.dir", DefaultPlotDir)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)
	viperCfg.SetDefault("logging.round_every", 0)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.sample_ratio", 1.0)
}
