package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Brownie44l1/burst-eval/internal/config"
	"github.com/Brownie44l1/burst-eval/internal/dataset"
	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"github.com/Brownie44l1/burst-eval/internal/evaluation"
	"github.com/Brownie44l1/burst-eval/internal/experiments"
	"github.com/Brownie44l1/burst-eval/internal/logger"
	"github.com/Brownie44l1/burst-eval/internal/metrics"
	"github.com/Brownie44l1/burst-eval/internal/model"
	"github.com/Brownie44l1/burst-eval/internal/quality"
	"github.com/spf13/pflag"
)

const usage = `Compute scores on burst denoising test sets.

Usage:
  compute-score <setting> <mode> <noise_level> [flags]

  setting      name of the experiment setting
  mode         grayscale or color
  noise_level  1, 2, 4, 8 or all

If --load_saved is set, predictions saved by an earlier run are used whenever
a complete set is available. Otherwise the networks are run.

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		var usageErr *bferrors.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		logger.Error("Evaluation failed", err)
		os.Exit(1)
	}
}

type cliArgs struct {
	setting string
	mode    dataset.Mode
	levels  []int
	metrics []string
	flags   *pflag.FlagSet
}

// parseArgs accepts flags before, between or after the positional arguments.
func parseArgs(args []string) (*cliArgs, error) {
	defaults := make([]string, len(quality.DefaultMetrics))
	for i, m := range quality.DefaultMetrics {
		defaults[i] = string(m)
	}

	fs := pflag.NewFlagSet("compute-score", pflag.ContinueOnError)
	fs.Bool("load_saved", false, "use saved predictions when available")
	fs.Bool("save_results", false, "write predictions of networks that were run to the results directory")
	metricNames := fs.StringSlice("metrics", defaults, "metrics to compute")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, &bferrors.UsageError{ErrorMsg: err.Error()}
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return nil, &bferrors.UsageError{ErrorMsg: fmt.Sprintf("expected 3 arguments, got %d", fs.NArg())}
	}
	mode, err := dataset.ParseMode(fs.Arg(1))
	if err != nil {
		return nil, &bferrors.UsageError{ErrorMsg: err.Error()}
	}
	levels, err := evaluation.ParseNoiseLevels(fs.Arg(2))
	if err != nil {
		return nil, err
	}
	return &cliArgs{setting: fs.Arg(0), mode: mode, levels: levels, metrics: *metricNames, flags: fs}, nil
}

func run(args []string) error {
	cli, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	setting, mode, levels := cli.setting, cli.mode, cli.levels

	v := config.New()
	for _, name := range []string{"load_saved", "save_results"} {
		if err := v.BindPFlag(name, cli.flags.Lookup(name)); err != nil {
			return &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("failed to bind flag %s: %v", name, err)}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return &bferrors.ConfigError{ErrorMsg: err.Error()}
	}

	logger.InitLogger(cfg.AppName, cfg.AppLogLevel)
	metrics.InitMetrics(cfg.AppName, cfg.TelegrafHost, cfg.TelegrafPort, cfg.MetricsSamplingRate, "setting:"+setting)
	defer metrics.Close()

	names := make([]quality.MetricName, 0, len(cli.metrics))
	for _, s := range cli.metrics {
		name, err := quality.ParseMetricName(s)
		if err != nil {
			return err
		}
		names = append(names, name)
	}

	registry := experiments.Default()
	if n, err := registry.LoadDir(cfg.ExperimentsPath); err != nil {
		return err
	} else if n > 0 {
		logger.Info(fmt.Sprintf("Loaded %d experiment settings from %s", n, cfg.ExperimentsPath))
	}

	if err := model.InitRuntime(cfg.OnnxRuntimeLibPath); err != nil {
		return err
	}
	defer model.ShutdownRuntime()

	runtime := model.RuntimeOptions{Device: cfg.Device, DeviceID: cfg.DeviceID}
	metricSet, err := quality.NewMetricSet(names, quality.Options{
		BoundaryIgnore:    cfg.BoundaryIgnore,
		Gamma:             cfg.Gamma,
		LpipsModelPath:    cfg.LpipsModelPath,
		LpipsMetadataPath: cfg.LpipsMetadataPath,
		Runtime:           runtime,
	})
	if err != nil {
		return err
	}
	defer metricSet.Close()

	evaluator := &evaluation.Evaluator{
		Registry: registry,
		Env:      experiments.Env{NetworksPath: cfg.NetworksPath, Runtime: runtime},
		OpenDataset: func(mode dataset.Mode, level int) (dataset.Dataset, error) {
			ds, err := dataset.New(cfg.DatasetPath, mode, level)
			if err != nil {
				return nil, err
			}
			return ds, nil
		},
		Metrics:     metricSet.Metrics,
		ResultsPath: cfg.SaveDataPath,
		LoadSaved:   cfg.LoadSaved,
		SaveResults: cfg.SaveResults,
		Out:         os.Stdout,
	}

	_, err = evaluator.ComputeScores(setting, mode, levels)
	return err
}
