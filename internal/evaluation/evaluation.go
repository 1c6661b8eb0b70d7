// Package evaluation scores every network of an experiment setting on a
// denoising test set, either by running inference or by reusing predictions
// saved by an earlier run.
package evaluation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/burst-eval/internal/dataset"
	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"github.com/Brownie44l1/burst-eval/internal/experiments"
	"github.com/Brownie44l1/burst-eval/internal/imageio"
	"github.com/Brownie44l1/burst-eval/internal/metrics"
	"github.com/Brownie44l1/burst-eval/internal/model"
	"github.com/Brownie44l1/burst-eval/internal/quality"
	"github.com/Brownie44l1/burst-eval/internal/report"
	"github.com/Brownie44l1/burst-eval/internal/tensor"
	"github.com/rs/zerolog/log"
)

// DatasetOpener returns the test set for a mode and noise level.
type DatasetOpener func(mode dataset.Mode, level int) (dataset.Dataset, error)

type Evaluator struct {
	Registry    *experiments.Registry
	Env         experiments.Env
	OpenDataset DatasetOpener
	Metrics     []quality.Metric
	ResultsPath string
	LoadSaved   bool
	SaveResults bool
	Out         io.Writer
}

// NetworkScores holds the per-sample values of one network, keyed by metric.
type NetworkScores struct {
	UniqueName  string
	DisplayName string
	UsedSaved   bool
	Scores      map[quality.MetricName][]float64
}

func newNetworkScores(d model.Descriptor, metricNames []quality.MetricName) *NetworkScores {
	s := &NetworkScores{
		UniqueName:  d.UniqueName(),
		DisplayName: d.DisplayName(),
		Scores:      make(map[quality.MetricName][]float64, len(metricNames)),
	}
	for _, m := range metricNames {
		s.Scores[m] = []float64{}
	}
	return s
}

// Mean returns sum/n of a metric's values, 0 when there are none.
func (s *NetworkScores) Mean(m quality.MetricName) float64 {
	values := s.Scores[m]
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

type Result struct {
	Mode       dataset.Mode
	NoiseLevel int
	Metrics    []quality.MetricName
	Networks   []*NetworkScores
}

func (r *Result) Report() string {
	columns := make([]string, len(r.Metrics))
	for i, m := range r.Metrics {
		columns[i] = string(m)
	}
	rows := make([]report.Row, len(r.Networks))
	for i, n := range r.Networks {
		scores := make([]float64, len(r.Metrics))
		for j, m := range r.Metrics {
			scores[j] = n.Mean(m)
		}
		rows[i] = report.Row{Name: n.DisplayName, Scores: scores}
	}
	return report.Format("", columns, rows)
}

// OutputDir is where predictions of a network are saved for a test set.
func OutputDir(resultsPath string, mode dataset.Mode, level int, uniqueName string) string {
	return filepath.Join(resultsPath, "denoise_"+string(mode), fmt.Sprintf("noise_%d", level), uniqueName)
}

// SavedResultsAvailable reports whether dir holds exactly n PNG files.
func SavedResultsAvailable(dir string, n int) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "png") {
			count++
		}
	}
	return count == n
}

// ParseNoiseLevels accepts a single level or "all".
func ParseNoiseLevels(s string) ([]int, error) {
	if s == "all" {
		return append([]int(nil), dataset.NoiseLevels...), nil
	}
	level, err := strconv.Atoi(s)
	if err != nil || !dataset.ValidNoiseLevel(level) {
		return nil, &bferrors.UsageError{ErrorMsg: fmt.Sprintf("noise level must be one of 1, 2, 4, 8 or all, got %q", s)}
	}
	return []int{level}, nil
}

func (e *Evaluator) metricNames() []quality.MetricName {
	names := make([]quality.MetricName, len(e.Metrics))
	for i, m := range e.Metrics {
		names[i] = m.Name()
	}
	return names
}

// ComputeScores evaluates setting at every level in order and prints one
// report per level.
func (e *Evaluator) ComputeScores(setting string, mode dataset.Mode, levels []int) ([]*Result, error) {
	results := make([]*Result, 0, len(levels))
	for _, level := range levels {
		r, err := e.ComputeScore(setting, mode, level)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// ComputeScore evaluates all networks of setting on one test set and prints
// the report.
func (e *Evaluator) ComputeScore(setting string, mode dataset.Mode, level int) (*Result, error) {
	descriptors, err := e.Registry.Resolve(setting, e.Env)
	if err != nil {
		return nil, err
	}
	ds, err := e.OpenDataset(mode, level)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s test set at noise level %d: %w", mode, level, err)
	}

	result := &Result{Mode: mode, NoiseLevel: level, Metrics: e.metricNames()}
	for _, d := range descriptors {
		scores, err := e.evaluateNetwork(d, ds, mode, level)
		if err != nil {
			return nil, err
		}
		result.Networks = append(result.Networks, scores)
	}

	for _, n := range result.Networks {
		for _, m := range result.Metrics {
			metrics.Gauge("eval.score.mean", n.Mean(m), []string{
				"network:" + n.UniqueName,
				"metric:" + string(m),
				"mode:" + string(mode),
				"noise_level:" + strconv.Itoa(level),
			})
		}
	}

	if e.Out != nil {
		fmt.Fprintf(e.Out, "Mode: %s Noise level is: %d\n", mode, level)
		fmt.Fprintln(e.Out, result.Report())
	}
	return result, nil
}

func (e *Evaluator) evaluateNetwork(d model.Descriptor, ds dataset.Dataset, mode dataset.Mode, level int) (*NetworkScores, error) {
	outDir := OutputDir(e.ResultsPath, mode, level, d.UniqueName())
	total := ds.Len()
	scores := newNetworkScores(d, e.metricNames())

	scores.UsedSaved = e.LoadSaved && SavedResultsAvailable(outDir, total)

	var net model.Network
	if scores.UsedSaved {
		log.Info().Str("network", d.UniqueName()).Str("dir", outDir).Msg("Using saved results")
	} else {
		var err error
		net, err = d.LoadNet()
		if err != nil {
			return nil, err
		}
		defer net.Close()
	}

	start := time.Now()
	step := max(total/10, 1)
	for idx := 0; idx < total; idx++ {
		sample, err := ds.Get(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sample %d: %w", idx, err)
		}

		var pred *tensor.Tensor
		if scores.UsedSaved {
			pred, err = imageio.Read(filepath.Join(outDir, sample.Meta.BurstName+".png"), mode.Channels())
			if err != nil {
				return nil, fmt.Errorf("failed to load saved prediction: %w", err)
			}
		} else {
			pred, err = e.infer(d, net, sample)
			if err != nil {
				return nil, err
			}
			if e.SaveResults {
				if err := imageio.Write(filepath.Join(outDir, sample.Meta.BurstName+".png"), pred); err != nil {
					return nil, fmt.Errorf("failed to save prediction: %w", err)
				}
			}
		}

		for _, m := range e.Metrics {
			v, err := m.Score(pred, sample.GT)
			if err != nil {
				return nil, fmt.Errorf("failed to compute %s for %s: %w", m.Name(), sample.Meta.BurstName, err)
			}
			scores.Scores[m.Name()] = append(scores.Scores[m.Name()], v)
		}

		if (idx+1)%step == 0 || idx+1 == total {
			log.Info().Str("network", d.DisplayName()).Int("done", idx+1).Int("total", total).Msg("Evaluating")
		}
	}

	metrics.Count("eval.samples", int64(total), []string{
		"network:" + d.UniqueName(),
		"saved:" + strconv.FormatBool(scores.UsedSaved),
	})
	log.Info().Str("network", d.DisplayName()).Dur("elapsed", time.Since(start)).Bool("saved", scores.UsedSaved).Msg("Network evaluated")
	return scores, nil
}

// infer runs the network and snaps the output to the fixed-point grid used
// for saved predictions so both paths score identically.
func (e *Evaluator) infer(d model.Descriptor, net model.Network, sample *dataset.Sample) (*tensor.Tensor, error) {
	burst := sample.Burst
	if bs := d.BurstSize(); bs > 0 {
		burst = burst.Narrow(bs)
	}

	start := time.Now()
	pred, err := net.Predict(burst.Unsqueeze(), sample.Meta.SigmaEstimate.Unsqueeze())
	if err != nil {
		return nil, fmt.Errorf("inference failed for %s on %s: %w", d.UniqueName(), sample.Meta.BurstName, err)
	}
	metrics.Timing("eval.inference", time.Since(start), []string{"network:" + d.UniqueName()})

	if !pred.SameShape(sample.GT) {
		return nil, fmt.Errorf("network %s returned shape %v, ground truth is %v", d.UniqueName(), pred.Shape, sample.GT.Shape)
	}
	return pred.Quantized(), nil
}
