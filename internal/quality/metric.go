// Package quality implements the image quality metrics used to rank
// denoisers: PSNR, SSIM and the learned LPIPS distance.
package quality

import (
	"fmt"
	"math"

	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"github.com/Brownie44l1/burst-eval/internal/model"
	"github.com/Brownie44l1/burst-eval/internal/tensor"
)

type MetricName string

const (
	MetricPSNR  MetricName = "psnr"
	MetricSSIM  MetricName = "ssim"
	MetricLPIPS MetricName = "lpips"
)

// DefaultMetrics is the report column order.
var DefaultMetrics = []MetricName{MetricPSNR, MetricSSIM, MetricLPIPS}

func ParseMetricName(s string) (MetricName, error) {
	switch MetricName(s) {
	case MetricPSNR, MetricSSIM, MetricLPIPS:
		return MetricName(s), nil
	}
	return "", &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("unknown metric %q", s)}
}

// Metric scores a [C,H,W] prediction against its ground truth.
type Metric interface {
	Name() MetricName
	Score(pred, gt *tensor.Tensor) (float64, error)
}

// MappingFunc is applied to both images before the base metric sees them.
type MappingFunc func(*tensor.Tensor) *tensor.Tensor

// DenoisingPostProcess clamps to [0,1] and applies display gamma.
func DenoisingPostProcess(gamma float64) MappingFunc {
	inv := 1 / gamma
	return func(t *tensor.Tensor) *tensor.Tensor {
		return t.Map(func(v float32) float32 {
			if v <= 0 {
				return 0
			}
			if v >= 1 {
				return 1
			}
			return float32(math.Pow(float64(v), inv))
		})
	}
}

type MappedMetric struct {
	Base    Metric
	Mapping MappingFunc
}

func (m *MappedMetric) Name() MetricName {
	return m.Base.Name()
}

func (m *MappedMetric) Score(pred, gt *tensor.Tensor) (float64, error) {
	if m.Mapping != nil {
		pred, gt = m.Mapping(pred), m.Mapping(gt)
	}
	return m.Base.Score(pred, gt)
}

type Options struct {
	BoundaryIgnore    int
	Gamma             float64
	LpipsModelPath    string
	LpipsMetadataPath string
	Runtime           model.RuntimeOptions
}

// MetricSet is an ordered collection of metrics sharing one mapping.
type MetricSet struct {
	Metrics []Metric
	closers []func()
}

func NewMetricSet(names []MetricName, opts Options) (*MetricSet, error) {
	mapping := DenoisingPostProcess(opts.Gamma)
	set := &MetricSet{}
	for _, name := range names {
		var base Metric
		switch name {
		case MetricPSNR:
			base = &PSNR{BoundaryIgnore: opts.BoundaryIgnore, MaxValue: 1}
		case MetricSSIM:
			base = &SSIM{BoundaryIgnore: opts.BoundaryIgnore}
		case MetricLPIPS:
			lpips, err := NewLPIPS(opts.LpipsModelPath, opts.LpipsMetadataPath, opts.BoundaryIgnore, opts.Runtime)
			if err != nil {
				set.Close()
				return nil, err
			}
			set.closers = append(set.closers, lpips.Close)
			base = lpips
		default:
			set.Close()
			return nil, &bferrors.ConfigError{ErrorMsg: fmt.Sprintf("unknown metric %q", name)}
		}
		set.Metrics = append(set.Metrics, &MappedMetric{Base: base, Mapping: mapping})
	}
	return set, nil
}

func (s *MetricSet) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}

func cropPair(pred, gt *tensor.Tensor, border int) (*tensor.Tensor, *tensor.Tensor, error) {
	if !pred.SameShape(gt) {
		return nil, nil, fmt.Errorf("prediction shape %v does not match ground truth %v", pred.Shape, gt.Shape)
	}
	p, err := pred.Crop(border)
	if err != nil {
		return nil, nil, err
	}
	g, err := gt.Crop(border)
	if err != nil {
		return nil, nil, err
	}
	return p, g, nil
}
