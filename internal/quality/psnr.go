package quality

import (
	"math"

	"github.com/Brownie44l1/burst-eval/internal/tensor"
)

type PSNR struct {
	BoundaryIgnore int
	MaxValue       float64
}

func (m *PSNR) Name() MetricName {
	return MetricPSNR
}

// Score returns +Inf for identical images.
func (m *PSNR) Score(pred, gt *tensor.Tensor) (float64, error) {
	p, g, err := cropPair(pred, gt, m.BoundaryIgnore)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range p.Data {
		d := float64(p.Data[i]) - float64(g.Data[i])
		sum += d * d
	}
	mse := sum / float64(len(p.Data))
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 20*math.Log10(m.MaxValue) - 10*math.Log10(mse), nil
}
