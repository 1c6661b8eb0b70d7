package quality

import (
	"fmt"
	"math"

	"github.com/Brownie44l1/burst-eval/internal/tensor"
)

const (
	ssimWindow = 11
	ssimSigma  = 1.5
	ssimC1     = 0.01 * 0.01
	ssimC2     = 0.03 * 0.03
)

// SSIM uses an 11x11 Gaussian window with valid padding and averages the
// map over channels. The data range is 1.
type SSIM struct {
	BoundaryIgnore int
}

func (m *SSIM) Name() MetricName {
	return MetricSSIM
}

func (m *SSIM) Score(pred, gt *tensor.Tensor) (float64, error) {
	p, g, err := cropPair(pred, gt, m.BoundaryIgnore)
	if err != nil {
		return 0, err
	}
	c, h, w, _ := p.CHW()
	if h < ssimWindow || w < ssimWindow {
		return 0, fmt.Errorf("image of %dx%d is smaller than the %d pixel SSIM window", h, w, ssimWindow)
	}

	kernel := gaussianKernel(ssimWindow, ssimSigma)
	plane := h * w
	xx := make([]float64, plane)
	yy := make([]float64, plane)
	xy := make([]float64, plane)
	x := make([]float64, plane)
	y := make([]float64, plane)

	var total float64
	for ch := 0; ch < c; ch++ {
		for i := 0; i < plane; i++ {
			a := float64(p.Data[ch*plane+i])
			b := float64(g.Data[ch*plane+i])
			x[i], y[i] = a, b
			xx[i], yy[i], xy[i] = a*a, b*b, a*b
		}
		muX, oh, ow := filterValid(x, h, w, kernel)
		muY, _, _ := filterValid(y, h, w, kernel)
		eXX, _, _ := filterValid(xx, h, w, kernel)
		eYY, _, _ := filterValid(yy, h, w, kernel)
		eXY, _, _ := filterValid(xy, h, w, kernel)

		var sum float64
		for i := 0; i < oh*ow; i++ {
			mx, my := muX[i], muY[i]
			sx := eXX[i] - mx*mx
			sy := eYY[i] - my*my
			sxy := eXY[i] - mx*my
			sum += ((2*mx*my + ssimC1) * (2*sxy + ssimC2)) /
				((mx*mx + my*my + ssimC1) * (sx + sy + ssimC2))
		}
		total += sum / float64(oh*ow)
	}
	return total / float64(c), nil
}

func gaussianKernel(size int, sigma float64) []float64 {
	k := make([]float64, size)
	center := size / 2
	var sum float64
	for i := range k {
		d := float64(i - center)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// filterValid applies the separable kernel without padding.
func filterValid(src []float64, h, w int, k []float64) ([]float64, int, int) {
	n := len(k)
	ow, oh := w-n+1, h-n+1

	rows := make([]float64, h*ow)
	for y := 0; y < h; y++ {
		for x := 0; x < ow; x++ {
			var acc float64
			for i, kv := range k {
				acc += src[y*w+x+i] * kv
			}
			rows[y*ow+x] = acc
		}
	}

	out := make([]float64, oh*ow)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			var acc float64
			for i, kv := range k {
				acc += rows[(y+i)*ow+x] * kv
			}
			out[y*ow+x] = acc
		}
	}
	return out, oh, ow
}
