package quality

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"github.com/Brownie44l1/burst-eval/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomImage(c, h, w int, seed int64) *tensor.Tensor {
	r := rand.New(rand.NewSource(seed))
	t := tensor.New(c, h, w)
	for i := range t.Data {
		t.Data[i] = r.Float32()
	}
	return t
}

func constant(c, h, w int, v float32) *tensor.Tensor {
	t := tensor.New(c, h, w)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func TestPSNR_KnownValue(t *testing.T) {
	gt := constant(1, 20, 20, 0.5)
	pred := constant(1, 20, 20, 0.6)
	m := &PSNR{BoundaryIgnore: 2, MaxValue: 1}
	v, err := m.Score(pred, gt)
	require.NoError(t, err)
	// mse = 0.01 -> 20 dB
	assert.InDelta(t, 20.0, v, 1e-4)
}

func TestPSNR_IgnoresBoundary(t *testing.T) {
	gt := constant(1, 12, 12, 0.5)
	pred := gt.Clone()
	pred.Data[0] = 1
	m := &PSNR{BoundaryIgnore: 1, MaxValue: 1}
	v, err := m.Score(pred, gt)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestPSNR_ShapeMismatch(t *testing.T) {
	m := &PSNR{MaxValue: 1}
	_, err := m.Score(constant(1, 4, 4, 0), constant(3, 4, 4, 0))
	assert.Error(t, err)
}

func TestSSIM_Identical(t *testing.T) {
	img := randomImage(3, 32, 32, 1)
	m := &SSIM{BoundaryIgnore: 4}
	v, err := m.Score(img, img)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestSSIM_NoiseLowersScore(t *testing.T) {
	gt := randomImage(1, 40, 40, 2)
	noisy := gt.Clone()
	r := rand.New(rand.NewSource(3))
	for i := range noisy.Data {
		noisy.Data[i] += float32(r.NormFloat64() * 0.1)
	}
	m := &SSIM{BoundaryIgnore: 8}
	v, err := m.Score(noisy, gt)
	require.NoError(t, err)
	assert.Less(t, v, 1.0)
	assert.Greater(t, v, 0.0)
}

func TestSSIM_TooSmall(t *testing.T) {
	m := &SSIM{BoundaryIgnore: 8}
	_, err := m.Score(constant(1, 24, 24, 0), constant(1, 24, 24, 0))
	assert.Error(t, err)
}

type recordingMetric struct {
	pred, gt *tensor.Tensor
}

func (r *recordingMetric) Name() MetricName { return MetricPSNR }

func (r *recordingMetric) Score(pred, gt *tensor.Tensor) (float64, error) {
	r.pred, r.gt = pred, gt
	return 0, nil
}

func TestMappedMetric_MapsBothInputs(t *testing.T) {
	base := &recordingMetric{}
	m := &MappedMetric{Base: base, Mapping: DenoisingPostProcess(2)}
	_, err := m.Score(constant(1, 2, 2, 0.25), constant(1, 2, 2, 4))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, base.pred.Data[0], 1e-6)
	assert.Equal(t, float32(1), base.gt.Data[0])
}

func TestDenoisingPostProcess_Clamps(t *testing.T) {
	in, _ := tensor.FromData([]float32{-0.5, 0, 1, 2}, 4)
	out := DenoisingPostProcess(2.2)(in)
	assert.Equal(t, []float32{0, 0, 1, 1}, out.Data)
}

func TestParseMetricName(t *testing.T) {
	for _, name := range []string{"psnr", "ssim", "lpips"} {
		m, err := ParseMetricName(name)
		require.NoError(t, err)
		assert.Equal(t, MetricName(name), m)
	}
	_, err := ParseMetricName("mae")
	var cfgErr *bferrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestNewMetricSet_UnknownMetric(t *testing.T) {
	_, err := NewMetricSet([]MetricName{MetricPSNR, "vif"}, Options{Gamma: 2.2})
	var cfgErr *bferrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestNewMetricSet_Order(t *testing.T) {
	set, err := NewMetricSet([]MetricName{MetricSSIM, MetricPSNR}, Options{BoundaryIgnore: 8, Gamma: 2.2})
	require.NoError(t, err)
	defer set.Close()
	require.Len(t, set.Metrics, 2)
	assert.Equal(t, MetricSSIM, set.Metrics[0].Name())
	assert.Equal(t, MetricPSNR, set.Metrics[1].Name())
}

func TestLpipsInput_ReplicatesAndScales(t *testing.T) {
	in := constant(1, 4, 4, 0.75)
	out, err := lpipsInput(in, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 4}, out.Shape)
	for _, v := range out.Data {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestLpipsInput_Resizes(t *testing.T) {
	in := constant(3, 10, 6, 0.5)
	out, err := lpipsInput(in, 8)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 8, 8}, out.Shape)
	for _, v := range out.Data {
		assert.InDelta(t, 0.0, v, 1e-3)
	}
}
