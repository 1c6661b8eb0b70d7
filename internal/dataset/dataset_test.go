package dataset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Brownie44l1/burst-eval/internal/imageio"
	"github.com/Brownie44l1/burst-eval/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBurst(t *testing.T, dir string, channels, frames int, fill float32) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	img := tensor.New(channels, 4, 4)
	for i := range img.Data {
		img.Data[i] = fill
	}
	require.NoError(t, imageio.Write(filepath.Join(dir, "gt.png"), img))
	for f := 0; f < frames; f++ {
		require.NoError(t, imageio.Write(filepath.Join(dir, fmt.Sprintf("frame_%02d.png", f)), img))
	}
	meta := []byte(`{"sigma_read": 0.03, "sigma_shot": 0.01}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), meta, 0o644))
}

func TestNew_OrderStable(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "grayscale", "noise_2")
	for _, name := range []string{"c_burst", "a_burst", "b_burst"} {
		writeBurst(t, filepath.Join(base, name), 1, 3, 0.5)
	}

	ds, err := New(root, ModeGrayscale, 2)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	for i, want := range []string{"a_burst", "b_burst", "c_burst"} {
		s, err := ds.Get(i)
		require.NoError(t, err)
		assert.Equal(t, want, s.Meta.BurstName)
	}
}

func TestGet_Shapes(t *testing.T) {
	root := t.TempDir()
	writeBurst(t, filepath.Join(root, "color", "noise_4", "scene"), 3, 5, 0.25)

	ds, err := New(root, ModeColor, 4)
	require.NoError(t, err)
	s, err := ds.Get(0)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 3, 4, 4}, s.Burst.Shape)
	assert.Equal(t, []int{3, 4, 4}, s.GT.Shape)
	assert.Equal(t, []int{1, 4, 4}, s.Meta.SigmaEstimate.Shape)

	want := float32(math.Sqrt(0.03*0.03 + 0.01*0.25))
	assert.InDelta(t, want, s.Meta.SigmaEstimate.Data[0], 1e-6)
}

func TestGet_OutOfRange(t *testing.T) {
	root := t.TempDir()
	writeBurst(t, filepath.Join(root, "grayscale", "noise_1", "only"), 1, 1, 0.1)
	ds, err := New(root, ModeGrayscale, 1)
	require.NoError(t, err)
	_, err = ds.Get(1)
	assert.Error(t, err)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(t.TempDir(), ModeGrayscale, 3)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("color")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Channels())
	_, err = ParseMode("rgb")
	assert.Error(t, err)
}
