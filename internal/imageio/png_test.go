package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Brownie44l1/burst-eval/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead_Grayscale(t *testing.T) {
	in := tensor.New(1, 3, 4)
	for i := range in.Data {
		in.Data[i] = float32(i) / 12
	}
	path := filepath.Join(t.TempDir(), "nested", "gray.png")
	require.NoError(t, Write(path, in))

	out, err := Read(path, 1)
	require.NoError(t, err)
	assert.Equal(t, in.Shape, out.Shape)
	assert.Equal(t, in.Quantized().Data, out.Data)
}

func TestWriteRead_Color(t *testing.T) {
	in := tensor.New(3, 2, 2)
	for i := range in.Data {
		in.Data[i] = float32(i) / 16
	}
	path := filepath.Join(t.TempDir(), "color.png")
	require.NoError(t, Write(path, in))

	out, err := Read(path, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2}, out.Shape)
	assert.Equal(t, in.Quantized().Data, out.Data)
}

func TestRead_ColorIsChannelFirstInBGROrder(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 2, 1))
	img.SetRGBA64(0, 0, color.RGBA64{R: 100, G: 200, B: 300, A: 0xffff})
	img.SetRGBA64(1, 0, color.RGBA64{R: 400, G: 500, B: 600, A: 0xffff})
	path := filepath.Join(t.TempDir(), "raw.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	out, err := Read(path, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, out.Shape)
	want := []float32{300, 600, 200, 500, 100, 400}
	for i, v := range want {
		assert.Equal(t, v/tensor.QuantLevels, out.Data[i])
	}
}

func TestDecode_RejectsEightBit(t *testing.T) {
	_, err := Decode(image.NewGray(image.Rect(0, 0, 1, 1)), 1)
	assert.Error(t, err)
	_, err = Decode(image.NewRGBA(image.Rect(0, 0, 1, 1)), 3)
	assert.Error(t, err)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.png"), 1)
	assert.Error(t, err)
}
