package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

// Run passes float32 tensors to the session as ArbitraryTensor values.
var _ ort.ArbitraryTensor = (*ort.Tensor[float32])(nil)

func TestSessionRun_InputCountMismatch(t *testing.T) {
	s := &Session{Metadata: Metadata{InputNames: []string{"burst", "noise_estimate"}}}
	_, err := s.Run([][]float32{{0}}, [][]int64{{1}}, []int64{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph expects 2 inputs, got 1")
}

func TestLoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	raw := `{"input_names": ["burst", "noise_estimate"], "output_names": ["pred"]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	md, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"burst", "noise_estimate"}, md.InputNames)
	assert.Equal(t, []string{"pred"}, md.OutputNames)
	assert.Zero(t, md.ImageSize)
}

func TestLoadMetadata_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := LoadMetadata(path)
	assert.Error(t, err)

	_, err = LoadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOnnxDescriptor_Names(t *testing.T) {
	d := &OnnxDescriptor{Name: "bipnet_gray_default", BurstSz: 8}
	assert.Equal(t, "bipnet_gray_default", d.DisplayName())
	assert.Equal(t, 8, d.BurstSize())

	d.Display = "BIPNet"
	assert.Equal(t, "BIPNet", d.DisplayName())
	assert.Equal(t, "bipnet_gray_default", d.UniqueName())
}

func TestOnnxDescriptor_LoadNetMissingMetadata(t *testing.T) {
	d := &OnnxDescriptor{
		Name:         "missing",
		ModelPath:    filepath.Join(t.TempDir(), "missing.onnx"),
		MetadataPath: filepath.Join(t.TempDir(), "missing.json"),
	}
	_, err := d.LoadNet()
	assert.Error(t, err)
}
