package model

import (
	"fmt"

	"github.com/Brownie44l1/burst-eval/internal/tensor"
)

// Network is a loaded denoiser ready for inference.
type Network interface {
	// Predict takes a [1,N,C,H,W] burst and a [1,1,H,W] noise estimate and
	// returns a [C,H,W] image.
	Predict(burst, noiseEstimate *tensor.Tensor) (*tensor.Tensor, error)
	Close()
}

// Descriptor identifies a network configuration without loading it.
type Descriptor interface {
	UniqueName() string
	DisplayName() string
	// BurstSize is the number of frames the network consumes, 0 for all.
	BurstSize() int
	LoadNet() (Network, error)
}

// OnnxDescriptor points at an exported graph and its metadata sidecar.
type OnnxDescriptor struct {
	Name         string
	Display      string
	BurstSz      int
	ModelPath    string
	MetadataPath string
	Runtime      RuntimeOptions
}

func (d *OnnxDescriptor) UniqueName() string {
	return d.Name
}

func (d *OnnxDescriptor) DisplayName() string {
	if d.Display == "" {
		return d.Name
	}
	return d.Display
}

func (d *OnnxDescriptor) BurstSize() int {
	return d.BurstSz
}

func (d *OnnxDescriptor) LoadNet() (Network, error) {
	session, err := NewSession(d.ModelPath, d.MetadataPath, d.Runtime)
	if err != nil {
		return nil, fmt.Errorf("failed to load network %s: %w", d.Name, err)
	}
	return &OnnxNetwork{session: session}, nil
}

// OnnxNetwork runs a burst denoiser graph. Graphs are exported in inference
// mode, so there is no train/eval switch to flip here.
type OnnxNetwork struct {
	session *Session
}

func (n *OnnxNetwork) Predict(burst, noiseEstimate *tensor.Tensor) (*tensor.Tensor, error) {
	if len(burst.Shape) != 5 || burst.Shape[0] != 1 {
		return nil, fmt.Errorf("expected a [1,N,C,H,W] burst, got shape %v", burst.Shape)
	}
	c, h, w := burst.Shape[2], burst.Shape[3], burst.Shape[4]

	inputs := [][]float32{burst.Data}
	shapes := [][]int64{burst.Int64Shape()}
	if len(n.session.Metadata.InputNames) > 1 {
		inputs = append(inputs, noiseEstimate.Data)
		shapes = append(shapes, noiseEstimate.Int64Shape())
	}

	out, err := n.session.Run(inputs, shapes, []int64{1, int64(c), int64(h), int64(w)})
	if err != nil {
		return nil, err
	}
	return tensor.FromData(out, c, h, w)
}

func (n *OnnxNetwork) Close() {
	n.session.Close()
}
