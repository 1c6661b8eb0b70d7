package quality

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Brownie44l1/burst-eval/internal/model"
	"github.com/Brownie44l1/burst-eval/internal/tensor"
	"github.com/nfnt/resize"
)

// LPIPS runs an exported perceptual distance graph taking two [1,3,H,W]
// images in [-1,1] and returning a [1,1,1,1] distance. Graphs exported with a
// fixed input size get both images resized to it first.
type LPIPS struct {
	BoundaryIgnore int
	session        *model.Session
}

func NewLPIPS(modelPath, metadataPath string, boundaryIgnore int, opts model.RuntimeOptions) (*LPIPS, error) {
	session, err := model.NewSession(modelPath, metadataPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load LPIPS model: %w", err)
	}
	if len(session.Metadata.InputNames) != 2 {
		session.Close()
		return nil, fmt.Errorf("LPIPS model must take two inputs, metadata lists %d", len(session.Metadata.InputNames))
	}
	return &LPIPS{BoundaryIgnore: boundaryIgnore, session: session}, nil
}

func (m *LPIPS) Name() MetricName {
	return MetricLPIPS
}

func (m *LPIPS) Score(pred, gt *tensor.Tensor) (float64, error) {
	p, g, err := cropPair(pred, gt, m.BoundaryIgnore)
	if err != nil {
		return 0, err
	}
	size := m.session.Metadata.ImageSize
	in0, err := lpipsInput(p, size)
	if err != nil {
		return 0, err
	}
	in1, err := lpipsInput(g, size)
	if err != nil {
		return 0, err
	}

	out, err := m.session.Run(
		[][]float32{in0.Data, in1.Data},
		[][]int64{in0.Int64Shape(), in1.Int64Shape()},
		[]int64{1, 1, 1, 1})
	if err != nil {
		return 0, err
	}
	return float64(out[0]), nil
}

func (m *LPIPS) Close() {
	m.session.Close()
}

// lpipsInput turns a [C,H,W] image in [0,1] into a [1,3,S,S] tensor in
// [-1,1]. Single channel images are replicated. size 0 keeps the input size.
func lpipsInput(t *tensor.Tensor, size int) (*tensor.Tensor, error) {
	c, h, w, err := t.CHW()
	if err != nil {
		return nil, err
	}
	if c != 1 && c != 3 {
		return nil, fmt.Errorf("LPIPS needs 1 or 3 channels, got %d", c)
	}
	rgb := t
	if c == 1 {
		rgb = tensor.New(3, h, w)
		for ch := 0; ch < 3; ch++ {
			copy(rgb.Data[ch*h*w:(ch+1)*h*w], t.Data)
		}
	}
	if size > 0 && (h != size || w != size) {
		rgb = resizeCHW(rgb, size)
	}
	return rgb.Map(func(v float32) float32 { return 2*v - 1 }).Unsqueeze(), nil
}

func resizeCHW(t *tensor.Tensor, size int) *tensor.Tensor {
	_, h, w, _ := t.CHW()
	plane := h * w
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			img.SetRGBA64(x, y, color.RGBA64{
				R: to16(t.Data[i]),
				G: to16(t.Data[plane+i]),
				B: to16(t.Data[2*plane+i]),
				A: 0xffff,
			})
		}
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	out := tensor.New(3, size, size)
	sp := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*size + x
			out.Data[i] = float32(r) / 0xffff
			out.Data[sp+i] = float32(g) / 0xffff
			out.Data[2*sp+i] = float32(b) / 0xffff
		}
	}
	return out
}

func to16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
