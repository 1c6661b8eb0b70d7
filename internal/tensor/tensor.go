// Package tensor holds the dense float32 arrays passed between the dataset,
// the networks and the metrics. Images are laid out channel-first.
package tensor

import "fmt"

type Tensor struct {
	Shape []int
	Data  []float32
}

func New(shape ...int) *Tensor {
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, numel(shape))}
}

// FromData wraps data without copying. The length must match the shape.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if n := numel(shape); n != len(data) {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)", len(data), shape, n)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{Shape: append([]int(nil), t.Shape...), Data: append([]float32(nil), t.Data...)}
}

// Int64Shape is the shape in the form onnxruntime expects.
func (t *Tensor) Int64Shape() []int64 {
	s := make([]int64, len(t.Shape))
	for i, d := range t.Shape {
		s[i] = int64(d)
	}
	return s
}

func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Narrow keeps the first n entries along the leading axis. If n is not
// smaller than the axis length the tensor is returned unchanged.
func (t *Tensor) Narrow(n int) *Tensor {
	if len(t.Shape) == 0 || n >= t.Shape[0] || n < 0 {
		return t
	}
	stride := numel(t.Shape[1:])
	shape := append([]int{n}, t.Shape[1:]...)
	return &Tensor{Shape: shape, Data: t.Data[:n*stride]}
}

// Unsqueeze adds a leading axis of size one.
func (t *Tensor) Unsqueeze() *Tensor {
	return &Tensor{Shape: append([]int{1}, t.Shape...), Data: t.Data}
}

func (t *Tensor) Map(fn func(float32) float32) *Tensor {
	out := &Tensor{Shape: append([]int(nil), t.Shape...), Data: make([]float32, len(t.Data))}
	for i, v := range t.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// CHW splits a rank-3 shape into channels, height and width.
func (t *Tensor) CHW() (c, h, w int, err error) {
	if len(t.Shape) != 3 {
		return 0, 0, 0, fmt.Errorf("expected a [C,H,W] tensor, got shape %v", t.Shape)
	}
	return t.Shape[0], t.Shape[1], t.Shape[2], nil
}

// Crop removes border pixels from each side of a [C,H,W] tensor.
func (t *Tensor) Crop(border int) (*Tensor, error) {
	c, h, w, err := t.CHW()
	if err != nil {
		return nil, err
	}
	if border == 0 {
		return t, nil
	}
	nh, nw := h-2*border, w-2*border
	if nh <= 0 || nw <= 0 {
		return nil, fmt.Errorf("border %d leaves nothing of a %dx%d image", border, h, w)
	}
	out := New(c, nh, nw)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < nh; y++ {
			src := ch*h*w + (y+border)*w + border
			dst := ch*nh*nw + y*nw
			copy(out.Data[dst:dst+nw], t.Data[src:src+nw])
		}
	}
	return out, nil
}

// HWCToCHW moves the trailing channel axis of a [H,W,C] tensor to the front.
func (t *Tensor) HWCToCHW() (*Tensor, error) {
	if len(t.Shape) != 3 {
		return nil, fmt.Errorf("expected a [H,W,C] tensor, got shape %v", t.Shape)
	}
	h, w, c := t.Shape[0], t.Shape[1], t.Shape[2]
	out := New(c, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				out.Data[ch*h*w+y*w+x] = t.Data[(y*w+x)*c+ch]
			}
		}
	}
	return out, nil
}
