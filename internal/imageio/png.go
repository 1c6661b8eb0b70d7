// Package imageio reads and writes the 16-bit PNG files that hold dataset
// frames and saved predictions. Pixel values are fixed-point with
// tensor.QuantLevels steps per unit. Three channel files follow the OpenCV
// convention: the first tensor channel is stored in the blue component.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/Brownie44l1/burst-eval/internal/tensor"
)

// Read decodes the PNG at path into a [C,H,W] tensor with channels 1 or 3.
func Read(path string, channels int) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	t, err := Decode(img, channels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode converts a 16-bit image to a [C,H,W] tensor. Color images are
// read pixel-interleaved and then moved channel-first.
func Decode(img image.Image, channels int) (*tensor.Tensor, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch channels {
	case 1:
		gray, ok := img.(*image.Gray16)
		if !ok {
			return nil, fmt.Errorf("expected a 16-bit grayscale image, got %T", img)
		}
		out := tensor.New(1, h, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Data[y*w+x] = tensor.Dequantize(gray.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out, nil
	case 3:
		switch img.(type) {
		case *image.RGBA64, *image.NRGBA64:
		default:
			return nil, fmt.Errorf("expected a 16-bit color image, got %T", img)
		}
		hwc := tensor.New(h, w, 3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := (y*w + x) * 3
				hwc.Data[i] = tensor.Dequantize(uint16(bl))
				hwc.Data[i+1] = tensor.Dequantize(uint16(g))
				hwc.Data[i+2] = tensor.Dequantize(uint16(r))
			}
		}
		return hwc.HWCToCHW()
	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
}

// Encode quantizes a [C,H,W] tensor into a 16-bit image.
func Encode(t *tensor.Tensor) (image.Image, error) {
	c, h, w, err := t.CHW()
	if err != nil {
		return nil, err
	}
	plane := h * w
	switch c {
	case 1:
		img := image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, y, color.Gray16{Y: tensor.Quantize(t.Data[y*w+x])})
			}
		}
		return img, nil
	case 3:
		img := image.NewRGBA64(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				img.SetRGBA64(x, y, color.RGBA64{
					R: tensor.Quantize(t.Data[2*plane+i]),
					G: tensor.Quantize(t.Data[plane+i]),
					B: tensor.Quantize(t.Data[i]),
					A: 0xffff,
				})
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", c)
	}
}

// Write encodes t and stores it at path, creating parent directories.
func Write(path string, t *tensor.Tensor) error {
	img, err := Encode(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
