// Package dataset loads the burst denoising test sets from disk.
//
// A test set lives under <root>/<mode>/noise_<level>/ with one directory per
// burst. Each burst directory holds gt.png, frame_00.png, frame_01.png, ...
// and a meta.json with the read and shot noise parameters used to synthesize
// it. Frames are 16-bit PNGs in the same fixed-point encoding as predictions.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/Brownie44l1/burst-eval/internal/imageio"
	"github.com/Brownie44l1/burst-eval/internal/tensor"
)

type Mode string

const (
	ModeGrayscale Mode = "grayscale"
	ModeColor     Mode = "color"
)

// NoiseLevels are the gain levels the test sets are published for.
var NoiseLevels = []int{1, 2, 4, 8}

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGrayscale, ModeColor:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q, expected grayscale or color", s)
}

func (m Mode) Channels() int {
	if m == ModeColor {
		return 3
	}
	return 1
}

func ValidNoiseLevel(level int) bool {
	for _, l := range NoiseLevels {
		if l == level {
			return true
		}
	}
	return false
}

type Meta struct {
	BurstName     string
	SigmaRead     float64
	SigmaShot     float64
	SigmaEstimate *tensor.Tensor // [1,H,W]
}

type Sample struct {
	Burst *tensor.Tensor // [N,C,H,W]
	GT    *tensor.Tensor // [C,H,W]
	Meta  Meta
}

// Dataset is a finite, order-stable, random access collection of samples.
type Dataset interface {
	Len() int
	Get(idx int) (*Sample, error)
}

type metaFile struct {
	SigmaRead float64 `json:"sigma_read"`
	SigmaShot float64 `json:"sigma_shot"`
}

type DenoiseTestSet struct {
	Mode       Mode
	NoiseLevel int
	dir        string
	bursts     []string
}

// New indexes the test set for mode and level under root.
func New(root string, mode Mode, level int) (*DenoiseTestSet, error) {
	if !ValidNoiseLevel(level) {
		return nil, fmt.Errorf("noise level %d not in %v", level, NoiseLevels)
	}
	dir := filepath.Join(root, string(mode), fmt.Sprintf("noise_%d", level))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset directory: %w", err)
	}
	var bursts []string
	for _, e := range entries {
		if e.IsDir() {
			bursts = append(bursts, e.Name())
		}
	}
	sort.Strings(bursts)
	return &DenoiseTestSet{Mode: mode, NoiseLevel: level, dir: dir, bursts: bursts}, nil
}

func (d *DenoiseTestSet) Len() int {
	return len(d.bursts)
}

func (d *DenoiseTestSet) Get(idx int) (*Sample, error) {
	if idx < 0 || idx >= len(d.bursts) {
		return nil, fmt.Errorf("sample index %d out of range [0, %d)", idx, len(d.bursts))
	}
	name := d.bursts[idx]
	burstDir := filepath.Join(d.dir, name)
	channels := d.Mode.Channels()

	gt, err := imageio.Read(filepath.Join(burstDir, "gt.png"), channels)
	if err != nil {
		return nil, err
	}

	framePaths, err := filepath.Glob(filepath.Join(burstDir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	if len(framePaths) == 0 {
		return nil, fmt.Errorf("burst %s has no frames", name)
	}
	sort.Strings(framePaths)

	c, h, w, _ := gt.CHW()
	frameLen := c * h * w
	burst := tensor.New(len(framePaths), c, h, w)
	for i, p := range framePaths {
		frame, err := imageio.Read(p, channels)
		if err != nil {
			return nil, err
		}
		if !frame.SameShape(gt) {
			return nil, fmt.Errorf("frame %s has shape %v, ground truth has %v", filepath.Base(p), frame.Shape, gt.Shape)
		}
		copy(burst.Data[i*frameLen:(i+1)*frameLen], frame.Data)
	}

	raw, err := os.ReadFile(filepath.Join(burstDir, "meta.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read burst metadata: %w", err)
	}
	var mf metaFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse burst metadata for %s: %w", name, err)
	}

	return &Sample{
		Burst: burst,
		GT:    gt,
		Meta: Meta{
			BurstName:     name,
			SigmaRead:     mf.SigmaRead,
			SigmaShot:     mf.SigmaShot,
			SigmaEstimate: sigmaEstimate(burst.Data[:frameLen], c, h, w, mf.SigmaRead, mf.SigmaShot),
		},
	}, nil
}

// sigmaEstimate is the per-pixel noise standard deviation predicted by the
// heteroscedastic model, evaluated on the reference frame and averaged over
// channels.
func sigmaEstimate(ref []float32, c, h, w int, sigRead, sigShot float64) *tensor.Tensor {
	out := tensor.New(1, h, w)
	plane := h * w
	for i := 0; i < plane; i++ {
		var acc float64
		for ch := 0; ch < c; ch++ {
			v := math.Max(float64(ref[ch*plane+i]), 0)
			acc += math.Sqrt(sigRead*sigRead + sigShot*v)
		}
		out.Data[i] = float32(acc / float64(c))
	}
	return out
}
