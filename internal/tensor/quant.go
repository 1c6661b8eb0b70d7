package tensor

import "math"

// QuantLevels is the fixed-point scale used for stored predictions.
const QuantLevels = 1 << 14

// Quantize maps v to round(clamp(v, 0, 1) * QuantLevels).
func Quantize(v float32) uint16 {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v >= 1 {
		return QuantLevels
	}
	return uint16(math.Round(float64(v) * QuantLevels))
}

func Dequantize(q uint16) float32 {
	return float32(q) / QuantLevels
}

// Quantized clamps t to [0,1] and snaps every value to the fixed-point grid,
// matching what a prediction goes through when it is saved and reloaded.
func (t *Tensor) Quantized() *Tensor {
	return t.Map(func(v float32) float32 {
		return Dequantize(Quantize(v))
	})
}
