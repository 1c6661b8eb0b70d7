package model

// Metadata is the JSON sidecar exported next to every ONNX graph.
type Metadata struct {
	InputNames  []string `json:"input_names"`
	OutputNames []string `json:"output_names"`
	// InputShape and ImageSize are only set for graphs exported with a fixed
	// spatial size.
	InputShape []int64 `json:"input_shape,omitempty"`
	ImageSize  int     `json:"image_size,omitempty"`
}

// RuntimeOptions selects where sessions execute.
type RuntimeOptions struct {
	Device   string
	DeviceID int
}
