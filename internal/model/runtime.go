package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime loads the onnxruntime shared library once per process. An
// empty libPath keeps the library's platform default.
func InitRuntime(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func ShutdownRuntime() {
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}

// LoadMetadata reads a graph's JSON sidecar.
func LoadMetadata(metadataPath string) (Metadata, error) {
	var metadata Metadata
	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return metadata, nil
}

func newSessionOptions(opts RuntimeOptions) (*ort.SessionOptions, error) {
	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if opts.Device != "cuda" {
		return sessionOpts, nil
	}

	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		sessionOpts.Destroy()
		return nil, fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer cudaOpts.Destroy()

	if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(opts.DeviceID)}); err != nil {
		sessionOpts.Destroy()
		return nil, fmt.Errorf("failed to configure CUDA provider: %w", err)
	}
	if err := sessionOpts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		sessionOpts.Destroy()
		return nil, fmt.Errorf("failed to enable CUDA provider: %w", err)
	}
	return sessionOpts, nil
}

// Session is a dynamic-shape onnxruntime session plus its metadata.
type Session struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
}

func NewSession(modelPath, metadataPath string, opts RuntimeOptions) (*Session, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if len(metadata.InputNames) == 0 || len(metadata.OutputNames) == 0 {
		return nil, fmt.Errorf("metadata %s must name at least one input and one output", metadataPath)
	}

	sessionOpts, err := newSessionOptions(opts)
	if err != nil {
		return nil, err
	}
	defer sessionOpts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		metadata.InputNames, metadata.OutputNames[:1], sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{session: session, Metadata: metadata}, nil
}

// Run feeds inputs in metadata order and returns the first declared output,
// whose shape must be known up front. Auxiliary outputs are not fetched.
func (s *Session) Run(inputs [][]float32, inputShapes [][]int64, outputShape []int64) ([]float32, error) {
	if len(inputs) != len(s.Metadata.InputNames) {
		return nil, fmt.Errorf("graph expects %d inputs, got %d", len(s.Metadata.InputNames), len(inputs))
	}

	inputTensors := make([]ort.ArbitraryTensor, 0, len(inputs))
	defer func() {
		for _, t := range inputTensors {
			t.Destroy()
		}
	}()
	for i, data := range inputs {
		t, err := ort.NewTensor(ort.NewShape(inputShapes[i]...), data)
		if err != nil {
			return nil, fmt.Errorf("failed to create input tensor %s: %w", s.Metadata.InputNames[i], err)
		}
		inputTensors = append(inputTensors, t)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run(inputTensors, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return append([]float32(nil), outputTensor.GetData()...), nil
}

func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
}
