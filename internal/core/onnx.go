//go:build !windows

package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	initOnce sync.Once
	initErr  error
)

// InitOnnxRuntime initializes the process-wide ONNX Runtime environment from
// the given shared library. Only the first call has any effect.
func InitOnnxRuntime(libPath string) error {
	initOnce.Do(func() {
		if libPath == "" {
			initErr = fmt.Errorf("onnx runtime shared library path is not set")
			return
		}
		ort.SetSharedLibraryPath(libPath)
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

func DestroyOnnxRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

type OnnxModel struct {
	session *ort.DynamicAdvancedSession
	info    ModelInfo

	// steps is the fixed sequence length of the graph input, or -1 when the
	// graph accepts any length.
	steps int64
}

func LoadOnnxModel(path string) (Model, error) {
	if !ort.IsInitialized() {
		return nil, fmt.Errorf("onnx runtime is not initialized")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected model with 1 input, found %d", len(inputs))
	}
	inDims := inputs[0].Dimensions
	if len(inDims) != 3 {
		return nil, fmt.Errorf("expected rank 3 input (rows, steps, 1), got %v", inDims)
	}
	if inDims[2] != 1 && inDims[2] != -1 {
		return nil, fmt.Errorf("expected single channel input, got %v", inDims)
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("model has no outputs")
	}
	outDims := outputs[0].Dimensions
	if len(outDims) != 2 || (outDims[1] != 1 && outDims[1] != -1) {
		return nil, fmt.Errorf("expected output shape (rows, 1), got %v", outDims)
	}

	session, err := ort.NewDynamicAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &OnnxModel{
		session: session,
		steps:   inDims[1],
		info: ModelInfo{
			Id:         uuid.New(),
			Type:       OnnxRnn,
			Path:       path,
			InputName:  inputs[0].Name,
			OutputName: outputs[0].Name,
			LoadedAt:   time.Now(),
		},
	}, nil
}

func (m *OnnxModel) Predict(batch SequenceBatch) ([]float32, error) {
	if int64(len(batch.Data)) != batch.Rows*batch.Steps {
		return nil, fmt.Errorf("batch data has %d values, expected %d x %d", len(batch.Data), batch.Rows, batch.Steps)
	}
	if m.steps > 0 && batch.Steps != m.steps {
		return nil, fmt.Errorf("model expects sequences of length %d, got %d", m.steps, batch.Steps)
	}

	inT, err := ort.NewTensor(ort.NewShape(batch.Rows, batch.Steps, 1), batch.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inT.Destroy()

	outT, err := ort.NewEmptyTensor[float32](ort.NewShape(batch.Rows, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outT.Destroy()

	if err := m.session.Run([]ort.Value{inT}, []ort.Value{outT}); err != nil {
		return nil, fmt.Errorf("session run error: %w", err)
	}

	scores := make([]float32, batch.Rows)
	copy(scores, outT.GetData())
	return scores, nil
}

func (m *OnnxModel) Info() ModelInfo {
	return m.info
}

func (m *OnnxModel) Release() {
	m.session.Destroy()
}
