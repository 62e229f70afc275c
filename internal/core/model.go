package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ModelType represents the format of a model artifact
type ModelType string

// Available model types
const (
	OnnxRnn ModelType = "onnx_rnn"
)

// SequenceBatch is a batch of single-channel sequences with shape
// (Rows, Steps, 1), stored row-major.
type SequenceBatch struct {
	Rows  int64
	Steps int64
	Data  []float32
}

type Model interface {
	// Predict returns one score per row of the batch.
	Predict(batch SequenceBatch) ([]float32, error)

	Info() ModelInfo

	Release()
}

type ModelInfo struct {
	Id         uuid.UUID `json:"id"`
	Type       ModelType `json:"type"`
	Path       string    `json:"path"`
	InputName  string    `json:"input_name"`
	OutputName string    `json:"output_name"`
	LoadedAt   time.Time `json:"loaded_at"`
}

type ModelLoader func(path string) (Model, error)

func NewModelLoaders(onnxRuntimeDylib string) map[ModelType]ModelLoader {
	return map[ModelType]ModelLoader{
		OnnxRnn: func(path string) (Model, error) {
			if err := InitOnnxRuntime(onnxRuntimeDylib); err != nil {
				return nil, fmt.Errorf("could not init ONNX Runtime: %w", err)
			}
			return LoadOnnxModel(path)
		},
	}
}

// LoadModel resolves the loader for modelType and loads the artifact at path.
func LoadModel(loaders map[ModelType]ModelLoader, modelType ModelType, path string) (Model, error) {
	loader, ok := loaders[modelType]
	if !ok {
		return nil, fmt.Errorf("unsupported model type '%s'", modelType)
	}

	model, err := loader(path)
	if err != nil {
		return nil, fmt.Errorf("error loading %s model from %s: %w", modelType, path, err)
	}

	return model, nil
}
