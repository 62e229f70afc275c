//go:build windows

package core

import (
	"errors"
)

var ErrOnnxNotSupportedOnWindows = errors.New("ONNX models are not supported on Windows")

type OnnxModel struct{}

func InitOnnxRuntime(libPath string) error {
	return ErrOnnxNotSupportedOnWindows
}

func DestroyOnnxRuntime() error {
	return nil
}

func LoadOnnxModel(path string) (Model, error) {
	return nil, ErrOnnxNotSupportedOnWindows
}

func (m *OnnxModel) Predict(batch SequenceBatch) ([]float32, error) {
	return nil, ErrOnnxNotSupportedOnWindows
}

func (m *OnnxModel) Info() ModelInfo {
	return ModelInfo{Type: OnnxRnn}
}

func (m *OnnxModel) Release() {
	// no-op
}
