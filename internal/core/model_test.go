package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModel(t *testing.T) {
	var loadedPath string
	loaders := map[ModelType]ModelLoader{
		OnnxRnn: func(path string) (Model, error) {
			loadedPath = path
			return &fixedModel{}, nil
		},
		"broken": func(path string) (Model, error) {
			return nil, errors.New("corrupt artifact")
		},
	}

	model, err := LoadModel(loaders, OnnxRnn, "models/rnn.onnx")
	require.NoError(t, err)
	assert.NotNil(t, model)
	assert.Equal(t, "models/rnn.onnx", loadedPath)

	_, err = LoadModel(loaders, "broken", "models/rnn.onnx")
	assert.ErrorContains(t, err, "corrupt artifact")

	_, err = LoadModel(loaders, "keras_h5", "models/rnn.h5")
	assert.ErrorContains(t, err, "unsupported model type")
}

func TestOnnxLoaderRequiresRuntime(t *testing.T) {
	_, err := LoadModel(NewModelLoaders(""), OnnxRnn, "missing.onnx")
	assert.Error(t, err)
}
