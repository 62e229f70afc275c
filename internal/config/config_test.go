package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "MODEL_PATH", "MODEL_TYPE", "ONNX_RUNTIME_DYLIB", "MODEL_BUCKET", "MODEL_KEY", "MODEL_STORE_DIR",
		"S3_ENDPOINT_URL", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION",
		"LOG_LEVEL", "ERROR_LOG_PATH", "ERROR_LOG_MAX_SIZE_MB", "ERROR_LOG_MAX_BACKUPS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Addr())
	assert.Equal(t, "RNN_15-4.onnx", cfg.Model.Path)
	assert.Equal(t, "onnx_rnn", cfg.Model.Type)
	assert.Equal(t, "error.log", cfg.Log.ErrorLogPath)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_PATH", "/models/rnn.onnx")
	t.Setenv("MODEL_BUCKET", "models")
	t.Setenv("MODEL_KEY", "rnn/model.onnx")
	t.Setenv("MODEL_STORE_DIR", "/var/lib/exoplanet/store")
	t.Setenv("S3_ENDPOINT_URL", "http://localhost:9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, "/models/rnn.onnx", cfg.Model.Path)
	assert.Equal(t, "models", cfg.Model.Bucket)
	assert.Equal(t, "rnn/model.onnx", cfg.Model.Key)
	assert.Equal(t, "/var/lib/exoplanet/store", cfg.Model.StoreDir)
	assert.Equal(t, "http://localhost:9000", cfg.S3.EndpointURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)

	t.Run("BadPort", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("BucketWithoutKey", func(t *testing.T) {
		t.Setenv("MODEL_BUCKET", "models")
		_, err := Load()
		assert.ErrorContains(t, err, "MODEL_KEY")
	})
}
