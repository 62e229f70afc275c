package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"8000"`

	Model ModelConfig
	S3    S3Config
	Log   LogConfig
}

type ModelConfig struct {
	Path             string `env:"MODEL_PATH" envDefault:"RNN_15-4.onnx"`
	Type             string `env:"MODEL_TYPE" envDefault:"onnx_rnn"`
	OnnxRuntimeDylib string `env:"ONNX_RUNTIME_DYLIB"`

	// When Bucket is set the artifact is downloaded to Path before loading,
	// from the local object store rooted at StoreDir if set, otherwise from S3.
	Bucket   string `env:"MODEL_BUCKET"`
	Key      string `env:"MODEL_KEY"`
	StoreDir string `env:"MODEL_STORE_DIR"`
}

type S3Config struct {
	EndpointURL     string `env:"S3_ENDPOINT_URL"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

type LogConfig struct {
	Level        string `env:"LOG_LEVEL" envDefault:"info"`
	ErrorLogPath string `env:"ERROR_LOG_PATH" envDefault:"error.log"`
	MaxSizeMB    int    `env:"ERROR_LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups   int    `env:"ERROR_LOG_MAX_BACKUPS" envDefault:"3"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Model.Bucket != "" && cfg.Model.Key == "" {
		return cfg, fmt.Errorf("MODEL_KEY must be set when MODEL_BUCKET is set")
	}

	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
