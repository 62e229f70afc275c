package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"exoplanet-backend/internal/config"
	"exoplanet-backend/internal/core"
	"exoplanet-backend/internal/logging"
	"exoplanet-backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	LoadEnvFrom(configPath)
}

func LoadEnvFrom(configPath string) {
	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func InitLogging(cfg config.LogConfig) io.Closer {
	return logging.Init(logging.Config{
		Level:        logging.ParseLevel(cfg.Level),
		ErrorLogPath: cfg.ErrorLogPath,
		MaxSizeMB:    cfg.MaxSizeMB,
		MaxBackups:   cfg.MaxBackups,
	})
}

// NewArtifactStore returns the object store model artifacts are fetched from,
// or nil when no bucket is configured and MODEL_PATH is loaded as is.
func NewArtifactStore(cfg config.Config) (storage.ObjectStore, error) {
	if cfg.Model.Bucket == "" {
		return nil, nil
	}

	if cfg.Model.StoreDir != "" {
		store, err := storage.NewLocalObjectStore(cfg.Model.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("error creating local artifact store: %w", err)
		}
		return store, nil
	}

	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3.EndpointURL,
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating s3 artifact store: %w", err)
	}
	return store, nil
}

// InitializePredictor runs the startup loader. It never fails: if the model
// artifact cannot be fetched or loaded the error is logged and the returned
// predictor has no model, so every prediction request is rejected.
func InitializePredictor(ctx context.Context, cfg config.Config) *core.Predictor {
	store, err := NewArtifactStore(cfg)
	if err != nil {
		slog.Error("error creating model artifact store", "bucket", cfg.Model.Bucket, "error", fmt.Sprintf("%+v", errors.WithStack(err)))
		return core.NewPredictor(nil)
	}

	return NewPredictor(ctx, cfg.Model, store, core.NewModelLoaders(cfg.Model.OnnxRuntimeDylib))
}

// PublishModel uploads a local model artifact to bucket/key, creating the
// bucket if needed, so servers configured with MODEL_BUCKET can fetch it.
func PublishModel(ctx context.Context, store storage.ObjectStore, bucket, key, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening model artifact: %w", err)
	}
	defer file.Close()

	if err := store.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("error creating bucket: %w", err)
	}

	if err := store.PutObject(ctx, bucket, key, file); err != nil {
		return fmt.Errorf("error uploading model artifact: %w", err)
	}

	slog.Info("model artifact published", "bucket", bucket, "key", key, "source", path)
	return nil
}

// NewPredictor fetches the artifact from store when one is given, then loads
// it with the loader registered for the configured model type.
func NewPredictor(ctx context.Context, cfg config.ModelConfig, store storage.ObjectStore, loaders map[core.ModelType]core.ModelLoader) *core.Predictor {
	model, err := loadModel(ctx, cfg, store, loaders)
	if err != nil {
		slog.Error("error loading the model", "model_path", cfg.Path, "model_type", cfg.Type, "error", fmt.Sprintf("%+v", errors.WithStack(err)))
		return core.NewPredictor(nil)
	}

	info := model.Info()
	slog.Info("model loaded", "model_id", info.Id, "model_type", info.Type, "model_path", info.Path, "input", info.InputName, "output", info.OutputName)

	return core.NewPredictor(model)
}

func loadModel(ctx context.Context, cfg config.ModelConfig, store storage.ObjectStore, loaders map[core.ModelType]core.ModelLoader) (core.Model, error) {
	if store != nil {
		slog.Info("fetching model artifact", "bucket", cfg.Bucket, "key", cfg.Key, "dest", cfg.Path)
		if err := store.DownloadObject(ctx, cfg.Bucket, cfg.Key, cfg.Path); err != nil {
			return nil, fmt.Errorf("error fetching model artifact: %w", err)
		}
	}

	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("model artifact not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("model artifact %s is a directory", cfg.Path)
	}

	return core.LoadModel(loaders, core.ModelType(cfg.Type), cfg.Path)
}
