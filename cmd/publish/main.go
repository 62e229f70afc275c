package main

import (
	"context"
	"fmt"
	"log"

	"exoplanet-backend/cmd"
	"exoplanet-backend/internal/config"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envPath, bucket, key string

	command := &cobra.Command{
		Use:   "publish MODEL.onnx",
		Short: "Upload a model artifact to the store the prediction server loads from",
		Example: `
  # Publish to the bucket/key configured in .env
  publish --env .env RNN_15-4.onnx

  # Publish to a local store directory
  MODEL_STORE_DIR=./store publish --bucket models --key rnn/RNN_15-4.onnx RNN_15-4.onnx`,
		Args: cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			cmd.LoadEnvFrom(envPath)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if bucket != "" {
				cfg.Model.Bucket = bucket
			}
			if key != "" {
				cfg.Model.Key = key
			}
			if cfg.Model.Bucket == "" || cfg.Model.Key == "" {
				return fmt.Errorf("a bucket and key are required, set MODEL_BUCKET/MODEL_KEY or --bucket/--key")
			}

			store, err := cmd.NewArtifactStore(cfg)
			if err != nil {
				return err
			}

			return cmd.PublishModel(context.Background(), store, cfg.Model.Bucket, cfg.Model.Key, args[0])
		},
	}

	command.Flags().StringVar(&envPath, "env", "", "path to load env from")
	command.Flags().StringVar(&bucket, "bucket", "", "bucket to upload to (defaults to MODEL_BUCKET)")
	command.Flags().StringVar(&key, "key", "", "object key to upload to (defaults to MODEL_KEY)")

	return command
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
