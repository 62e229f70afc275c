package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

// S3ClientConfig locates the bucket holding model artifacts. Endpoint is only
// set for S3 compatible servers such as MinIO.
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3ClientConfig) region() string {
	if c.Region == "" {
		return defaultS3Region
	}
	return c.Region
}

func loadAwsConfig(ctx context.Context, cfg S3ClientConfig) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{
		aws_config.WithRegion(cfg.region()),
	}

	staticCreds := cfg.AccessKeyID != "" && cfg.SecretAccessKey != ""
	if staticCreds {
		opts = append(opts, aws_config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	// Public artifact buckets are read unsigned when the default chain has
	// nothing to offer.
	if !staticCreds {
		if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
			slog.Info("no aws credentials found, using anonymous access", "error", err)
			awsCfg.Credentials = aws.AnonymousCredentials{}
		}
	}

	return awsCfg, nil
}

func newS3Client(cfg S3ClientConfig) (*s3.Client, error) {
	awsCfg, err := loadAwsConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true // MinIO serves buckets on the path, not the host
	}), nil
}
