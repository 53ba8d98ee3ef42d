package sources

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
)

// ObjectGetter is the part of the S3 client used to read snapshots
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ClientFactory builds an ObjectGetter for a bucket configuration
type S3ClientFactory func(ctx context.Context, cfg *config.S3Config) (ObjectGetter, error)

// s3Fetcher reads snapshots from S3 compatible object storage
type s3Fetcher struct {
	newClient S3ClientFactory
}

// NewS3SourceHandler creates a handler for s3 sources. A nil factory uses NewS3Client.
func NewS3SourceHandler(newClient S3ClientFactory) SourceHandler {
	if newClient == nil {
		newClient = NewS3Client
	}
	return &snapshotHandler{fetcher: &s3Fetcher{newClient: newClient}}
}

// NewS3Client builds an S3 client from the bucket configuration. Static keys
// are used when configured, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg *config.S3Config) (ObjectGetter, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.GetRegion()),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (*s3Fetcher) validate(src *config.SourceConfig) error {
	if src.S3 == nil {
		return fmt.Errorf("s3 configuration is required")
	}
	if src.S3.Bucket == "" || src.S3.Key == "" {
		return fmt.Errorf("s3 bucket and key cannot be empty")
	}
	return nil
}

func (f *s3Fetcher) fetch(ctx context.Context, src *config.SourceConfig) ([]byte, string, error) {
	client, err := f.newClient(ctx, src.S3)
	if err != nil {
		return nil, "", err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.S3.Bucket),
		Key:    aws.String(src.S3.Key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get s3://%s/%s: %w", src.S3.Bucket, src.S3.Key, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	limit := src.GetMaxSize()
	data, err := io.ReadAll(io.LimitReader(out.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read s3://%s/%s: %w", src.S3.Bucket, src.S3.Key, err)
	}

	return data, path.Base(src.S3.Key), nil
}
