package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Backend is a flat key/value blob store. Keys may contain slashes.
type Backend interface {
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	Write(ctx context.Context, key string, r io.Reader) error
	Remove(ctx context.Context, key string) error
	Close() error
}

func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Persistence.Archive.Driver {
	case config.ArchiveDriverFilesystem:
		root := cfg.Persistence.Archive.Directory
		err := os.MkdirAll(root, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
		return NewFilesystem(root)
	case config.ArchiveDriverS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Persistence.Archive.S3.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			if cfg.Persistence.Archive.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Persistence.Archive.S3.Endpoint)
			}
		})
		return NewS3(client, cfg.Persistence.Archive.S3.Bucket, ""), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownArchiveDriver, cfg.Persistence.Archive.Driver)
	}
}
