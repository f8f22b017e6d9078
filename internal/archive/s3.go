package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3 struct {
	root     string
	bucket   string
	s3Client *s3.Client
}

func NewS3(client *s3.Client, bucket, root string) *S3 {
	return &S3{
		root:     root,
		bucket:   bucket,
		s3Client: client,
	}
}

func (s *S3) key(name string) string {
	return path.Join(s.root, name)
}

func (s *S3) Close() error {
	return nil
}

func (s *S3) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	res, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res.Body, nil
}

// Write uploads r in a single PutObject call; archived plans are small.
func (s *S3) Write(ctx context.Context, name string, r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(body),
	})
	return err
}

func (s *S3) Remove(ctx context.Context, name string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}
