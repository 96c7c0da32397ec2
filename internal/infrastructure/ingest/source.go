// Package ingest loads product catalogs from their sources and turns
// raw rows into the retrieval pools the planner searches.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// FileSource reads the catalog from a local CSV file.
type FileSource struct {
	path string
}

// NewFileSource creates a catalog source backed by a local file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch opens the file. The version marker is the modification time so
// unchanged files can be recognized across reloads.
func (s *FileSource) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("stat catalog file: %w", err)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("open catalog file: %w", err)
	}
	return f, info.ModTime().UTC().Format(time.RFC3339Nano), nil
}

// Describe names the source for logs and status endpoints
func (s *FileSource) Describe() string {
	return "file:" + s.path
}

// S3Source reads the catalog from an S3 object.
type S3Source struct {
	client s3iface.S3API
	bucket string
	key    string
}

// NewS3Source creates a catalog source backed by an S3 object
func NewS3Source(client s3iface.S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Fetch downloads the object. The version marker is the ETag when the
// store reports one, the last-modified time otherwise.
func (s *S3Source) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get catalog object s3://%s/%s: %w", s.bucket, s.key, err)
	}

	version := strings.Trim(aws.StringValue(out.ETag), `"`)
	if version == "" && out.LastModified != nil {
		version = out.LastModified.UTC().Format(time.RFC3339Nano)
	}
	return out.Body, version, nil
}

// Describe names the source for logs and status endpoints
func (s *S3Source) Describe() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}
