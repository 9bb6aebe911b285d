package dataset

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Output formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Write encodes the table in the given format.
func Write(w io.Writer, format string, t *Table) error {
	switch strings.ToLower(format) {
	case "", FormatCSV:
		return WriteCSV(w, t)
	case FormatParquet:
		return WriteParquet(w, t)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFile replaces the file at path with the encoded table. The file is
// written under a temporary name and renamed into place.
func WriteFile(filePath, format string, t *Table) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, format, t); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// putObjectAPI is the part of the S3 client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies written datasets to S3.
type Uploader struct {
	client putObjectAPI
}

// NewUploader builds an S3 client from the default AWS credential chain.
func NewUploader(ctx context.Context) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Uploader{client: s3.NewFromConfig(awsCfg)}, nil
}

// Upload puts the local file at uri. A uri ending in "/" is treated as a
// prefix and the file's base name is appended.
func (u *Uploader) Upload(ctx context.Context, localPath, uri string) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		key = path.Join(key, filepath.Base(localPath))
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URI %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: want s3://bucket/key", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
