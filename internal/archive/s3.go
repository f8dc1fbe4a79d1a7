// Package archive keeps a copy of every nightly budget chunk in S3 so a run
// can be audited or replayed after the database rows are overwritten.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/adgroup-autopilot/internal/pkg/logger"
	"github.com/ignite/adgroup-autopilot/internal/service/autopilot"
)

// ObjectPutter is the part of *s3.Client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config contains configuration for the S3 archive.
type Config struct {
	Bucket   string
	Prefix   string // e.g. "autopilot/runs/"
	Region   string
	Compress bool
}

// S3Archiver implements autopilot.Archiver.
type S3Archiver struct {
	client ObjectPutter
	cfg    Config
}

var _ autopilot.Archiver = (*S3Archiver)(nil)

// NewS3Archiver creates an archiver using the default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
		if cfg.Region == "" {
			cfg.Region = "us-east-1"
		}
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("archive initialized", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "region", cfg.Region, "compress", cfg.Compress)
	return NewArchiver(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewArchiver creates an archiver around an existing client.
func NewArchiver(client ObjectPutter, cfg Config) *S3Archiver {
	return &S3Archiver{client: client, cfg: cfg}
}

// Key returns the object key of a chunk: prefix/day/run/chunk-00000.json[.gz].
func (a *S3Archiver) Key(rec autopilot.ChunkRecord) string {
	key := fmt.Sprintf("%s%s/%s/chunk-%05d.json", a.cfg.Prefix, rec.Day, rec.RunID, rec.Chunk)
	if a.cfg.Compress {
		key += ".gz"
	}
	return key
}

// ArchiveChunk implements autopilot.Archiver.
func (a *S3Archiver) ArchiveChunk(ctx context.Context, rec autopilot.ChunkRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize chunk: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(a.Key(rec)),
		ContentType: aws.String("application/json"),
	}
	if a.cfg.Compress {
		data, err = gzipCompress(data)
		if err != nil {
			return fmt.Errorf("failed to compress chunk: %w", err)
		}
		input.ContentEncoding = aws.String("gzip")
	}
	input.Body = bytes.NewReader(data)

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", aws.ToString(input.Key), err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
