package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/tieubaoca/pdfchat-be/config"
)

const uploadPrefix = "uploads/"

// S3Store keeps uploads in an S3 compatible bucket. Locators are object keys.
type S3Store struct {
	bucket string
	client *s3.Client
	log    zerolog.Logger
}

func NewS3Store(ctx context.Context, cfg config.S3Config, log zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKey := strings.TrimSpace(cfg.AccessKeyID)
	secretKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Store{
		bucket: cfg.Bucket,
		client: client,
		log:    log.With().Str("component", "s3-storage").Logger(),
	}, nil
}

// ObjectKey builds the key an upload is stored under.
func ObjectKey(name string, now time.Time) string {
	base := strings.ReplaceAll(path.Base(name), " ", "-")
	return fmt.Sprintf("%s%d%s", uploadPrefix, now.UnixMilli(), base)
}

func (s *S3Store) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	key := ObjectKey(name, time.Now())
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/pdf"),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int64("size", size).Msg("stored upload")
	return key, nil
}

func (s *S3Store) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	if locator == "" {
		return nil, ErrInvalidLocator
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", locator, err)
	}
	return out.Body, nil
}
