package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/pulse/internal/util"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

const (
	putTries       = 3
	presignExpires = 15 * time.Minute
)

// S3Config holds the connection settings for an S3 compatible store.
type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	PublicEndpoint string `yaml:"public_endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// NewS3Client builds a path-style client with static credentials.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("Failed to load AWS config:\n%w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// ObjectPutter is the part of the S3 client the sink needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink stores exports as objects below a key prefix.
type S3Sink struct {
	client ObjectPutter
	bucket string
	prefix string
}

// RunPrefix is the key prefix for the exports of one run.
func RunPrefix(runID string) string {
	return path.Join("runs", runID)
}

// NewS3Sink creates a sink that writes to bucket under prefix.
func NewS3Sink(client ObjectPutter, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key used for name.
func (s *S3Sink) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Write uploads data, retrying transient failures.
func (s *S3Sink) Write(ctx context.Context, name string, data []byte) error {
	key := s.Key(name)
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := util.RetryErrWithContext(ctx, putTries, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return err
	})
	if err != nil {
		logger.Error("[Storage] Upload failed", "key", key, "err", err)
		return fmt.Errorf("Failed to upload %s to S3:\n%w", key, err)
	}
	logger.Debug("[Storage] Uploaded object", "key", key, "bytes", len(data))
	return nil
}

// GenerateDownloadLink presigns a GET for key against the public endpoint.
func GenerateDownloadLink(ctx context.Context, baseClient *s3.Client, c S3Config, key string) (string, error) {
	publicURL, err := url.Parse(c.PublicEndpoint)
	if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
		return "", fmt.Errorf("invalid public endpoint: %s", c.PublicEndpoint)
	}
	prefix := strings.TrimSuffix(publicURL.Path, "/")
	publicBaseEndpoint := fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host)

	// Signing against the public host keeps the signature valid for the
	// Host header clients send.
	presignClient := s3.NewFromConfig(
		aws.Config{
			Region:      baseClient.Options().Region,
			Credentials: baseClient.Options().Credentials,
			HTTPClient:  baseClient.Options().HTTPClient,
		},
		func(o *s3.Options) {
			o.BaseEndpoint = aws.String(publicBaseEndpoint)
			o.UsePathStyle = true
		},
	)

	out, err := s3.NewPresignClient(presignClient).PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(c.Bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(presignExpires),
	)
	if err != nil {
		return "", fmt.Errorf("Failed to generate download link:\n%w", err)
	}

	if prefix != "" {
		signedURL, err := url.Parse(out.URL)
		if err != nil {
			return "", fmt.Errorf("Failed to parse presigned url:\n%w", err)
		}
		signedURL.Path = prefix + signedURL.Path
		return signedURL.String(), nil
	}

	return out.URL, nil
}
