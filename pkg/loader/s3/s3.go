package s3

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/pulse/internal/util"
	"github.com/OFFIS-RIT/pulse/pkg/loader"
)

// getTries bounds the attempts per object.
const getTries = 3

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FileLoader is a FileLoader implementation that loads file contents
// from an Amazon S3 bucket. The file path is used as the object key.
type S3FileLoader struct {
	bucket string
	client ObjectGetter

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3FileLoaderWithClient creates a new S3FileLoader using an existing
// client. This is useful to reuse a preconfigured AWS client.
func NewS3FileLoaderWithClient(bucket string, client ObjectGetter) *S3FileLoader {
	return &S3FileLoader{
		bucket: bucket,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// NewS3FileLoaderParams defines the configuration parameters for creating
// a new S3FileLoader.
//
// Bucket specifies the S3 bucket name.
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO).
// Region specifies the AWS region.
// AccessKey and SecretKey provide static credentials.
type NewS3FileLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3FileLoader creates a new S3FileLoader with static credentials and
// the given endpoint and region.
//
// Example:
//
//	l, err := s3.NewS3FileLoader(ctx, s3.NewS3FileLoaderParams{
//		Bucket:    "exports",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	file := loader.NewEmailSource(loader.NewSourceFileParams{ID: "e", Path: "input/emails.json", Loader: l})
//	data, err := file.GetBytes(ctx)
func NewS3FileLoader(ctx context.Context, params NewS3FileLoaderParams) (*S3FileLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return NewS3FileLoaderWithClient(params.Bucket, client), nil
}

// GetFileBytes retrieves the contents of the given SourceFile from the
// configured bucket. It implements the FileLoader interface.
func (l *S3FileLoader) GetFileBytes(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	cacheKey := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[cacheKey]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(cacheKey, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[cacheKey]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		byts, err := util.RetryWithContext(ctx, getTries, func(ctx context.Context) ([]byte, error) {
			out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(l.bucket),
				Key:    aws.String(file.Path),
			})
			if err != nil {
				return nil, err
			}
			defer out.Body.Close()

			buf := new(bytes.Buffer)
			if _, err := io.Copy(buf, out.Body); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		})
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[cacheKey] = byts
		l.cacheMu.Unlock()

		return byts, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
