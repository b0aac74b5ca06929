package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/pkg/config"
)

// S3Store hosts images in an S3 compatible bucket
type S3Store struct {
	endpoint   string
	region     string
	bucket     string
	accessKey  string
	secretKey  string
	publicBase string

	once    sync.Once
	client  *s3.Client
	initErr error
}

// NewS3Store creates a store; the AWS client is built on first use
func NewS3Store(cfg *config.MediaConfig) *S3Store {
	return &S3Store{
		endpoint:   cfg.S3Endpoint,
		region:     cfg.S3Region,
		bucket:     cfg.S3Bucket,
		accessKey:  cfg.S3AccessKey,
		secretKey:  cfg.S3SecretKey,
		publicBase: strings.TrimRight(cfg.S3PublicBase, "/"),
	}
}

func (s *S3Store) init(ctx context.Context) (*s3.Client, error) {
	s.once.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.region)}
		if s.endpoint != "" {
			opts = append(opts, awsconfig.WithBaseEndpoint(s.endpoint))
		}
		if s.accessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
				func(context.Context) (aws.Credentials, error) {
					return aws.Credentials{AccessKeyID: s.accessKey, SecretAccessKey: s.secretKey}, nil
				})))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			s.initErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			// path-style addressing keeps MinIO and other S3 compatible hosts working
			o.UsePathStyle = s.endpoint != ""
		})
	})
	return s.client, s.initErr
}

// PublicURL returns the URL an object key is served from
func (s *S3Store) PublicURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	if s.endpoint != "" {
		return strings.TrimRight(s.endpoint, "/") + "/" + s.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// keyFromURL reverses PublicURL
func (s *S3Store) keyFromURL(url string) (string, error) {
	prefix := s.PublicURL("")
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return strings.TrimPrefix(url, prefix), nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, hint string) (string, error) {
	client, err := s.init(ctx)
	if err != nil {
		metrics.Get().MediaUploadTotal.WithLabelValues("s3", "error").Inc()
		return "", err
	}

	key := objectKey(hint, contentType)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	metrics.Get().MediaUploadTotal.WithLabelValues("s3", metrics.Status(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}
	client, err := s.init(ctx)
	if err != nil {
		return err
	}
	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
