package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads videos under <prefix>/<job id>/<file name>.
type S3Publisher struct {
	client  ObjectPutter
	presign func(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	bucket  string
	prefix  string
	expires time.Duration
	logger  *slog.Logger
}

// NewS3 loads the default AWS credential chain with the configured overrides.
func NewS3(ctx context.Context, cfg config.Publish, logger *slog.Logger) (*S3Publisher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "load aws config", "unable to load AWS configuration", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	presignClient := s3.NewPresignClient(client)
	publisher := NewS3WithClient(client, cfg, logger)
	publisher.presign = func(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
		req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = expires
		})
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return publisher, nil
}

// NewS3WithClient builds a publisher around an existing client. Presigning is
// disabled until a presign func is installed with WithPresigner.
func NewS3WithClient(client ObjectPutter, cfg config.Publish, logger *slog.Logger) *S3Publisher {
	return &S3Publisher{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		expires: time.Duration(cfg.PresignMinutes) * time.Minute,
		logger:  logging.NewComponentLogger(logger, "publish"),
	}
}

// WithPresigner replaces the function used to build download URLs.
func (p *S3Publisher) WithPresigner(fn func(ctx context.Context, bucket, key string, expires time.Duration) (string, error)) *S3Publisher {
	p.presign = fn
	return p
}

// Key returns the object key for a job's output file.
func (p *S3Publisher) Key(jobID, localPath string) string {
	return path.Join(p.prefix, jobID, filepath.Base(localPath))
}

// Publish uploads the file and returns a presigned URL when presigning is
// configured, or the s3:// location otherwise.
func (p *S3Publisher) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "publish", "open output", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrFileSystem, "publish", "stat output", localPath, err)
	}

	key := p.Key(jobID, localPath)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "publish", "put object", fmt.Sprintf("s3://%s/%s", p.bucket, key), err)
	}
	p.logger.Info("video uploaded",
		logging.String(logging.FieldEventType, "publish_uploaded"),
		logging.String("bucket", p.bucket),
		logging.String("key", key),
		logging.Int64("bytes", info.Size()),
	)

	if p.presign == nil || p.expires <= 0 {
		return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
	}
	url, err := p.presign(ctx, p.bucket, key, p.expires)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "publish", "presign", key, err)
	}
	return url, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}
