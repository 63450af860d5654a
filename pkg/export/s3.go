package export

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
)

// ObjectPutter is the part of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Publisher.
type S3Options struct {
	Region    string
	Endpoint  string // S3-compatible endpoint; enables path-style addressing
	AccessKey string
	SecretKey string
	Logger    logging.Logger
}

// S3Publisher uploads run artifacts under s3://bucket/prefix.
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	logger logging.Logger
}

// ParseS3URL splits s3://bucket/prefix. The prefix has no surrounding
// slashes and may be empty.
func ParseS3URL(raw string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", raw)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 url %q has no bucket", raw)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewS3Publisher loads the AWS configuration and targets url.
func NewS3Publisher(ctx context.Context, url string, opts S3Options) (*S3Publisher, error) {
	bucket, prefix, err := ParseS3URL(url)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3PublisherWithClient(client, bucket, prefix, opts.Logger), nil
}

// NewS3PublisherWithClient wraps an existing client.
func NewS3PublisherWithClient(client ObjectPutter, bucket, prefix string, logger logging.Logger) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logging.OrDefault(logger).With(logging.Component("s3")),
	}
}

// Key returns the object key for a path relative to the published dir.
func (p *S3Publisher) Key(rel string) string {
	rel = filepath.ToSlash(rel)
	if p.prefix == "" {
		return rel
	}
	return path.Join(p.prefix, rel)
}

// PublishDir uploads every regular file below dir, keyed by its path
// relative to dir, and returns the keys in walk order.
func (p *S3Publisher) PublishDir(ctx context.Context, dir string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		key := p.Key(rel)
		if err := p.put(ctx, file, key); err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return keys, err
	}
	p.logger.Info("artifacts published",
		logging.String("bucket", p.bucket),
		logging.String("prefix", p.prefix),
		logging.Count(len(keys)))
	return keys, nil
}

func (p *S3Publisher) put(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := contentType(file); ct != "" {
		in.ContentType = aws.String(ct)
	}
	if _, err := p.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
	}
	p.logger.Debug("uploaded", logging.Path(key))
	return nil
}

func contentType(file string) string {
	switch ext := filepath.Ext(file); ext {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".csv":
		return "text/csv; charset=utf-8"
	default:
		return mime.TypeByExtension(ext)
	}
}
