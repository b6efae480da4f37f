// Package publish uploads an output directory to S3 or an S3-compatible
// store.
package publish

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gnemet/SlideGraph/internal/config"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Uploader is the part of the S3 API the publisher needs.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a client from the publish settings.
func NewS3Client(ctx context.Context, cfg config.PublishConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

type Publisher struct {
	client Uploader
	fs     afero.Fs
	bucket string
	prefix string
	log    *zap.Logger
}

func New(client Uploader, fsys afero.Fs, cfg config.PublishConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: client, fs: fsys, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}
}

// Key returns the object key of a file at rel inside the published directory.
func (p *Publisher) Key(rel string) string {
	return path.Join(p.prefix, filepath.ToSlash(rel))
}

// Publish uploads every regular file under dir. A failed upload does not
// stop the others; the count of uploaded files is returned with the combined
// errors.
func (p *Publisher) Publish(ctx context.Context, dir string) (int, error) {
	var files []string
	err := afero.Walk(p.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}

	uploaded := 0
	var errs error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return uploaded, multierr.Append(errs, err)
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := p.upload(ctx, file, p.Key(rel)); err != nil {
			p.log.Error("upload failed", zap.String("file", file), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		uploaded++
	}

	p.log.Info("output published",
		zap.String("bucket", p.bucket),
		zap.String("prefix", p.prefix),
		zap.Int("files", uploaded),
	)
	return uploaded, errs
}

func (p *Publisher) upload(ctx context.Context, file, key string) error {
	f, err := p.fs.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	_, err = p.client.PutObject(ctx, in)
	return err
}
