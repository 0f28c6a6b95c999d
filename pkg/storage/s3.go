package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const tokenMetadataKey = "download-token"

// Config contains the settings required to talk to an S3-compatible store.
type Config struct {
	Region   string
	Bucket   string
	Endpoint string
}

// S3Bucket implements Bucket on top of an S3-compatible object store.
type S3Bucket struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
	logger   zerolog.Logger
}

// NewS3Bucket constructs an S3-backed bucket.
func NewS3Bucket(ctx context.Context, cfg Config, logger zerolog.Logger) (*S3Bucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Bucket{
		client:   client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		logger:   logger.With().Str("component", "s3_bucket").Logger(),
	}, nil
}

func (b *S3Bucket) Stat(ctx context.Context, path string) (ObjectInfo, error) {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("failed to stat object %s: %w", path, err)
	}

	info := ObjectInfo{
		Path:        path,
		Size:        aws.ToInt64(head.ContentLength),
		ContentType: aws.ToString(head.ContentType),
	}

	if token, ok := head.Metadata[tokenMetadataKey]; ok && token != "" {
		info.DownloadToken = token
		return info, nil
	}

	// Tag the object with a fresh token so its URL stays stable from now on.
	info.DownloadToken = uuid.NewString()
	metadata := map[string]string{}
	for key, value := range head.Metadata {
		metadata[key] = value
	}
	metadata[tokenMetadataKey] = info.DownloadToken

	_, err = b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(b.bucket),
		Key:               aws.String(path),
		CopySource:        aws.String(fmt.Sprintf("%s/%s", b.bucket, path)),
		Metadata:          metadata,
		MetadataDirective: types.MetadataDirectiveReplace,
		ContentType:       head.ContentType,
		CacheControl:      aws.String("private,max-age=31536000"),
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to tag object %s: %w", path, err)
	}

	return info, nil
}

func (b *S3Bucket) Download(ctx context.Context, path, destination string) error {
	object, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to get object %s: %w", path, err)
	}
	defer object.Body.Close()

	file, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := io.Copy(file, object.Body); err != nil {
		return fmt.Errorf("failed to write %s: %w", destination, err)
	}

	return nil
}

func (b *S3Bucket) Upload(ctx context.Context, path, localFile, contentType, downloadToken string) error {
	file, err := os.Open(localFile)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(path),
		Body:         file,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("private,max-age=31536000"),
		Metadata:     map[string]string{tokenMetadataKey: downloadToken},
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", path, err)
	}

	b.logger.Info().Str("path", path).Msg("object uploaded")
	return nil
}

func (b *S3Bucket) Delete(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	return nil
}

func (b *S3Bucket) DownloadURL(path, downloadToken string) string {
	escaped := url.PathEscape(path)
	if b.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s?token=%s", b.endpoint, b.bucket, escaped, downloadToken)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s?token=%s", b.bucket, b.region, escaped, downloadToken)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
