// Package storage archives raw dataset uploads in S3-compatible object
// storage (MinIO in the compose setup). Files are zstd-compressed before
// upload; downloads go through short-lived presigned URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	sc "github.com/equipsense/equipsense/internal/server/config"
)

// presignValidity is how long archive download links stay usable.
const presignValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Archiver stores compressed dataset files in one bucket.
type S3Archiver struct {
	client  *s3.Client
	presign *s3.PresignClient
	encoder *zstd.Encoder
	bucket  string
}

// NewS3Archiver connects to the S3-compatible endpoint named in the server
// configuration. The caller decides whether archival is enabled at all
// (S3BaseEndpoint empty means disabled) and skips construction otherwise.
func NewS3Archiver(ctx context.Context, cfg *sc.Config) (*S3Archiver, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		// MinIO serves buckets by path, not virtual host.
		o.UsePathStyle = true
	})

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder error: %w", err)
	}

	return &S3Archiver{
		client:  client,
		presign: newS3PresignClient(client),
		encoder: encoder,
		bucket:  cfg.S3Bucket,
	}, nil
}

// archiveKey builds the object key for an upload received at the given
// time.
func archiveKey(now time.Time) string {
	return fmt.Sprintf("datasets/%d/%02d/%02d/%v.csv.zst", now.Year(), now.Month(), now.Day(), uuid.New())
}

// Archive compresses the raw file and uploads it, returning the object key.
func (a *S3Archiver) Archive(ctx context.Context, data []byte) (string, error) {
	key := archiveKey(time.Now())
	compressed := a.encoder.EncodeAll(data, nil)

	_, err := putObject(a.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return "", fmt.Errorf("archive upload error: %w", err)
	}
	return key, nil
}

// PresignGet returns a time-limited download URL for an archived object.
func (a *S3Archiver) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(a.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", fmt.Errorf("presign error: %w", err)
	}
	return req.URL, nil
}

// Remove deletes an archived object after its dataset row was pruned.
func (a *S3Archiver) Remove(ctx context.Context, key string) error {
	_, err := deleteObject(a.client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("archive delete error: %w", err)
	}
	return nil
}
