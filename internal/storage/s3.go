// Package storage archives generated documents to an S3-compatible bucket (AWS S3, R2, MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"loan-backend/internal/config"
)

// ObjectStore is the subset of the S3 client the archiver uses
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archiver struct {
	client ObjectStore
	bucket string
}

// NewArchiver builds an S3 client from the storage section of cfg. A custom endpoint
// switches to path-style addressing, which R2 and MinIO expect.
func NewArchiver(ctx context.Context, cfg *config.Config) (*Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Storage.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure storage client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewArchiverWithClient(client, cfg.Storage.Bucket), nil
}

func NewArchiverWithClient(client ObjectStore, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// StatementKey is where the statement of a loan generated at t is stored
func StatementKey(loanID int, t time.Time) string {
	return fmt.Sprintf("statements/loan_%d/%s.pdf", loanID, t.UTC().Format("20060102_150405"))
}

// Put uploads body under key and returns the key
func (a *Archiver) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	log.Printf("[Storage] Uploaded %s (%d bytes)", key, len(body))
	return key, nil
}
