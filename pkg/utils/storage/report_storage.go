// Package storage archives generated quote reports in an S3 compatible
// bucket (Cloudflare R2 in production).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

const pdfContentType = "application/pdf"

// R2Config holds the bucket credentials. Endpoint overrides the account
// derived R2 endpoint.
type R2Config struct {
	AccountID string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

// Enabled reports whether enough is configured to reach a bucket.
func (c R2Config) Enabled() bool {
	return c.Bucket != "" && (c.AccountID != "" || c.Endpoint != "")
}

// ObjectPutter is the part of the S3 client the store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func NewR2Client(ctx context.Context, c R2Config) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return client, nil
}

// ReportStore uploads report PDFs and returns their public URL.
type ReportStore struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

func NewReportStore(client ObjectPutter, bucket, publicURL string) (*ReportStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	if bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	return &ReportStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// ReportKey builds a URL safe object key such as
// reports/sessions/12/2025-toyota-camry-xse-20261018-150405.pdf.
func ReportKey(sessionID uint, vehicle string, at time.Time) string {
	name := slug.Make(vehicle)
	if name == "" {
		name = "quotes"
	}
	file := fmt.Sprintf("%s-%s.pdf", name, at.UTC().Format("20060102-150405"))
	return path.Join("reports", "sessions", fmt.Sprintf("%d", sessionID), file)
}

// Upload stores body under key. The returned URL is the public URL when one
// is configured, otherwise the bucket-relative key.
func (s *ReportStore) Upload(ctx context.Context, key string, body []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(pdfContentType),
		ContentLength: aws.Int64(int64(len(body))),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("could not upload report to bucket: %w", err)
	}

	if s.publicURL == "" {
		return key, nil
	}
	return s.publicURL + "/" + key, nil
}
