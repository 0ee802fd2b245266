// Package storage re-hosts generated media on Cloudflare R2.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2 uploads objects through the S3-compatible API and serves them from
// the bucket's public URL.
type R2 struct {
	client    objectPutter
	bucket    string
	publicURL string
}

func NewR2(ctx context.Context, cfg config.R2) (*R2, error) {
	if cfg.AccountID == "" || cfg.BucketName == "" || cfg.PublicURL == "" {
		return nil, errors.New("r2: account id, bucket name and public url are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return newR2(client, cfg.BucketName, cfg.PublicURL), nil
}

func newR2(client objectPutter, bucket, publicURL string) *R2 {
	return &R2{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (r *R2) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("r2: put %s: %w", key, err)
	}
	return r.publicURL + "/" + key, nil
}
