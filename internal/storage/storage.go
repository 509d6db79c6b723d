// Package storage persists custom policy source files in an S3 bucket.
// Every upload gets a timestamped version so earlier revisions stay
// retrievable.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/infodir/opa-permission-api/internal/config"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// PolicyStore reads and writes policy files in a single bucket.
type PolicyStore struct {
	client s3API
	bucket string
}

// New creates a PolicyStore from the S3 configuration. A non-empty
// endpoint URL switches the client to path-style addressing for
// S3-compatible stores like MinIO.
func New(ctx context.Context, cfg config.S3) (*PolicyStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &PolicyStore{client: client, bucket: cfg.Bucket}, nil
}

// PolicyKey builds the object key for a policy version.
func PolicyKey(policyID, version string) string {
	return fmt.Sprintf("policies/%s/%s.rego", policyID, version)
}

// NewVersion returns a fresh version label derived from the current UTC
// time, e.g. v20260831143005.
func NewVersion() string {
	return "v" + time.Now().UTC().Format("20060102150405")
}

// UploadPolicyFile stores the policy source under the versioned key and
// returns that key.
func (p *PolicyStore) UploadPolicyFile(ctx context.Context, policyID, version, content string) (string, error) {
	key := PolicyKey(policyID, version)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("upload policy file %q: %w", key, err)
	}

	return key, nil
}

// FetchPolicyFile returns the policy source stored under key.
func (p *PolicyStore) FetchPolicyFile(ctx context.Context, key string) (string, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("fetch policy file %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read policy file %q: %w", key, err)
	}

	return string(content), nil
}

// HealthCheck verifies the bucket is reachable.
func (p *PolicyStore) HealthCheck(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})

	return err
}
