package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
	bucket  string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	if f.objects == nil {
		f.objects = make(map[string]string)
	}

	f.bucket = *params.Bucket
	f.objects[*params.Key] = string(body)

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	content, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(content))}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &s3.HeadBucketOutput{}, nil
}

func TestPolicyKey(t *testing.T) {
	assert.Equal(t, "policies/custom-1/v20260831120000.rego", PolicyKey("custom-1", "v20260831120000"))
}

func TestNewVersion(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^v\d{14}$`), NewVersion())
}

func TestUploadAndFetchPolicyFile(t *testing.T) {
	client := &fakeS3{}
	store := &PolicyStore{client: client, bucket: "infodir-policies"}

	key, err := store.UploadPolicyFile(context.Background(), "custom-1", "v20260831120000", "package custom\n")
	require.NoError(t, err)
	assert.Equal(t, "policies/custom-1/v20260831120000.rego", key)
	assert.Equal(t, "infodir-policies", client.bucket)

	content, err := store.FetchPolicyFile(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "package custom\n", content)

	_, err = store.FetchPolicyFile(context.Background(), "policies/custom-1/v0.rego")
	assert.Error(t, err)
}

func TestUploadPolicyFileFailure(t *testing.T) {
	store := &PolicyStore{client: &fakeS3{err: errors.New("access denied")}, bucket: "infodir-policies"}

	_, err := store.UploadPolicyFile(context.Background(), "custom-1", "v1", "package custom\n")
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	store := &PolicyStore{client: &fakeS3{}, bucket: "infodir-policies"}
	assert.NoError(t, store.HealthCheck(context.Background()))

	store = &PolicyStore{client: &fakeS3{err: errors.New("NotFound")}, bucket: "infodir-policies"}
	assert.Error(t, store.HealthCheck(context.Background()))
}
