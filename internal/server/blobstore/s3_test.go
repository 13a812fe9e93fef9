package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/slotkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
	putErr  error

	lastPut *s3.PutObjectInput
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.lastPut = in
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	fake := newFakeS3()
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fake
	}

	s, err := NewS3Store(context.Background(), S3Config{
		User: "minio", Password: "secret", Bucket: "configs", Region: "us-east-1",
		Endpoint: "http://127.0.0.1:9000", Prefix: "ovpn/",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "ovpn/", s.prefix)
}

func TestNewS3Store_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3Store(context.Background(), S3Config{})
	require.EqualError(t, err, "load-fail")
}

func TestS3Store_PutGet(t *testing.T) {
	fake := newFakeS3()
	s := &S3Store{client: fake, bucket: "b", prefix: "configs/"}
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "srv_2", []byte("payload")))
	assert.Equal(t, "configs/srv_2", *fake.lastPut.Key)
	assert.EqualValues(t, 7, *fake.lastPut.ContentLength)

	got, err := s.Get(ctx, "srv_2")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestS3Store_GetMissing(t *testing.T) {
	s := &S3Store{client: newFakeS3(), bucket: "b"}

	_, err := s.Get(context.Background(), "srv_0")
	require.ErrorIs(t, err, common.ErrorBlobNotFound)
}

func TestS3Store_GetAPINotFound(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = &smithy.GenericAPIError{Code: "NotFound"}
	s := &S3Store{client: fake, bucket: "b"}

	_, err := s.Get(context.Background(), "srv_0")
	require.ErrorIs(t, err, common.ErrorBlobNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("timeout")
	fake.putErr = errors.New("denied")
	s := &S3Store{client: fake, bucket: "b"}
	ctx := context.Background()

	_, err := s.Get(ctx, "srv_0")
	require.ErrorContains(t, err, "timeout")
	require.NotErrorIs(t, err, common.ErrorBlobNotFound)

	require.ErrorContains(t, s.Put(ctx, "srv_0", nil), "denied")
}
