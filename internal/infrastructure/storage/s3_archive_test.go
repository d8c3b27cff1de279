package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dbcb2b/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts      []*s3.PutObjectInput
	bodies    [][]byte
	putErr    error
	headErr   error
	created   int
	createErr error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	return &s3.CreateBucketOutput{}, f.createErr
}

func TestNewS3UploadArchive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3UploadArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3UploadArchive(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half a credential pair returns error", func(t *testing.T) {
		_, err := NewS3UploadArchive(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
	})

	t.Run("valid config creates archive", func(t *testing.T) {
		archive, err := NewS3UploadArchive(&config.StorageConfig{
			Bucket:       "imports",
			AccessKey:    "k",
			SecretKey:    "s",
			Endpoint:     "localhost:9000",
			UsePathStyle: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "imports", archive.GetBucket())
	})
}

func TestS3UploadArchive_Archive(t *testing.T) {
	fake := &fakeS3{}
	archive := newS3UploadArchive(fake, "imports")
	archive.now = func() time.Time { return time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) }

	key, err := archive.Archive(context.Background(), "catalog", "Stock mars.xlsx", []byte("data"))

	require.NoError(t, err)
	assert.Regexp(t, `^imports/catalog/2026/03/[0-9a-f-]{36}-Stock_mars\.xlsx$`, key)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "imports", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, key, aws.ToString(fake.puts[0].Key))
	assert.Equal(t, int64(4), aws.ToInt64(fake.puts[0].ContentLength))
	assert.Equal(t, []byte("data"), fake.bodies[0])
}

func TestS3UploadArchive_ArchiveError(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("connection refused")}
	archive := newS3UploadArchive(fake, "imports")

	_, err := archive.Archive(context.Background(), "order", "order.csv", []byte("x"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive upload")
}

func TestS3UploadArchive_EnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		fake := &fakeS3{}
		require.NoError(t, newS3UploadArchive(fake, "imports").EnsureBucket(context.Background()))
		assert.Equal(t, 0, fake.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NotFound{}}
		require.NoError(t, newS3UploadArchive(fake, "imports").EnsureBucket(context.Background()))
		assert.Equal(t, 1, fake.created)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		fake := &fakeS3{headErr: errors.New("forbidden")}
		assert.Error(t, newS3UploadArchive(fake, "imports").EnsureBucket(context.Background()))
	})
}

func TestArchiveKey(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	at := time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "imports/units/2025/11/7d444840-9dc0-11d1-b245-5ffdce74fad2-imei.csv",
		ArchiveKey("units", `C:\Users\ops\imei.csv`, at, id))
	assert.Equal(t, "imports/order/2025/11/7d444840-9dc0-11d1-b245-5ffdce74fad2-upload",
		ArchiveKey("order", "", at, id))
}

func TestMemoryArchive(t *testing.T) {
	archive := NewMemoryArchive()
	data := []byte("SKU;Quantity\nA;1\n")

	key, err := archive.Archive(context.Background(), "order", "order.csv", data)
	require.NoError(t, err)

	data[0] = 'X'
	stored, ok := archive.Get(key)
	require.True(t, ok)
	assert.Equal(t, byte('S'), stored[0])
	assert.Equal(t, 1, archive.Len())
}
