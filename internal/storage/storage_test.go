package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStorage runs the behaviour every backend must share.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		assert.False(t, s.Exists(ctx, "team/missing"))
		_, err := s.Get(ctx, "team/missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "team/abc", []byte("hello")))
		assert.True(t, s.Exists(ctx, "team/abc"))

		data, err := s.Get(ctx, "team/abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "team/over", []byte("first")))
		require.NoError(t, s.Put(ctx, "team/over", []byte("second")))

		data, err := s.Get(ctx, "team/over")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("empty content", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "team/empty", []byte{}))
		assert.True(t, s.Exists(ctx, "team/empty"))

		data, err := s.Get(ctx, "team/empty")
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("teams are isolated", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "team-a/shared", []byte("a")))
		assert.False(t, s.Exists(ctx, "team-b/shared"))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{in: "memory", want: ProviderMemory},
		{in: "file", want: ProviderFile},
		{in: "s3", want: ProviderS3},
		{in: "gcs", want: ProviderGCS},
		{in: "azure", want: ProviderAzure},
		{in: " S3 ", want: ProviderS3},
		{in: "", wantErr: true},
		{in: "redis", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := New(ctx, Options{Provider: ProviderMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, s)
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(ctx, Options{Provider: ProviderFile, FSCachePath: dir, Bucket: "bucket"})
		require.NoError(t, err)
		require.IsType(t, &FileStorage{}, s)
		assert.Equal(t, filepath.Join(dir, "bucket"), s.(*FileStorage).Root())
		assert.DirExists(t, filepath.Join(dir, "bucket"))
	})

	t.Run("s3", func(t *testing.T) {
		s, err := New(ctx, Options{
			Provider: ProviderS3,
			Bucket:   "bucket",
			S3:       S3Config{Endpoint: "localhost:9000", AccessKey: "key", SecretKey: "secret"},
		})
		require.NoError(t, err)
		require.IsType(t, &S3Storage{}, s)
		assert.Equal(t, "bucket", s.(*S3Storage).bucket)
	})

	t.Run("s3 with invalid endpoint", func(t *testing.T) {
		_, err := New(ctx, Options{
			Provider: ProviderS3,
			Bucket:   "bucket",
			S3:       S3Config{Endpoint: "http://localhost:9000/path"},
		})
		assert.Error(t, err)
	})

	t.Run("azure without account", func(t *testing.T) {
		_, err := New(ctx, Options{Provider: ProviderAzure, Bucket: "bucket"})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(ctx, Options{Provider: Provider("ftp")})
		assert.Error(t, err)
	})
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestMemoryStorageCopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	in := []byte("data")
	require.NoError(t, s.Put(ctx, "t/k", in))
	in[0] = 'X'

	out, err := s.Get(ctx, "t/k")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), out)

	out[0] = 'Y'
	again, err := s.Get(ctx, "t/k")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), again)
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("team/%d", i%5)
			_ = s.Put(ctx, key, []byte(key))
			s.Exists(ctx, key)
			_, _ = s.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("team/%d", i)
		data, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, string(data))
	}
}
