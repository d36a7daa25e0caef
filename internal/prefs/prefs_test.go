package prefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "authToken")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "authToken", "tok-1"))
	require.NoError(t, s.Set(ctx, "userId", "42"))

	v, err := s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, s.Set(ctx, "authToken", "tok-2"))
	v, err = s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v)

	require.NoError(t, s.Delete(ctx, "authToken", "userId", "missing"))
	_, err = s.Get(ctx, "userId")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), "userEmail", "a@b.co"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "userEmail")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", v)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml ["), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "authToken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Set(context.Background(), "userId", "7"))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(context.Background(), "userId")
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GOLDY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GOLDY_TEST_POSTGRES_DSN not set")
	}

	s, err := NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("GOLDY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GOLDY_TEST_REDIS_URL not set")
	}

	s, err := NewRedisStore(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		dsn     string
		want    any
		wantErr bool
	}{
		{name: "empty is memory", dsn: "", want: &Memory{}},
		{name: "memory", dsn: "memory://", want: &Memory{}},
		{name: "file scheme", dsn: "file://" + filepath.Join(dir, "a.yaml"), want: &FileStore{}},
		{name: "bare path", dsn: filepath.Join(dir, "b.yaml"), want: &FileStore{}},
		{name: "sqlite", dsn: "sqlite://" + filepath.Join(dir, "c.db"), want: &SQLiteStore{}},
		{name: "unknown scheme", dsn: "etcd://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestWithRetry(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond}
	defer func() { retryDelays = saved }()

	t.Run("retries serialization failure", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			if calls < 2 {
				return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after all delays", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			return errors.New("dial tcp: connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), func() error {
			calls++
			return context.Canceled
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
