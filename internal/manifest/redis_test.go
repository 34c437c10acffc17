package manifest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set KIRINUKI_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run against a live server.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("KIRINUKI_TEST_REDIS_URL")
	if url == "" {
		t.Skip("KIRINUKI_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	key := "kirinuki:test:" + uuid.NewString()
	s, err := NewRedisStore(ctx, url, WithRedisKey(key))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), key).Err()
		_ = s.Close()
	})
	return s
}

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleManifest("b")))
	require.NoError(t, s.Save(ctx, sampleManifest("a")))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, sampleManifest("b"), got[1])

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url://")
	assert.Error(t, err)
}
