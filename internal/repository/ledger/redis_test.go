package ledger

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jgivc/fetchimages/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestRedis uses an in-process server. Set FETCHIMAGES_TEST_REDIS_URL
// (e.g. redis://localhost:6379/15) to run against a real one.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	opt := &redis.Options{}
	if redisURL := os.Getenv("FETCHIMAGES_TEST_REDIS_URL"); redisURL != "" {
		var err error
		opt, err = redis.ParseURL(redisURL)
		require.NoError(t, err)
	} else {
		opt.Addr = miniredis.RunT(t).Addr()
	}

	cl := redis.NewClient(opt)
	require.NoError(t, cl.Ping(context.Background()).Err())
	t.Cleanup(func() { cl.Close() })

	return cl
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	cl := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cl.Close() })

	return mr, cl
}

func TestRedisLedger(t *testing.T) {
	cl := newTestRedis(t)
	ctx := context.Background()

	for _, mode := range []Mode{ModeBatch, ModeAppend} {
		t.Run(mode.String(), func(t *testing.T) {
			key := "fetchimages:test:" + uuid.NewString()
			t.Cleanup(func() { cl.Del(context.Background(), key) })

			l := NewRedisLedger(cl, key, mode, testLog())
			h := util.ContentHash([]byte(key))

			ok, err := l.Contains(ctx, h)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, l.Record(ctx, h))

			ok, err = l.Contains(ctx, h)
			require.NoError(t, err)
			require.True(t, ok)

			persisted, err := cl.SIsMember(ctx, key, h).Result()
			require.NoError(t, err)
			require.Equal(t, mode == ModeAppend, persisted)

			n, err := l.Len(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, n)

			require.NoError(t, l.Flush(ctx))

			persisted, err = cl.SIsMember(ctx, key, h).Result()
			require.NoError(t, err)
			require.True(t, persisted)

			n, err = l.Len(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, n)

			fresh := NewRedisLedger(cl, key, mode, testLog())
			ok, err = fresh.Contains(ctx, h)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestRedisLedgerBatchFlushChunks(t *testing.T) {
	mr, cl := newMiniRedis(t)
	ctx := context.Background()

	l := NewRedisLedger(cl, "hashes", ModeBatch, testLog())

	total := flushChunk + 5
	for i := 0; i < total; i++ {
		require.NoError(t, l.Record(ctx, util.ContentHash([]byte{byte(i), byte(i >> 8)})))
	}
	require.False(t, mr.Exists("hashes"))

	require.NoError(t, l.Flush(ctx))

	members, err := mr.SMembers("hashes")
	require.NoError(t, err)
	require.Len(t, members, total)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, total, n)
}

func TestRedisLedgerAppendRetriesAtFlush(t *testing.T) {
	mr, cl := newMiniRedis(t)
	ctx := context.Background()

	l := NewRedisLedger(cl, "hashes", ModeAppend, testLog())
	h := util.ContentHash([]byte("one"))

	mr.SetError("ERR unavailable")
	require.Error(t, l.Record(ctx, h))

	ok, err := l.Contains(ctx, h)
	require.NoError(t, err, "a recorded hash is answered from memory")
	require.True(t, ok)

	require.Error(t, l.Flush(ctx))

	mr.SetError("")
	require.False(t, mr.Exists("hashes"))

	require.NoError(t, l.Flush(ctx))

	isMember, err := mr.SIsMember("hashes", h)
	require.NoError(t, err)
	require.True(t, isMember)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRedisLedgerContainsError(t *testing.T) {
	mr, cl := newMiniRedis(t)

	l := NewRedisLedger(cl, "hashes", ModeBatch, testLog())

	mr.SetError("ERR unavailable")
	_, err := l.Contains(context.Background(), util.ContentHash([]byte("one")))
	require.Error(t, err)
}

func TestRedisLedgerLocation(t *testing.T) {
	_, cl := newMiniRedis(t)

	require.Equal(t, "redis:fetchimages:hashes", NewRedisLedger(cl, "fetchimages:hashes", ModeBatch, testLog()).Location())
}
