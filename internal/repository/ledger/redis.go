package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	// flushChunk is the number of members sent per SADD.
	flushChunk = 1000
)

// redisLedger stores hashes in one Redis set.
// In batch mode new hashes wait in memory until Flush.
type redisLedger struct {
	cl      *redis.Client
	key     string
	mode    Mode
	pending []string
	seen    map[string]struct{}

	log *slog.Logger
}

func NewRedisLedger(cl *redis.Client, key string, mode Mode, log *slog.Logger) *redisLedger {
	return &redisLedger{
		cl:   cl,
		key:  key,
		mode: mode,
		seen: make(map[string]struct{}),
		log:  log.With(slog.String("item", "RedisLedger"), slog.String("key", key), slog.String("mode", mode.String())),
	}
}

func (l *redisLedger) Contains(ctx context.Context, hash string) (bool, error) {
	hash, err := normalize(hash)
	if err != nil {
		return false, err
	}

	if _, exists := l.seen[hash]; exists {
		return true, nil
	}

	exists, err := l.cl.SIsMember(ctx, l.key, hash).Result()
	if err != nil {
		return false, fmt.Errorf("cannot check hash %s: %w", hash, err)
	}

	return exists, nil
}

func (l *redisLedger) Record(ctx context.Context, hash string) error {
	hash, err := normalize(hash)
	if err != nil {
		return err
	}

	if _, exists := l.seen[hash]; exists {
		return nil
	}

	l.seen[hash] = struct{}{}

	if l.mode == ModeAppend {
		if err := l.cl.SAdd(ctx, l.key, hash).Err(); err != nil {
			l.pending = append(l.pending, hash)

			return fmt.Errorf("cannot add hash %s: %w", hash, err)
		}

		return nil
	}

	l.pending = append(l.pending, hash)

	return nil
}

func (l *redisLedger) Flush(ctx context.Context) error {
	if len(l.pending) < 1 {
		return nil
	}

	pipe := l.cl.Pipeline()
	for start := 0; start < len(l.pending); start += flushChunk {
		end := min(start+flushChunk, len(l.pending))

		members := make([]any, 0, end-start)
		for _, hash := range l.pending[start:end] {
			members = append(members, hash)
		}
		pipe.SAdd(ctx, l.key, members...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("Cannot flush ledger", slog.Int("pending", len(l.pending)), slog.Any("error", err))

		return fmt.Errorf("cannot flush ledger: %w", err)
	}

	l.log.Info("Ledger flushed", slog.Int("hashes", len(l.pending)))
	l.pending = nil

	return nil
}

// Len counts persisted members plus hashes still waiting for Flush.
func (l *redisLedger) Len(ctx context.Context) (int, error) {
	n, err := l.cl.SCard(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("cannot count hashes: %w", err)
	}

	return int(n) + len(l.pending), nil
}

func (l *redisLedger) Location() string {
	return "redis:" + l.key
}
