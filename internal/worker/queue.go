package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// batcher drains one redis list and hands the items to flush in batches,
// cut by size or by age, whichever comes first.
type batcher struct {
	rdb   *redis.Client
	queue string
	log   zerolog.Logger
}

func (b *batcher) run(ctx context.Context, flush func(ctx context.Context, items []string)) {
	buffer := make([]string, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			b.shutdown(buffer, flush)
			return
		default:
		}

		result, err := b.rdb.BLPop(ctx, PollTimeout, b.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}
		buffer = append(buffer, result[1])
	}
}

// requeue pushes items back for a later batch.
func (b *batcher) requeue(ctx context.Context, items []string) {
	if len(items) == 0 {
		return
	}
	args := make([]any, len(items))
	for i, item := range items {
		args[i] = item
	}
	if err := b.rdb.RPush(ctx, b.queue, args...).Err(); err != nil {
		b.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	b.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	sleep(ctx, 2*time.Second)
}

func (b *batcher) shutdown(buffer []string, flush func(ctx context.Context, items []string)) {
	b.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		flush(shutdownCtx, buffer)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
