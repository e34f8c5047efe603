package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-attempt/internal/config"
	"github.com/stemsi/exstem-attempt/internal/model"
	"github.com/stemsi/exstem-attempt/internal/repository"
	"golang.org/x/sync/singleflight"
)

const snapshotLoadTimeout = 5 * time.Second

// TestReader reads test definitions.
type TestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
}

// QuestionReader reads the question set of a test.
type QuestionReader interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
}

// CatalogService serves test snapshots from redis and falls back to
// PostgreSQL on a miss. Concurrent misses for one test share a single load.
type CatalogService struct {
	tests     TestReader
	questions QuestionReader
	rdb       *redis.Client
	ttl       time.Duration
	group     singleflight.Group
	log       zerolog.Logger
}

// NewCatalogService creates a new CatalogService. A nil rdb disables caching.
func NewCatalogService(tests TestReader, questions QuestionReader, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		tests:     tests,
		questions: questions,
		rdb:       rdb,
		ttl:       ttl,
		log:       log.With().Str("component", "catalog_service").Logger(),
	}
}

// Snapshot returns the test and its ordered questions.
func (c *CatalogService) Snapshot(ctx context.Context, testID uuid.UUID) (*model.TestSnapshot, error) {
	key := config.CacheKey.TestSnapshotKey(testID.String())

	if snap, ok := c.cached(ctx, key); ok {
		return snap, nil
	}

	// The shared load must outlive any single caller, so it runs detached
	// from the first caller's cancellation under its own timeout.
	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotLoadTimeout)
		defer cancel()
		return c.load(loadCtx, testID, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.TestSnapshot), nil
	}
}

func (c *CatalogService) cached(ctx context.Context, key string) (*model.TestSnapshot, bool) {
	if c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Snapshot cache read failed")
		}
		return nil, false
	}

	var snap model.TestSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable snapshot")
		return nil, false
	}
	return &snap, true
}

func (c *CatalogService) load(ctx context.Context, testID uuid.UUID, key string) (*model.TestSnapshot, error) {
	test, err := c.tests.GetByID(ctx, testID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	questions, err := c.questions.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	snap := &model.TestSnapshot{Test: *test, Questions: questions}

	if c.rdb != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("Snapshot cache write failed")
			}
		}
	}
	return snap, nil
}
