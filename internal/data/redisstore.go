package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/lessonforge/videogen/internal/domain/model"
)

const (
	redisJobKeyPrefix = "videogen:job:"
	redisJobIndexKey  = "videogen:jobs"

	// redisUpdateRetries bounds optimistic retries when a WATCH is broken
	// by a concurrent writer to the same job.
	redisUpdateRetries = 16
)

// RedisStore is a JobStore on Redis, shared across service replicas. Each
// job is one JSON value; the read-modify-write contract is realized with
// WATCH-based optimistic transactions.
type RedisStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisStore creates a RedisStore on a connected client.
func NewRedisStore(client redis.UniversalClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func redisJobKey(id string) string { return redisJobKeyPrefix + id }

// Create stores a new job record.
func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	set, err := s.client.SetNX(ctx, redisJobKey(job.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx job: %w", err)
	}
	if !set {
		return ErrJobExists
	}

	if err = s.client.SAdd(ctx, redisJobIndexKey, job.ID).Err(); err != nil {
		return fmt.Errorf("redis index job: %w", err)
	}
	return nil
}

// Get returns a snapshot of the job.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Job, error) {
	raw, err := s.client.Get(ctx, redisJobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get job: %w", err)
	}
	return unmarshalJob(raw)
}

// Update applies fn under an optimistic WATCH transaction, retrying when a
// concurrent writer invalidates the watched key.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	key := redisJobKey(id)

	var updated *model.Job
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get job: %w", err)
		}

		job, err := unmarshalJob(raw)
		if err != nil {
			return err
		}
		if err = fn(job); err != nil {
			return err
		}

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		updated = job

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for range redisUpdateRetries {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated.Clone(), nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("redis update job %s: too much contention", id)
}

// List returns snapshots of all jobs.
func (s *RedisStore) List(ctx context.Context) ([]*model.Job, error) {
	ids, err := s.client.SMembers(ctx, redisJobIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list jobs: %w", err)
	}

	jobs := make([]*model.Job, 0, len(ids))
	for _, id := range ids {
		job, getErr := s.Get(ctx, id)
		if errors.Is(getErr, ErrJobNotFound) {
			// Index entry outlived its record; skip it.
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Delete removes a job record.
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.client.Del(ctx, redisJobKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete job: %w", err)
	}
	if err = s.client.SRem(ctx, redisJobIndexKey, id).Err(); err != nil {
		return false, fmt.Errorf("redis deindex job: %w", err)
	}
	return deleted > 0, nil
}

func unmarshalJob(raw []byte) (*model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}
