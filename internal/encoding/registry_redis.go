package encoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	jobKeyPrefix = "encode:job:"
	// jobSafetyTTL bounds the life of jobs whose runner died before scheduling deletion.
	jobSafetyTTL    = 24 * time.Hour
	maxPatchRetries = 16
)

// RedisRegistry shares jobs between the API and worker processes.
// Each job is one JSON string; patches use WATCH/MULTI so concurrent writers
// never interleave partial merges.
type RedisRegistry struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisRegistry creates a registry on client.
func NewRedisRegistry(client *redis.Client, logger *zap.Logger) *RedisRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRegistry{client: client, logger: logger, now: time.Now}
}

func jobKey(id string) string { return jobKeyPrefix + id }

func (r *RedisRegistry) Create(ctx context.Context, id string) (Job, error) {
	job := newJob(id, r.now())
	raw, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("marshal job: %w", err)
	}
	ok, err := r.client.SetNX(ctx, jobKey(id), raw, jobSafetyTTL).Result()
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	if !ok {
		return Job{}, ErrJobExists
	}
	return job, nil
}

func (r *RedisRegistry) Patch(ctx context.Context, id string, p Patch) error {
	key := jobKey(id)
	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}
		if !apply(&job, p, r.now()) {
			return nil
		}
		out, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxPatchRetries; attempt++ {
		err := r.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("patch job: %w", err)
		}
		return nil
	}
	r.logger.Warn("job patch abandoned after contention", zap.String("job_id", id))
	return fmt.Errorf("patch job %s: too much contention", id)
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (Job, error) {
	raw, err := r.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (r *RedisRegistry) ScheduleDeletion(ctx context.Context, id string, delay time.Duration) error {
	if delay <= 0 {
		if err := r.client.Del(ctx, jobKey(id)).Err(); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		return nil
	}
	if err := r.client.Expire(ctx, jobKey(id), delay).Err(); err != nil {
		return fmt.Errorf("expire job: %w", err)
	}
	return nil
}
