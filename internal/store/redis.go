package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
)

const (
	jobKeyPrefix = "research:job:"
	jobIndexKey  = "research:jobs"

	maxUpdateRetries = 5
)

// RedisStore persists jobs as JSON values with a set tracking live ids.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(id string) string { return jobKeyPrefix + id }

func (s *RedisStore) CreateJob(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, jobKey(job.ID), payload, 0)
		p.SAdd(ctx, jobIndexKey, job.ID)
		return nil
	})
	return err
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (Job, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return job, nil
}

func (s *RedisStore) SetRunning(ctx context.Context, id string, startedAt time.Time) error {
	return s.update(ctx, id, func(job *Job) {
		job.Status = StatusRunning
		job.StartedAt = &startedAt
	})
}

func (s *RedisStore) Complete(ctx context.Context, id string, result research.Result, finishedAt time.Time) error {
	return s.update(ctx, id, func(job *Job) {
		job.Status = StatusCompleted
		job.Result = &result
		job.FinishedAt = &finishedAt
	})
}

func (s *RedisStore) Fail(ctx context.Context, id string, jobErr string, finishedAt time.Time) error {
	return s.update(ctx, id, func(job *Job) {
		job.Status = StatusFailed
		job.Error = jobErr
		job.FinishedAt = &finishedAt
	})
}

// DeleteJob removes the job value and its index entry. DEL reports how many
// keys went away, which distinguishes a repeat delete from the first one.
func (s *RedisStore) DeleteJob(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, jobKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return s.client.SRem(ctx, jobIndexKey, id).Err()
}

func (s *RedisStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.client.SMembers(ctx, jobIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = s.client.SRem(ctx, jobIndexKey, id).Err()
			continue
		}
		if err != nil {
			return removed, err
		}
		if job.Finished() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			if err := s.DeleteJob(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				return removed, err
			}
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func (s *RedisStore) GetCounts(ctx context.Context) (Counts, error) {
	ids, err := s.client.SMembers(ctx, jobIndexKey).Result()
	if err != nil {
		return Counts{}, err
	}
	var c Counts
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Counts{}, err
		}
		switch job.Status {
		case StatusPending, StatusRunning:
			c.Active++
		case StatusCompleted:
			c.Results++
		}
	}
	return c, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

// update rewrites a job under WATCH so the write cannot recreate a key that
// a concurrent DeleteJob removed between the read and the SET.
func (s *RedisStore) update(ctx context.Context, id string, apply func(*Job)) error {
	key := jobKey(id)
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var job Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("unmarshal job %s: %w", id, err)
		}
		apply(&job)
		payload, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update job %s: %w", id, redis.TxFailedErr)
}
