package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
)

// PostgresStore persists jobs in the research_jobs table. Results are stored
// as jsonb. Schema lives under migrations/.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing handle. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateJob(ctx context.Context, job Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_jobs (id, topic, status, created_at) VALUES ($1,$2,$3,$4)`,
		job.ID, job.Topic, job.Status, job.CreatedAt)
	return err
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (Job, error) {
	var (
		job        Job
		jobErr     sql.NullString
		result     []byte
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, status, error, result, created_at, started_at, finished_at
		 FROM research_jobs WHERE id=$1`, id).
		Scan(&job.ID, &job.Topic, &job.Status, &jobErr, &result, &job.CreatedAt, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.Error = jobErr.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	if len(result) > 0 {
		var r research.Result
		if err := json.Unmarshal(result, &r); err != nil {
			return Job{}, fmt.Errorf("unmarshal result for job %s: %w", id, err)
		}
		job.Result = &r
	}
	return job, nil
}

func (s *PostgresStore) SetRunning(ctx context.Context, id string, startedAt time.Time) error {
	return s.exec(ctx,
		`UPDATE research_jobs SET status=$2, started_at=$3 WHERE id=$1`,
		id, StatusRunning, startedAt)
}

func (s *PostgresStore) Complete(ctx context.Context, id string, result research.Result, finishedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.exec(ctx,
		`UPDATE research_jobs SET status=$2, result=$3, finished_at=$4 WHERE id=$1`,
		id, StatusCompleted, payload, finishedAt)
}

func (s *PostgresStore) Fail(ctx context.Context, id string, jobErr string, finishedAt time.Time) error {
	return s.exec(ctx,
		`UPDATE research_jobs SET status=$2, error=$3, finished_at=$4 WHERE id=$1`,
		id, StatusFailed, jobErr, finishedAt)
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	return s.exec(ctx, `DELETE FROM research_jobs WHERE id=$1`, id)
}

func (s *PostgresStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM research_jobs
		 WHERE status IN ($1,$2) AND finished_at < $3
		 RETURNING id`,
		StatusCompleted, StatusFailed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var removed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}
	return removed, rows.Err()
}

func (s *PostgresStore) GetCounts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status IN ($1,$2)),
		   COUNT(*) FILTER (WHERE status = $3)
		 FROM research_jobs`,
		StatusPending, StatusRunning, StatusCompleted).
		Scan(&c.Active, &c.Results)
	return c, err
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// exec runs a statement that must touch exactly one row.
func (s *PostgresStore) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
