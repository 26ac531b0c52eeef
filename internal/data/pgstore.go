package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// PGStore is a durable JobStore backed by PostgreSQL via the pgx stdlib
// driver. The read-modify-write contract is realized with SELECT ... FOR
// UPDATE inside a transaction, so concurrent log appends and status writes
// against the same job serialize on the row lock.
type PGStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPGStore creates a PGStore on an open database handle.
func NewPGStore(db *sql.DB, logger *slog.Logger) *PGStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{db: db, logger: logger}
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS jobs (
  id            text PRIMARY KEY,
  status        text NOT NULL,
  submission    jsonb NOT NULL,
  attempt_count int NOT NULL DEFAULT 0,
  result        text,
  error_summary text,
  created_at    timestamptz NOT NULL,
  updated_at    timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS job_logs (
  job_id  text NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  seq     int NOT NULL,
  at      timestamptz NOT NULL,
  message text NOT NULL,
  PRIMARY KEY (job_id, seq)
);
`

// Migrate applies the store schema. Idempotent.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("apply job store schema: %w", err)
	}
	s.logger.InfoContext(ctx, "job store schema applied")
	return nil
}

const jobColumns = `id, status, submission, attempt_count, result, error_summary, created_at, updated_at`

// Create stores a new job record.
func (s *PGStore) Create(ctx context.Context, job *model.Job) error {
	submission, err := json.Marshal(job.Submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, job.ID, job.Status, submission, job.AttemptCount, job.Result, job.ErrorSummary, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrJobExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get returns a snapshot of the job.
func (s *PGStore) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	logs, err := s.loadLogs(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	job.Logs = logs
	return job, nil
}

// Update applies fn to the job inside a transaction holding the row lock.
func (s *PGStore) Update(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.ErrorContext(ctx, "rollback job update", "job_id", id, "error", rbErr)
		}
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	logs, err := s.loadLogs(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	job.Logs = logs
	prevLogLen := len(job.Logs)

	if err = fn(job); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, attempt_count = $3, result = $4, error_summary = $5, updated_at = $6
		WHERE id = $1
	`, id, job.Status, job.AttemptCount, job.Result, job.ErrorSummary, job.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	// Logs are append-only, so only entries past the previous length are new.
	for seq := prevLogLen; seq < len(job.Logs); seq++ {
		entry := job.Logs[seq]
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO job_logs (job_id, seq, at, message) VALUES ($1, $2, $3, $4)
		`, id, seq, entry.At, entry.Message); err != nil {
			return nil, fmt.Errorf("append job log: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job update: %w", err)
	}
	return job.Clone(), nil
}

// List returns snapshots of all jobs, logs included.
func (s *PGStore) List(ctx context.Context) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	for _, job := range jobs {
		logs, logErr := s.loadLogs(ctx, s.db, job.ID)
		if logErr != nil {
			return nil, logErr
		}
		job.Logs = logs
	}
	return jobs, nil
}

// Delete removes a job record and its logs.
func (s *PGStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete job rows affected: %w", err)
	}
	return n > 0, nil
}

// queryer is the subset of *sql.DB / *sql.Tx used by log loading.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PGStore) loadLogs(ctx context.Context, q queryer, jobID string) ([]model.LogEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT at, message FROM job_logs WHERE job_id = $1 ORDER BY seq
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var logs []model.LogEntry
	for rows.Next() {
		var entry model.LogEntry
		if err = rows.Scan(&entry.At, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("load job logs: %w", err)
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job        model.Job
		submission []byte
		result     sql.NullString
		summary    sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(&job.ID, &job.Status, &submission, &job.AttemptCount, &result, &summary, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err = json.Unmarshal(submission, &job.Submission); err != nil {
		return nil, fmt.Errorf("unmarshal submission: %w", err)
	}
	if result.Valid {
		job.Result = &result.String
	}
	if summary.Valid {
		job.ErrorSummary = &summary.String
	}
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	return &job, nil
}
