package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/clipflow/api/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Upload Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.UploadJob) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO upload_jobs (user_id, group_id, video_path, caption, platform, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 RETURNING id`,
		job.UserID, job.GroupID, job.VideoPath, job.Caption, job.Platform, job.Status, job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*model.UploadJob, error) {
	var j model.UploadJob
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, group_id, video_path, caption, platform, status, error,
		        dispatched_at, started_at, completed_at, created_at, updated_at
		 FROM upload_jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.UserID, &j.GroupID, &j.VideoPath, &j.Caption, &j.Platform, &j.Status,
		&j.Error, &j.DispatchedAt, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *PostgresStore) ListJobsByUser(ctx context.Context, userID string) ([]*model.UploadJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, group_id, video_path, caption, platform, status, error,
		        dispatched_at, started_at, completed_at, created_at, updated_at
		 FROM upload_jobs WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.UploadJob
	for rows.Next() {
		var j model.UploadJob
		if err := rows.Scan(&j.ID, &j.UserID, &j.GroupID, &j.VideoPath, &j.Caption, &j.Platform,
			&j.Status, &j.Error, &j.DispatchedAt, &j.StartedAt, &j.CompletedAt,
			&j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

var validTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusPending:    {model.JobStatusDispatched, model.JobStatusCanceled},
	model.JobStatusDispatched: {model.JobStatusRunning, model.JobStatusPending, model.JobStatusFailed, model.JobStatusCanceled},
	model.JobStatusRunning:    {model.JobStatusSucceeded, model.JobStatusFailed},
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id int64, status model.JobStatus, opts ...JobUpdateOption) error {
	params := &JobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	// Fetch current status
	var currentStatus model.JobStatus
	err := s.pool.QueryRow(ctx, `SELECT status FROM upload_jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	// Validate transition
	valid := false
	for _, a := range validTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE upload_jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == model.JobStatusRunning {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status.IsTerminal() {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}

	query += " WHERE id = $1 AND status = " + fmt.Sprintf("$%d", argIdx)
	args = append(args, currentStatus)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost a race with a concurrent transition
		return ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) CancelJob(ctx context.Context, id int64, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE upload_jobs SET status = 'canceled', completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'dispatched')`, id, userID)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status model.JobStatus
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM upload_jobs WHERE id = $1 AND user_id = $2`, id, userID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("cancel job: %w", err)
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, model.JobStatusCanceled)
	}
	return nil
}

// --- Dispatch ---

func (s *PostgresStore) ClaimPendingJobs(ctx context.Context, limit int) ([]*model.DispatchedJob, error) {
	// SKIP LOCKED keeps concurrent dispatchers from double-claiming a job;
	// the status flip inside the same statement makes the claim atomic.
	rows, err := s.pool.Query(ctx,
		`WITH claimable AS (
		     SELECT j.id, gi.data->>'token' AS session_token
		     FROM upload_jobs j
		     JOIN group_items gi ON gi.group_id = j.group_id AND gi.type = j.platform
		     WHERE j.status = 'pending'
		     ORDER BY j.id
		     LIMIT $1
		     FOR UPDATE OF j SKIP LOCKED
		 )
		 UPDATE upload_jobs j
		 SET status = 'dispatched', dispatched_at = NOW(), updated_at = NOW()
		 FROM claimable c
		 WHERE j.id = c.id
		 RETURNING j.id, j.user_id, j.group_id, j.video_path, j.caption, j.platform, c.session_token`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.DispatchedJob
	for rows.Next() {
		var j model.DispatchedJob
		if err := rows.Scan(&j.ID, &j.UserID, &j.GroupID, &j.VideoPath, &j.Caption,
			&j.Platform, &j.SessionToken); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING from UPDATE..FROM has no defined order
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs, nil
}

func (s *PostgresStore) RequeueStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := s.pool.Exec(ctx,
		`UPDATE upload_jobs
		 SET status = 'pending', dispatched_at = NULL, updated_at = NOW()
		 WHERE status = 'dispatched' AND dispatched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("requeue stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CountStrandedJobs(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM upload_jobs j
		 WHERE j.status = 'pending'
		   AND NOT EXISTS (
		       SELECT 1 FROM group_items gi
		       WHERE gi.group_id = j.group_id AND gi.type = j.platform)`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stranded jobs: %w", err)
	}
	return count, nil
}

// --- Groups ---

func (s *PostgresStore) CreateGroup(ctx context.Context, group *model.Group) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO groups (user_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		group.UserID, group.Name, group.CreatedAt,
	).Scan(&group.ID)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, id int64) (*model.Group, error) {
	var g model.Group
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) UpsertGroupItem(ctx context.Context, item *model.GroupItem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO group_items (group_id, type, data, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (group_id, type) DO UPDATE SET
		   data = EXCLUDED.data,
		   updated_at = NOW()`,
		item.GroupID, item.Type, item.Data)
	if err != nil {
		return fmt.Errorf("upsert group item: %w", err)
	}
	return nil
}

// --- Ingested posts ---

func (s *PostgresStore) InsertPosts(ctx context.Context, posts []*model.IngestedPost) (int64, error) {
	var inserted int64
	for _, p := range posts {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO ingested_posts (id, subreddit, title, author, url, permalink, score, posted_at, scraped_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Subreddit, p.Title, p.Author, p.URL, p.Permalink, p.Score, p.PostedAt, p.ScrapedAt)
		if err != nil {
			return inserted, fmt.Errorf("insert post %s: %w", p.ID, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
