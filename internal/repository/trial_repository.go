package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
)

// trialColumns selects trial rows joined with the parent session so the
// effective owner and visibility come back in the same round trip.
const trialColumns = `t.id, t.session_id, t.name, t.status, t.tags, t.meta, t.lifecycle,
	 t.created_at, t.updated_at, s.user_id, s.public`

// TrialRepository handles trial data access. Every read resolves the parent
// session's owner and public flag alongside the trial row.
type TrialRepository struct {
	pool *pgxpool.Pool
}

// NewTrialRepository creates a new TrialRepository.
func NewTrialRepository(pool *pgxpool.Pool) *TrialRepository {
	return &TrialRepository{pool: pool}
}

func scanTrial(row interface{ Scan(...any) error }) (*model.Trial, error) {
	t := &model.Trial{}
	err := row.Scan(&t.ID, &t.SessionID, &t.Name, &t.Status, &t.Tags, &t.Meta,
		&t.Lifecycle, &t.CreatedAt, &t.UpdatedAt, &t.SessionOwnerID, &t.SessionPublic)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a trial regardless of lifecycle, with inherited
// ownership resolved.
func (r *TrialRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Trial, error) {
	return scanTrial(r.pool.QueryRow(ctx,
		`SELECT `+trialColumns+` FROM trials t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.id = $1`, id))
}

// ListVisible retrieves active trials the requester may see in a listing:
// those in their own sessions plus those in public ones. An optional session
// ID narrows the listing to one session.
func (r *TrialRepository) ListVisible(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID) ([]model.Trial, error) {
	query := `SELECT ` + trialColumns + ` FROM trials t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.lifecycle = 'active' AND s.lifecycle = 'active'
		   AND (s.public OR s.user_id = $1)`
	args := []any{userID}
	if sessionID != nil {
		query += ` AND t.session_id = $2`
		args = append(args, *sessionID)
	}
	query += ` ORDER BY t.created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []model.Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, *t)
	}
	return trials, rows.Err()
}

// ListByStatus retrieves all active trials in a given processing status,
// across every session. Used by the processing pipeline, not end users.
func (r *TrialRepository) ListByStatus(ctx context.Context, status string) ([]model.Trial, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+trialColumns+` FROM trials t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.lifecycle = 'active' AND t.status = $1
		 ORDER BY t.updated_at`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trials []model.Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, *t)
	}
	return trials, rows.Err()
}

// LatestBySessionWithStatus retrieves the most recent active trial of a
// session whose status is one of the given values. Returns pgx.ErrNoRows
// when none matches.
func (r *TrialRepository) LatestBySessionWithStatus(ctx context.Context, sessionID uuid.UUID, statuses []string) (*model.Trial, error) {
	return scanTrial(r.pool.QueryRow(ctx,
		`SELECT `+trialColumns+` FROM trials t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.session_id = $1 AND t.lifecycle = 'active' AND t.status = ANY($2)
		 ORDER BY t.created_at DESC
		 LIMIT 1`,
		sessionID, statuses))
}

// Create inserts a new trial under a session.
func (r *TrialRepository) Create(ctx context.Context, t *model.Trial) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO trials (session_id, name, status, tags, meta)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, lifecycle, created_at, updated_at`,
		t.SessionID, t.Name, t.Status, t.Tags, t.Meta,
	).Scan(&t.ID, &t.Lifecycle, &t.CreatedAt, &t.UpdatedAt)
}

// Update rewrites a trial's mutable columns.
func (r *TrialRepository) Update(ctx context.Context, t *model.Trial) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trials
		 SET name = $1, status = $2, tags = $3, meta = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		t.Name, t.Status, t.Tags, t.Meta, t.ID,
	)
	return err
}

// Rename changes only a trial's name.
func (r *TrialRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trials SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		name, id,
	)
	return err
}

// SetTags replaces a trial's tag set.
func (r *TrialRepository) SetTags(ctx context.Context, id uuid.UUID, tags []string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trials SET tags = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		tags, id,
	)
	return err
}

// SetStatus changes only a trial's processing status.
func (r *TrialRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trials SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	return err
}

// DequeueNext atomically claims the oldest trial waiting for processing and
// moves it to 'processing'. SKIP LOCKED keeps concurrent pipeline workers
// from claiming the same trial. Returns pgx.ErrNoRows when the queue is
// empty.
func (r *TrialRepository) DequeueNext(ctx context.Context) (*model.Trial, error) {
	return scanTrial(r.pool.QueryRow(ctx,
		`WITH next AS (
		    SELECT id FROM trials
		    WHERE lifecycle = 'active' AND status IN ($1, $2)
		    ORDER BY updated_at
		    LIMIT 1
		    FOR UPDATE SKIP LOCKED
		 )
		 UPDATE trials t
		 SET status = $3, updated_at = CURRENT_TIMESTAMP
		 FROM next, sessions s
		 WHERE t.id = next.id AND s.id = t.session_id
		 RETURNING `+trialColumns,
		model.TrialStatusStopped, model.TrialStatusReprocess, model.TrialStatusProcessing))
}

// TransitionLifecycle applies a lifecycle transition with a compare-and-set.
// It reports false when the row was not in the expected state.
func (r *TrialRepository) TransitionLifecycle(ctx context.Context, id uuid.UUID, from, to authz.Lifecycle) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trials SET lifecycle = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND lifecycle = $3`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
