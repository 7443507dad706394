package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motionlab/capserver/internal/model"
)

// resultColumns selects result rows joined through the trial to the session,
// resolving inherited ownership and the trial's lifecycle in one round trip.
const resultColumns = `r.id, r.trial_id, r.tag, r.device_id, r.media_key,
	 r.created_at, r.updated_at, s.user_id, s.public, t.lifecycle`

// ResultRepository handles result artifact data access. Results are
// hard-deleted and carry no lifecycle of their own.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func scanResult(row interface{ Scan(...any) error }) (*model.Result, error) {
	res := &model.Result{}
	err := row.Scan(&res.ID, &res.TrialID, &res.Tag, &res.DeviceID, &res.MediaKey,
		&res.CreatedAt, &res.UpdatedAt, &res.SessionOwnerID, &res.SessionPublic, &res.TrialLifecycle)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetByID retrieves a result with inherited ownership and the parent
// trial's lifecycle resolved.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN trials t ON t.id = r.trial_id
		 JOIN sessions s ON s.id = t.session_id
		 WHERE r.id = $1`, id))
}

// ListVisible retrieves results the requester may see in a listing: those
// under their own sessions plus those under public ones, skipping trashed
// and deleted ancestors. An optional trial ID narrows the listing.
func (r *ResultRepository) ListVisible(ctx context.Context, userID uuid.UUID, trialID *uuid.UUID) ([]model.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results r
		 JOIN trials t ON t.id = r.trial_id
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.lifecycle = 'active' AND s.lifecycle = 'active'
		   AND (s.public OR s.user_id = $1)`
	args := []any{userID}
	if trialID != nil {
		query += ` AND r.trial_id = $2`
		args = append(args, *trialID)
	}
	query += ` ORDER BY r.created_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// ListByTrial retrieves every result under a trial, without visibility
// filtering. Used by archive building after the parent was authorized.
func (r *ResultRepository) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN trials t ON t.id = r.trial_id
		 JOIN sessions s ON s.id = t.session_id
		 WHERE r.trial_id = $1
		 ORDER BY r.created_at`,
		trialID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// ListBySession retrieves every result under every active trial of a
// session. Used by archive building after the session was authorized.
func (r *ResultRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN trials t ON t.id = r.trial_id
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.session_id = $1 AND t.lifecycle = 'active'
		 ORDER BY t.created_at, r.created_at`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// ListBySubject retrieves every result recorded for a subject, across all
// sessions the subject was attached to. Used by archive building after the
// subject was authorized.
func (r *ResultRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN trials t ON t.id = r.trial_id
		 JOIN sessions s ON s.id = t.session_id
		 WHERE s.subject_id = $1 AND t.lifecycle = 'active'
		 ORDER BY t.created_at, r.created_at`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// Create inserts a new result under a trial.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO results (trial_id, tag, device_id, media_key)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		res.TrialID, res.Tag, res.DeviceID, res.MediaKey,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
}

// Update rewrites a result's mutable columns.
func (r *ResultRepository) Update(ctx context.Context, res *model.Result) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE results
		 SET trial_id = $1, tag = $2, device_id = $3, media_key = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		res.TrialID, res.Tag, res.DeviceID, res.MediaKey, res.ID,
	)
	return err
}

// Delete removes a result permanently.
func (r *ResultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM results WHERE id = $1`, id)
	return err
}
