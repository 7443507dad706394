package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
)

const sessionColumns = `id, user_id, name, public, server, status, qrcode_key, subject_id, meta, lifecycle, created_at, updated_at`

// SessionRepository handles capture session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Public, &s.Server, &s.Status,
		&s.QRCodeKey, &s.SubjectID, &s.Meta, &s.Lifecycle, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a session regardless of lifecycle. Visibility decisions
// belong to the caller, not the storage layer.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

// ListVisible retrieves active sessions the requester may see in a listing:
// their own plus public ones. Elevated roles get no extra rows here.
func (r *SessionRepository) ListVisible(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE lifecycle = 'active' AND (public OR user_id = $1)`,
		userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE lifecycle = 'active' AND (public OR user_id = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, rows.Err()
}

// Search retrieves the requester's own active sessions matching a name
// fragment. Public sessions of other users are deliberately excluded.
func (r *SessionRepository) Search(ctx context.Context, userID uuid.UUID, query string) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE lifecycle = 'active' AND user_id = $1 AND name ILIKE '%' || $2 || '%'
		 ORDER BY created_at DESC`,
		userID, query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListValid retrieves the requester's own active sessions that finished a
// neutral recording, which is what makes a session usable downstream.
func (r *SessionRepository) ListValid(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions s
		 WHERE s.lifecycle = 'active' AND s.user_id = $1
		   AND EXISTS (
		         SELECT 1 FROM trials t
		         WHERE t.session_id = s.id AND t.lifecycle = 'active'
		           AND t.name = 'neutral' AND t.status = 'done')
		 ORDER BY s.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListOwnedByStatus retrieves the requester's own active sessions in a given
// processing status.
func (r *SessionRepository) ListOwnedByStatus(ctx context.Context, userID uuid.UUID, status string) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE lifecycle = 'active' AND user_id = $1 AND status = $2
		 ORDER BY created_at DESC`,
		userID, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Create inserts a new session owned by the given user.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, name, public, server, status, qrcode_key, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, lifecycle, created_at, updated_at`,
		s.UserID, s.Name, s.Public, s.Server, s.Status, s.QRCodeKey, s.Meta,
	).Scan(&s.ID, &s.Lifecycle, &s.CreatedAt, &s.UpdatedAt)
}

// Update rewrites a session's mutable columns. Owner and lifecycle are never
// touched here.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET name = $1, public = $2, server = $3, status = $4, subject_id = $5,
		     meta = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		s.Name, s.Public, s.Server, s.Status, s.SubjectID, s.Meta, s.ID,
	)
	return err
}

// Rename changes only a session's name.
func (r *SessionRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		name, id,
	)
	return err
}

// SetStatus changes only a session's processing status.
func (r *SessionRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	return err
}

// SetSubject attaches a subject record to a session.
func (r *SessionRepository) SetSubject(ctx context.Context, id, subjectID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET subject_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		subjectID, id,
	)
	return err
}

// SetMeta replaces a session's metadata document.
func (r *SessionRepository) SetMeta(ctx context.Context, id uuid.UUID, meta map[string]string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET meta = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		meta, id,
	)
	return err
}

// GetCalibration retrieves the stored camera calibration document, which may
// be empty when no calibration has been posted yet.
func (r *SessionRepository) GetCalibration(ctx context.Context, id uuid.UUID) (string, error) {
	var data *string
	err := r.pool.QueryRow(ctx,
		`SELECT calibration FROM sessions WHERE id = $1`, id,
	).Scan(&data)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}
	return *data, nil
}

// SetCalibration stores the camera calibration document for a session.
func (r *SessionRepository) SetCalibration(ctx context.Context, id uuid.UUID, data string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET calibration = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		data, id,
	)
	return err
}

// TransitionLifecycle applies a lifecycle transition with a compare-and-set.
// It reports false when the row was not in the expected state, meaning a
// concurrent transition won.
func (r *SessionRepository) TransitionLifecycle(ctx context.Context, id uuid.UUID, from, to authz.Lifecycle) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET lifecycle = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND lifecycle = $3`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
