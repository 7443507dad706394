package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
)

const subjectColumns = `id, user_id, name, weight, height, birth_year, sex, gender,
	 characteristics, subject_tags, lifecycle, created_at, updated_at`

// SubjectRepository handles study participant data access.
type SubjectRepository struct {
	pool *pgxpool.Pool
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

func scanSubject(row interface{ Scan(...any) error }) (*model.Subject, error) {
	s := &model.Subject{}
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Weight, &s.Height, &s.BirthYear,
		&s.Sex, &s.Gender, &s.Characteristics, &s.Tags, &s.Lifecycle, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a subject regardless of lifecycle.
func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	return scanSubject(r.pool.QueryRow(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, id))
}

// ListOwned retrieves the requester's own active subjects. Subjects are
// never public, so a listing contains nothing else.
func (r *SubjectRepository) ListOwned(ctx context.Context, userID uuid.UUID) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subjectColumns+` FROM subjects
		 WHERE lifecycle = 'active' AND user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *s)
	}
	return subjects, rows.Err()
}

// Create inserts a new subject owned by the given user.
func (r *SubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO subjects (user_id, name, weight, height, birth_year, sex, gender, characteristics, subject_tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, lifecycle, created_at, updated_at`,
		s.UserID, s.Name, s.Weight, s.Height, s.BirthYear, s.Sex, s.Gender, s.Characteristics, s.Tags,
	).Scan(&s.ID, &s.Lifecycle, &s.CreatedAt, &s.UpdatedAt)
}

// Update rewrites a subject's mutable columns. Owner and lifecycle are never
// touched here.
func (r *SubjectRepository) Update(ctx context.Context, s *model.Subject) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subjects
		 SET name = $1, weight = $2, height = $3, birth_year = $4, sex = $5,
		     gender = $6, characteristics = $7, subject_tags = $8, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $9`,
		s.Name, s.Weight, s.Height, s.BirthYear, s.Sex, s.Gender, s.Characteristics, s.Tags, s.ID,
	)
	return err
}

// TransitionLifecycle applies a lifecycle transition with a compare-and-set.
// It reports false when the row was not in the expected state.
func (r *SubjectRepository) TransitionLifecycle(ctx context.Context, id uuid.UUID, from, to authz.Lifecycle) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subjects SET lifecycle = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND lifecycle = $3`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
