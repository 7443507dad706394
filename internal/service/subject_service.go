package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/repository"
)

// SubjectService orchestrates study participant records.
type SubjectService struct {
	subjects *repository.SubjectRepository
}

// NewSubjectService creates a new SubjectService.
func NewSubjectService(subjects *repository.SubjectRepository) *SubjectService {
	return &SubjectService{subjects: subjects}
}

// GetByID retrieves a subject by ID.
func (s *SubjectService) GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	return s.subjects.GetByID(ctx, id)
}

// ListOwned lists the requester's own subjects.
func (s *SubjectService) ListOwned(ctx context.Context, userID uuid.UUID) ([]model.Subject, error) {
	return s.subjects.ListOwned(ctx, userID)
}

// Create inserts a new subject owned by the given user.
func (s *SubjectService) Create(ctx context.Context, userID uuid.UUID, req *model.CreateSubjectRequest) (*model.Subject, error) {
	subj := &model.Subject{
		UserID:          userID,
		Name:            req.Name,
		Weight:          req.Weight,
		Height:          req.Height,
		BirthYear:       req.BirthYear,
		Sex:             req.Sex,
		Gender:          req.Gender,
		Characteristics: req.Characteristics,
		Tags:            req.Tags,
	}
	if err := s.subjects.Create(ctx, subj); err != nil {
		return nil, err
	}
	return subj, nil
}

// Update applies a full update to a subject.
func (s *SubjectService) Update(ctx context.Context, subj *model.Subject, req *model.UpdateSubjectRequest) error {
	subj.Name = req.Name
	subj.Weight = req.Weight
	subj.Height = req.Height
	subj.BirthYear = req.BirthYear
	subj.Sex = req.Sex
	subj.Gender = req.Gender
	subj.Characteristics = req.Characteristics
	subj.Tags = req.Tags
	return s.subjects.Update(ctx, subj)
}

// Patch applies a partial update to a subject, leaving nil fields untouched.
func (s *SubjectService) Patch(ctx context.Context, subj *model.Subject, req *model.PatchSubjectRequest) error {
	if req.Name != nil {
		subj.Name = *req.Name
	}
	if req.Weight != nil {
		subj.Weight = *req.Weight
	}
	if req.Height != nil {
		subj.Height = *req.Height
	}
	if req.BirthYear != nil {
		subj.BirthYear = *req.BirthYear
	}
	if req.Sex != nil {
		subj.Sex = *req.Sex
	}
	if req.Gender != nil {
		subj.Gender = *req.Gender
	}
	if req.Characteristics != nil {
		subj.Characteristics = *req.Characteristics
	}
	if req.Tags != nil {
		subj.Tags = req.Tags
	}
	return s.subjects.Update(ctx, subj)
}

// Transition applies a lifecycle action to a subject with a compare-and-set
// against the snapshot the caller authorized.
func (s *SubjectService) Transition(ctx context.Context, subj *model.Subject, action authz.Action) error {
	next, err := subj.Lifecycle.Next(action)
	if err != nil {
		return err
	}
	ok, err := s.subjects.TransitionLifecycle(ctx, subj.ID, subj.Lifecycle, next)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleLifecycle
	}
	subj.Lifecycle = next
	return nil
}
