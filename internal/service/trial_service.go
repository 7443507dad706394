package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/repository"
)

// ErrQueueEmpty signals that no trial is waiting for processing.
var ErrQueueEmpty = errors.New("processing queue is empty")

// TrialService orchestrates trials and the processing queue.
type TrialService struct {
	trials *repository.TrialRepository
}

// NewTrialService creates a new TrialService.
func NewTrialService(trials *repository.TrialRepository) *TrialService {
	return &TrialService{trials: trials}
}

// GetByID retrieves a trial by ID.
func (s *TrialService) GetByID(ctx context.Context, id uuid.UUID) (*model.Trial, error) {
	return s.trials.GetByID(ctx, id)
}

// ListVisible lists trials the requester may see, optionally narrowed to one
// session.
func (s *TrialService) ListVisible(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID) ([]model.Trial, error) {
	return s.trials.ListVisible(ctx, userID, sessionID)
}

// ListByStatus lists all trials in a processing status across sessions.
func (s *TrialService) ListByStatus(ctx context.Context, status string) ([]model.Trial, error) {
	return s.trials.ListByStatus(ctx, status)
}

// Update applies a full update to a trial.
func (s *TrialService) Update(ctx context.Context, trial *model.Trial, req *model.UpdateTrialRequest) error {
	trial.Name = req.Name
	if req.Status != "" {
		trial.Status = req.Status
	}
	return s.trials.Update(ctx, trial)
}

// Patch applies a partial update to a trial, leaving nil fields untouched.
func (s *TrialService) Patch(ctx context.Context, trial *model.Trial, req *model.PatchTrialRequest) error {
	if req.Name != nil {
		trial.Name = *req.Name
	}
	if req.Status != nil {
		trial.Status = *req.Status
	}
	return s.trials.Update(ctx, trial)
}

// Rename changes a trial's name.
func (s *TrialService) Rename(ctx context.Context, id uuid.UUID, name string) error {
	return s.trials.Rename(ctx, id, name)
}

// ModifyTags replaces a trial's tag set.
func (s *TrialService) ModifyTags(ctx context.Context, id uuid.UUID, tags []string) error {
	return s.trials.SetTags(ctx, id, tags)
}

// Transition applies a lifecycle action to a trial with a compare-and-set
// against the snapshot the caller authorized.
func (s *TrialService) Transition(ctx context.Context, trial *model.Trial, action authz.Action) error {
	next, err := trial.Lifecycle.Next(action)
	if err != nil {
		return err
	}
	ok, err := s.trials.TransitionLifecycle(ctx, trial.ID, trial.Lifecycle, next)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleLifecycle
	}
	trial.Lifecycle = next
	return nil
}

// Dequeue claims the oldest trial waiting for processing for a pipeline
// worker. Returns ErrQueueEmpty when nothing is waiting.
func (s *TrialService) Dequeue(ctx context.Context) (*model.Trial, error) {
	trial, err := s.trials.DequeueNext(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}
	return trial, nil
}
