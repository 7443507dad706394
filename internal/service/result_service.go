package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/repository"
)

// ResultService orchestrates result artifacts.
type ResultService struct {
	results *repository.ResultRepository
	media   *MediaService
}

// NewResultService creates a new ResultService.
func NewResultService(results *repository.ResultRepository, media *MediaService) *ResultService {
	return &ResultService{results: results, media: media}
}

// GetByID retrieves a result by ID.
func (s *ResultService) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	return s.results.GetByID(ctx, id)
}

// ListVisible lists results the requester may see, optionally narrowed to
// one trial.
func (s *ResultService) ListVisible(ctx context.Context, userID uuid.UUID, trialID *uuid.UUID) ([]model.Result, error) {
	return s.results.ListVisible(ctx, userID, trialID)
}

// ListBySession lists every result under a session's active trials. The
// caller must have authorized the session first.
func (s *ResultService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Result, error) {
	return s.results.ListBySession(ctx, sessionID)
}

// ListByTrial lists every result under a trial. The caller must have
// authorized the trial first.
func (s *ResultService) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]model.Result, error) {
	return s.results.ListByTrial(ctx, trialID)
}

// ListBySubject lists every result recorded for a subject. The caller must
// have authorized the subject first.
func (s *ResultService) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Result, error) {
	return s.results.ListBySubject(ctx, subjectID)
}

// Create attaches a new result to a trial.
func (s *ResultService) Create(ctx context.Context, req *model.CreateResultRequest) (*model.Result, error) {
	res := &model.Result{
		TrialID:  req.TrialID,
		Tag:      req.Tag,
		DeviceID: req.DeviceID,
		MediaKey: req.MediaKey,
	}
	if err := s.results.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Update applies a full update to a result.
func (s *ResultService) Update(ctx context.Context, res *model.Result, req *model.UpdateResultRequest) error {
	res.TrialID = req.TrialID
	res.Tag = req.Tag
	res.DeviceID = req.DeviceID
	res.MediaKey = req.MediaKey
	return s.results.Update(ctx, res)
}

// Patch applies a partial update to a result, leaving nil fields untouched.
func (s *ResultService) Patch(ctx context.Context, res *model.Result, req *model.PatchResultRequest) error {
	if req.Tag != nil {
		res.Tag = *req.Tag
	}
	if req.DeviceID != nil {
		res.DeviceID = *req.DeviceID
	}
	if req.MediaKey != nil {
		res.MediaKey = *req.MediaKey
	}
	return s.results.Update(ctx, res)
}

// Delete removes a result permanently.
func (s *ResultService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.results.Delete(ctx, id)
}

// SignedMediaURL presigns a result's media object for download.
func (s *ResultService) SignedMediaURL(ctx context.Context, res *model.Result) (string, error) {
	if res.MediaKey == "" {
		return "", nil
	}
	return s.media.PresignGet(ctx, res.MediaKey)
}
