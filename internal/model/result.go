package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/authz"
)

// Result is an output artifact attached to a trial (a processed video, a
// marker file, ...). It has no lifecycle of its own: results are hard-deleted.
// Visibility is inherited transitively from the trial's session.
type Result struct {
	ID        uuid.UUID `json:"id"`
	TrialID   uuid.UUID `json:"trial"`
	Tag       string    `json:"tag"`
	DeviceID  string    `json:"device_id"`
	MediaKey  string    `json:"media_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Effective values resolved through trial → session at load time.
	SessionOwnerID uuid.UUID       `json:"-"`
	SessionPublic  bool            `json:"-"`
	TrialLifecycle authz.Lifecycle `json:"-"`
}

// Snapshot returns the result's effective authorization view. A result is as
// gone as its trial: a trashed or deleted trial lifecycle carries over.
func (r *Result) Snapshot() authz.Resource {
	return authz.Resource{
		Type:      authz.ResourceResult,
		ID:        r.ID.String(),
		OwnerID:   r.SessionOwnerID.String(),
		Public:    r.SessionPublic,
		Lifecycle: r.TrialLifecycle,
	}
}

// CreateResultRequest is the payload for attaching a result to a trial.
type CreateResultRequest struct {
	TrialID  uuid.UUID `json:"trial" binding:"required"`
	Tag      string    `json:"tag" binding:"required,max=64"`
	DeviceID string    `json:"device_id" binding:"required,max=128"`
	MediaKey string    `json:"media_url" binding:"omitempty,max=1024"`
}

// UpdateResultRequest is the payload for PUT on a result.
type UpdateResultRequest struct {
	TrialID  uuid.UUID `json:"trial" binding:"required"`
	Tag      string    `json:"tag" binding:"required,max=64"`
	DeviceID string    `json:"device_id" binding:"required,max=128"`
	MediaKey string    `json:"media_url" binding:"omitempty,max=1024"`
}

// PatchResultRequest is the payload for PATCH on a result.
type PatchResultRequest struct {
	Tag      *string `json:"tag" binding:"omitempty,max=64"`
	DeviceID *string `json:"device_id" binding:"omitempty,max=128"`
	MediaKey *string `json:"media_url" binding:"omitempty,max=1024"`
}
