package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/authz"
)

// Trial processing statuses. Status is free-form at the storage level; these
// are the values the pipeline actually produces.
const (
	TrialStatusRecording  = "recording"
	TrialStatusUploading  = "uploading"
	TrialStatusStopped    = "stopped"
	TrialStatusProcessing = "processing"
	TrialStatusReprocess  = "reprocess"
	TrialStatusDone       = "done"
	TrialStatusError      = "error"
)

// Trial is a single recording inside a session. It has no owner or public
// flag of its own: both are inherited from the parent session. Its lifecycle
// is independent of the parent's.
type Trial struct {
	ID        uuid.UUID         `json:"id"`
	SessionID uuid.UUID         `json:"session"`
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	Tags      []string          `json:"tags,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Lifecycle authz.Lifecycle   `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Effective values resolved from the parent session at load time.
	SessionOwnerID uuid.UUID `json:"-"`
	SessionPublic  bool      `json:"-"`
}

// Snapshot returns the trial's effective authorization view: owner and public
// come from the parent session, lifecycle is the trial's own.
func (t *Trial) Snapshot() authz.Resource {
	return authz.Resource{
		Type:      authz.ResourceTrial,
		ID:        t.ID.String(),
		OwnerID:   t.SessionOwnerID.String(),
		Public:    t.SessionPublic,
		Lifecycle: t.Lifecycle,
	}
}

// PatchTrialRequest is the payload for PATCH on a trial.
type PatchTrialRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=255"`
	Status *string `json:"status" binding:"omitempty,max=64"`
}

// UpdateTrialRequest is the payload for PUT on a trial.
type UpdateTrialRequest struct {
	Name   string `json:"name" binding:"omitempty,max=255"`
	Status string `json:"status" binding:"omitempty,max=64"`
}

// RenameTrialRequest is the payload for the rename action.
type RenameTrialRequest struct {
	NewName string `json:"trialNewName" binding:"required,min=1,max=255"`
}

// ModifyTagsRequest replaces a trial's tag set.
type ModifyTagsRequest struct {
	NewTags []string `json:"trialNewTags" binding:"required"`
}
