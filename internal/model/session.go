package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/authz"
)

// Session is a capture session: the top-level recording unit. UserID is the
// owner and never changes after creation. Public exposes the session (and,
// by inheritance, its trials and results) to any verified requester for
// reading.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user"`
	Name      string            `json:"name"`
	Public    bool              `json:"public"`
	Server    string            `json:"server,omitempty"`
	Status    string            `json:"status"`
	QRCodeKey string            `json:"-"`
	SubjectID *uuid.UUID        `json:"subject,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Lifecycle authz.Lifecycle   `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Snapshot converts the row into the authorization engine's view of it.
func (s *Session) Snapshot() authz.Resource {
	return authz.Resource{
		Type:      authz.ResourceSession,
		ID:        s.ID.String(),
		OwnerID:   s.UserID.String(),
		Public:    s.Public,
		Lifecycle: s.Lifecycle,
	}
}

// CreateSessionRequest is the payload for creating a session.
type CreateSessionRequest struct {
	Name   string `json:"name" binding:"omitempty,max=255"`
	Public bool   `json:"public"`
	Server string `json:"server" binding:"omitempty,max=255"`
}

// UpdateSessionRequest is the payload for PUT (full update).
type UpdateSessionRequest struct {
	Name   string `json:"name" binding:"omitempty,max=255"`
	Public bool   `json:"public"`
	Server string `json:"server" binding:"omitempty,max=255"`
}

// PatchSessionRequest is the payload for PATCH (partial update); nil fields
// are left untouched.
type PatchSessionRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=255"`
	Public *bool   `json:"public"`
	Server *string `json:"server" binding:"omitempty,max=255"`
}

// RenameSessionRequest is the payload for the rename action.
type RenameSessionRequest struct {
	NewName string `json:"sessionNewName" binding:"required,min=1,max=255"`
}

// SetSubjectRequest attaches a subject to a session.
type SetSubjectRequest struct {
	SubjectID uuid.UUID `json:"subject_id" binding:"required"`
}

// SetSessionStatusRequest is the operator-only status override.
type SetSessionStatusRequest struct {
	Status string `json:"status" binding:"required,max=64"`
}

// SessionStatusesRequest filters sessions by processing status.
type SessionStatusesRequest struct {
	Status string `json:"status" binding:"required,max=64"`
}

// CalibrationRequest carries camera calibration data for a session.
type CalibrationRequest struct {
	CalibrationData string `json:"calibration_data" binding:"required"`
}
