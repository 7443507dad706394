package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/authz"
)

// Subject is a study participant record. Subjects are independent of
// sessions and are never public: only the owner (plus Admin/Backend for
// reads) can see one at all.
type Subject struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user"`
	Name            string          `json:"name"`
	Weight          float64         `json:"weight,omitempty"`
	Height          float64         `json:"height,omitempty"`
	BirthYear       int             `json:"birth_year,omitempty"`
	Sex             string          `json:"sex_at_birth,omitempty"`
	Gender          string          `json:"gender,omitempty"`
	Characteristics string          `json:"characteristics,omitempty"`
	Tags            []string        `json:"subject_tags,omitempty"`
	Lifecycle       authz.Lifecycle `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Snapshot converts the row into the authorization engine's view of it.
// Public is always false for subjects.
func (s *Subject) Snapshot() authz.Resource {
	return authz.Resource{
		Type:      authz.ResourceSubject,
		ID:        s.ID.String(),
		OwnerID:   s.UserID.String(),
		Public:    false,
		Lifecycle: s.Lifecycle,
	}
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name            string   `json:"name" binding:"required,min=1,max=255"`
	Weight          float64  `json:"weight" binding:"omitempty,gte=0"`
	Height          float64  `json:"height" binding:"omitempty,gte=0"`
	BirthYear       int      `json:"birth_year" binding:"omitempty,gte=1900"`
	Sex             string   `json:"sex_at_birth" binding:"omitempty,max=32"`
	Gender          string   `json:"gender" binding:"omitempty,max=32"`
	Characteristics string   `json:"characteristics" binding:"omitempty,max=1024"`
	Tags            []string `json:"subject_tags"`
}

// UpdateSubjectRequest is the payload for PUT on a subject.
type UpdateSubjectRequest struct {
	Name            string   `json:"name" binding:"required,min=1,max=255"`
	Weight          float64  `json:"weight" binding:"omitempty,gte=0"`
	Height          float64  `json:"height" binding:"omitempty,gte=0"`
	BirthYear       int      `json:"birth_year" binding:"omitempty,gte=1900"`
	Sex             string   `json:"sex_at_birth" binding:"omitempty,max=32"`
	Gender          string   `json:"gender" binding:"omitempty,max=32"`
	Characteristics string   `json:"characteristics" binding:"omitempty,max=1024"`
	Tags            []string `json:"subject_tags"`
}

// PatchSubjectRequest is the payload for PATCH on a subject.
type PatchSubjectRequest struct {
	Name            *string  `json:"name" binding:"omitempty,min=1,max=255"`
	Weight          *float64 `json:"weight" binding:"omitempty,gte=0"`
	Height          *float64 `json:"height" binding:"omitempty,gte=0"`
	BirthYear       *int     `json:"birth_year" binding:"omitempty,gte=1900"`
	Sex             *string  `json:"sex_at_birth" binding:"omitempty,max=32"`
	Gender          *string  `json:"gender" binding:"omitempty,max=32"`
	Characteristics *string  `json:"characteristics" binding:"omitempty,max=1024"`
	Tags            []string `json:"subject_tags"`
}
