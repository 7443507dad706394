package model

import (
	"time"

	"github.com/google/uuid"
)

// Archive job kinds.
const (
	ArchiveKindSession = "session"
	ArchiveKindSubject = "subject"
)

// Archive task states. Pending and running are transient; done and error are
// terminal and carry a URL or message respectively.
const (
	ArchiveStatePending = "pending"
	ArchiveStateRunning = "running"
	ArchiveStateDone    = "done"
	ArchiveStateError   = "error"
)

// ArchiveJob is the queue payload for an asynchronous archive build.
type ArchiveJob struct {
	TaskID      uuid.UUID `json:"task_id"`
	Kind        string    `json:"kind"`
	ResourceID  uuid.UUID `json:"resource_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// ArchiveTask is the pollable state of an archive job. RequestedBy records
// the user who enqueued the job; only that user may poll the task.
type ArchiveTask struct {
	TaskID      uuid.UUID `json:"task_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
	State       string    `json:"state"`
	URL         string    `json:"url,omitempty"`
	Message     string    `json:"message,omitempty"`
}
