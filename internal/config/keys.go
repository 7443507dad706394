package config

import "fmt"

// Redis key layout. Queue keys are plain list names consumed with BLPOP;
// the rest are computed per resource.

// ArchiveQueue is the list the archive worker consumes.
const ArchiveQueue = "archive_jobs_queue"

type CacheKeyStruct struct{}

// ArchiveTaskKey returns the key holding an archive task's pollable state.
func (r *CacheKeyStruct) ArchiveTaskKey(taskID string) string {
	return fmt.Sprintf("archive:task:%s", taskID)
}

// SessionStatusChannel returns the pub/sub channel carrying status events
// for a capture session's websocket stream.
func (r *CacheKeyStruct) SessionStatusChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:status", sessionID)
}

var CacheKey = &CacheKeyStruct{}
