package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/motionlab/capserver/internal/response"
	"github.com/motionlab/capserver/internal/service"
)

// ArchiveHandler exposes archive job polling.
type ArchiveHandler struct {
	archiveService *service.ArchiveService
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(archiveService *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService}
}

// GetTask godoc
// GET /v1/archives/tasks/:task_id
// Reports an archive job's state; once done it carries a signed download
// link. Only the user who enqueued the job may poll it; anyone else gets the
// same 404 as an unknown task ID.
func (h *ArchiveHandler) GetTask(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	task, err := h.archiveService.GetTask(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if task.RequestedBy != userID {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"task": task})
}
