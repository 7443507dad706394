package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/response"
	"github.com/motionlab/capserver/internal/service"
	"github.com/motionlab/capserver/internal/validator"
)

// SubjectHandler handles study participant endpoints.
type SubjectHandler struct {
	subjectService *service.SubjectService
	archiveService *service.ArchiveService
	resultService  *service.ResultService
}

// NewSubjectHandler creates a new SubjectHandler.
func NewSubjectHandler(
	subjectService *service.SubjectService,
	archiveService *service.ArchiveService,
	resultService *service.ResultService,
) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
		archiveService: archiveService,
		resultService:  resultService,
	}
}

func (h *SubjectHandler) load(c *gin.Context) (*model.Subject, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	subj, err := h.subjectService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}
	return subj, true
}

func (h *SubjectHandler) loadAuthorized(c *gin.Context, action authz.Action) (*model.Subject, bool) {
	subj, ok := h.load(c)
	if !ok {
		return nil, false
	}
	snap := subj.Snapshot()
	if !authorize(c, authz.ResourceSubject, action, &snap) {
		return nil, false
	}
	return subj, true
}

// List godoc
// GET /v1/subjects
// Lists the requester's own subjects. Subjects are never public.
func (h *SubjectHandler) List(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSubject, authz.ActionList, nil) {
		return
	}

	subjects, err := h.subjectService.ListOwned(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Create godoc
// POST /v1/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSubject, authz.ActionCreate, nil) {
		return
	}

	var req model.CreateSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	subj, err := h.subjectService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"subject": subj})
}

// Retrieve godoc
// GET /v1/subjects/:id
func (h *SubjectHandler) Retrieve(c *gin.Context) {
	subj, ok := h.loadAuthorized(c, authz.ActionRetrieve)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": subj})
}

// Update godoc
// PUT /v1/subjects/:id
func (h *SubjectHandler) Update(c *gin.Context) {
	subj, ok := h.loadAuthorized(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req model.UpdateSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.subjectService.Update(c.Request.Context(), subj, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": subj})
}

// PartialUpdate godoc
// PATCH /v1/subjects/:id
func (h *SubjectHandler) PartialUpdate(c *gin.Context) {
	subj, ok := h.loadAuthorized(c, authz.ActionPartialUpdate)
	if !ok {
		return
	}

	var req model.PatchSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.subjectService.Patch(c.Request.Context(), subj, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": subj})
}

// Delete godoc
// DELETE /v1/subjects/:id
// Moves the subject to the trash. Recoverable with restore.
func (h *SubjectHandler) Delete(c *gin.Context) {
	h.transition(c, authz.ActionDelete, authz.ActionTrash)
}

// Trash godoc
// POST /v1/subjects/:id/trash
func (h *SubjectHandler) Trash(c *gin.Context) {
	h.transition(c, authz.ActionTrash, authz.ActionTrash)
}

// Restore godoc
// POST /v1/subjects/:id/restore
func (h *SubjectHandler) Restore(c *gin.Context) {
	h.transition(c, authz.ActionRestore, authz.ActionRestore)
}

// PermanentRemove godoc
// POST /v1/subjects/:id/permanent_remove
func (h *SubjectHandler) PermanentRemove(c *gin.Context) {
	h.transition(c, authz.ActionPermanentRemove, authz.ActionPermanentRemove)
}

func (h *SubjectHandler) transition(c *gin.Context, gateAction, lifecycleAction authz.Action) {
	subj, ok := h.loadAuthorized(c, gateAction)
	if !ok {
		return
	}

	if err := h.subjectService.Transition(c.Request.Context(), subj, lifecycleAction); err != nil {
		failTransition(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": subj})
}

// Download godoc
// GET /v1/subjects/:id/download
// Returns signed links for every result media recorded for this subject.
func (h *SubjectHandler) Download(c *gin.Context) {
	subj, ok := h.loadAuthorized(c, authz.ActionDownload)
	if !ok {
		return
	}

	results, err := h.resultService.ListBySubject(c.Request.Context(), subj.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	files := make([]gin.H, 0, len(results))
	for i := range results {
		url, err := h.resultService.SignedMediaURL(c.Request.Context(), &results[i])
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		files = append(files, gin.H{
			"trial":  results[i].TrialID,
			"tag":    results[i].Tag,
			"device": results[i].DeviceID,
			"url":    url,
		})
	}
	response.Success(c, http.StatusOK, gin.H{"files": files})
}

// AsyncDownload godoc
// POST /v1/subjects/:id/async_download
// Enqueues an archive job for the subject and returns a pollable task ID.
func (h *SubjectHandler) AsyncDownload(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	subj, ok := h.loadAuthorized(c, authz.ActionAsyncDownload)
	if !ok {
		return
	}

	task, err := h.archiveService.Enqueue(c.Request.Context(), model.ArchiveKindSubject, subj.ID, userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"task": task})
}
