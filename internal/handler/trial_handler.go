package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/response"
	"github.com/motionlab/capserver/internal/service"
	"github.com/motionlab/capserver/internal/validator"
)

// TrialHandler handles trial endpoints.
type TrialHandler struct {
	trialService *service.TrialService
}

// NewTrialHandler creates a new TrialHandler.
func NewTrialHandler(trialService *service.TrialService) *TrialHandler {
	return &TrialHandler{trialService: trialService}
}

func (h *TrialHandler) load(c *gin.Context) (*model.Trial, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	trial, err := h.trialService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}
	return trial, true
}

func (h *TrialHandler) loadAuthorized(c *gin.Context, action authz.Action) (*model.Trial, bool) {
	trial, ok := h.load(c)
	if !ok {
		return nil, false
	}
	snap := trial.Snapshot()
	if !authorize(c, authz.ResourceTrial, action, &snap) {
		return nil, false
	}
	return trial, true
}

// List godoc
// GET /v1/trials?session=...
// Lists trials visible to the requester, optionally narrowed to one session.
func (h *TrialHandler) List(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceTrial, authz.ActionList, nil) {
		return
	}

	var sessionID *uuid.UUID
	if raw := c.Query("session"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		sessionID = &id
	}

	trials, err := h.trialService.ListVisible(c.Request.Context(), userID, sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trials": trials})
}

// Retrieve godoc
// GET /v1/trials/:id
func (h *TrialHandler) Retrieve(c *gin.Context) {
	trial, ok := h.loadAuthorized(c, authz.ActionRetrieve)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// Update godoc
// PUT /v1/trials/:id
func (h *TrialHandler) Update(c *gin.Context) {
	trial, ok := h.loadAuthorized(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req model.UpdateTrialRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.trialService.Update(c.Request.Context(), trial, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// PartialUpdate godoc
// PATCH /v1/trials/:id
func (h *TrialHandler) PartialUpdate(c *gin.Context) {
	trial, ok := h.loadAuthorized(c, authz.ActionPartialUpdate)
	if !ok {
		return
	}

	var req model.PatchTrialRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.trialService.Patch(c.Request.Context(), trial, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// Delete godoc
// DELETE /v1/trials/:id
// Moves the trial to the trash. Recoverable with restore.
func (h *TrialHandler) Delete(c *gin.Context) {
	h.transition(c, authz.ActionDelete, authz.ActionTrash)
}

// Trash godoc
// POST /v1/trials/:id/trash
func (h *TrialHandler) Trash(c *gin.Context) {
	h.transition(c, authz.ActionTrash, authz.ActionTrash)
}

// Restore godoc
// POST /v1/trials/:id/restore
func (h *TrialHandler) Restore(c *gin.Context) {
	h.transition(c, authz.ActionRestore, authz.ActionRestore)
}

// PermanentRemove godoc
// POST /v1/trials/:id/permanent_remove
func (h *TrialHandler) PermanentRemove(c *gin.Context) {
	h.transition(c, authz.ActionPermanentRemove, authz.ActionPermanentRemove)
}

func (h *TrialHandler) transition(c *gin.Context, gateAction, lifecycleAction authz.Action) {
	trial, ok := h.loadAuthorized(c, gateAction)
	if !ok {
		return
	}

	if err := h.trialService.Transition(c.Request.Context(), trial, lifecycleAction); err != nil {
		failTransition(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// Rename godoc
// POST /v1/trials/:id/rename
func (h *TrialHandler) Rename(c *gin.Context) {
	trial, ok := h.loadAuthorized(c, authz.ActionRename)
	if !ok {
		return
	}

	var req model.RenameTrialRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.trialService.Rename(c.Request.Context(), trial.ID, req.NewName); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	trial.Name = req.NewName
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// ModifyTags godoc
// POST /v1/trials/:id/modifyTags
func (h *TrialHandler) ModifyTags(c *gin.Context) {
	trial, ok := h.loadAuthorized(c, authz.ActionModifyTags)
	if !ok {
		return
	}

	var req model.ModifyTagsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.trialService.ModifyTags(c.Request.Context(), trial.ID, req.NewTags); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	trial.Tags = req.NewTags
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// Dequeue godoc
// GET /v1/trials/dequeue
// Claims the oldest trial waiting for processing. Operators only.
func (h *TrialHandler) Dequeue(c *gin.Context) {
	if !authorize(c, authz.ResourceTrial, authz.ActionDequeue, nil) {
		return
	}

	trial, err := h.trialService.Dequeue(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrQueueEmpty) {
			response.Fail(c, http.StatusNotFound, response.ErrQueueEmpty)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// TrialsWithStatus godoc
// GET /v1/trials/get_trials_with_status?status=...
// Lists all trials in a processing status across sessions. Operators only.
func (h *TrialHandler) TrialsWithStatus(c *gin.Context) {
	if !authorize(c, authz.ResourceTrial, authz.ActionTrialsWithStatus, nil) {
		return
	}

	status := c.Query("status")
	if status == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	trials, err := h.trialService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trials": trials})
}
