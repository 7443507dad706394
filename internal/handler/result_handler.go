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

// ResultHandler handles result artifact endpoints.
type ResultHandler struct {
	resultService *service.ResultService
	trialService  *service.TrialService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, trialService *service.TrialService) *ResultHandler {
	return &ResultHandler{resultService: resultService, trialService: trialService}
}

func (h *ResultHandler) load(c *gin.Context) (*model.Result, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	res, err := h.resultService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}
	return res, true
}

func (h *ResultHandler) loadAuthorized(c *gin.Context, action authz.Action) (*model.Result, bool) {
	res, ok := h.load(c)
	if !ok {
		return nil, false
	}
	snap := res.Snapshot()
	if !authorize(c, authz.ResourceResult, action, &snap) {
		return nil, false
	}
	return res, true
}

// List godoc
// GET /v1/results?trial=...
// Lists results visible to the requester, optionally narrowed to one trial.
func (h *ResultHandler) List(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceResult, authz.ActionList, nil) {
		return
	}

	var trialID *uuid.UUID
	if raw := c.Query("trial"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		trialID = &id
	}

	results, err := h.resultService.ListVisible(c.Request.Context(), userID, trialID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// Retrieve godoc
// GET /v1/results/:id
// Returns the result with its media link signed.
func (h *ResultHandler) Retrieve(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionRetrieve)
	if !ok {
		return
	}

	url, err := h.resultService.SignedMediaURL(c.Request.Context(), res)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": res, "media_url": url})
}

// Create godoc
// POST /v1/results
// Attaches a result to a trial. Gated like a mutation of the parent trial.
func (h *ResultHandler) Create(c *gin.Context) {
	var req model.CreateResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	trial, err := h.trialService.GetByID(c.Request.Context(), req.TrialID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	snap := authz.Resource{
		Type:      authz.ResourceResult,
		OwnerID:   trial.SessionOwnerID.String(),
		Public:    trial.SessionPublic,
		Lifecycle: trial.Lifecycle,
	}
	if !authorize(c, authz.ResourceResult, authz.ActionCreate, &snap) {
		return
	}

	res, err := h.resultService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"result": res})
}

// Update godoc
// PUT /v1/results/:id
// Re-parenting onto another trial is a write into that trial's data, so the
// target trial is gated exactly like Create gates the original attach.
func (h *ResultHandler) Update(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req model.UpdateResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if req.TrialID != res.TrialID {
		target, err := h.trialService.GetByID(c.Request.Context(), req.TrialID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			} else {
				response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			}
			return
		}
		snap := authz.Resource{
			Type:      authz.ResourceResult,
			OwnerID:   target.SessionOwnerID.String(),
			Public:    target.SessionPublic,
			Lifecycle: target.Lifecycle,
		}
		if !authorize(c, authz.ResourceResult, authz.ActionUpdate, &snap) {
			return
		}
	}

	if err := h.resultService.Update(c.Request.Context(), res, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// PartialUpdate godoc
// PATCH /v1/results/:id
func (h *ResultHandler) PartialUpdate(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionPartialUpdate)
	if !ok {
		return
	}

	var req model.PatchResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.resultService.Patch(c.Request.Context(), res, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": res})
}

// Delete godoc
// DELETE /v1/results/:id
// Removes the result permanently. Results have no trash.
func (h *ResultHandler) Delete(c *gin.Context) {
	res, ok := h.loadAuthorized(c, authz.ActionDelete)
	if !ok {
		return
	}

	if err := h.resultService.Delete(c.Request.Context(), res.ID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
