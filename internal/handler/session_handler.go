package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/middleware"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/response"
	"github.com/motionlab/capserver/internal/service"
	"github.com/motionlab/capserver/internal/validator"
)

// SessionHandler handles capture session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
	archiveService *service.ArchiveService
	resultService  *service.ResultService
	mediaService   *service.MediaService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	sessionService *service.SessionService,
	archiveService *service.ArchiveService,
	resultService *service.ResultService,
	mediaService *service.MediaService,
) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		archiveService: archiveService,
		resultService:  resultService,
		mediaService:   mediaService,
	}
}

// load fetches a session and maps a missing row to 404. The authorization
// engine decides everything beyond bare existence.
func (h *SessionHandler) load(c *gin.Context) (*model.Session, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		} else {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return nil, false
	}
	return sess, true
}

// loadAuthorized fetches a session and runs the policy engine for an action
// against it.
func (h *SessionHandler) loadAuthorized(c *gin.Context, action authz.Action) (*model.Session, bool) {
	sess, ok := h.load(c)
	if !ok {
		return nil, false
	}
	snap := sess.Snapshot()
	if !authorize(c, authz.ResourceSession, action, &snap) {
		return nil, false
	}
	return sess, true
}

// ────────────────────────────────────────────────────────────────────────────
// Collection endpoints
// ────────────────────────────────────────────────────────────────────────────

// List godoc
// GET /v1/sessions
// Lists sessions visible to the requester: their own plus public ones.
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionList, nil) {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	sessions, total, err := h.sessionService.ListVisible(c.Request.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// Search godoc
// GET /v1/sessions/search?q=...
// Lists the requester's own sessions matching a name fragment.
func (h *SessionHandler) Search(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionSearch, nil) {
		return
	}

	sessions, err := h.sessionService.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// ListValid godoc
// GET /v1/sessions/valid
// Lists the requester's own sessions with a finished neutral recording.
func (h *SessionHandler) ListValid(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionValidList, nil) {
		return
	}

	sessions, err := h.sessionService.ListValid(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// ConfirmValid godoc
// POST /v1/sessions/valid
// Same listing as GET but restricted to verified accounts; capture clients
// use it to re-check their sessions after processing.
func (h *SessionHandler) ConfirmValid(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionValidConfirm, nil) {
		return
	}

	sessions, err := h.sessionService.ListValid(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// Create godoc
// POST /v1/sessions
// Creates a session owned by the requester.
func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionCreate, nil) {
		return
	}

	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessionService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess})
}

// New godoc
// GET /v1/sessions/new
// Provisions an unnamed session and returns it with a pairing QR link.
// Capture devices call this to start from nothing.
func (h *SessionHandler) New(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionNew, nil) {
		return
	}

	sess, err := h.sessionService.Create(c.Request.Context(), userID, &model.CreateSessionRequest{})
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	qrURL, err := h.mediaService.PresignGet(c.Request.Context(), sess.QRCodeKey)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": sess, "qr_url": qrURL})
}

// SessionStatuses godoc
// GET /v1/sessions/statuses?status=...
// Lists the requester's own sessions in a given processing status.
func (h *SessionHandler) SessionStatuses(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	if !authorize(c, authz.ResourceSession, authz.ActionSessionStatuses, nil) {
		return
	}

	status := c.Query("status")
	if status == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	sessions, err := h.sessionService.ListOwnedByStatus(c.Request.Context(), userID, status)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// ────────────────────────────────────────────────────────────────────────────
// Object CRUD
// ────────────────────────────────────────────────────────────────────────────

// Retrieve godoc
// GET /v1/sessions/:id
func (h *SessionHandler) Retrieve(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionRetrieve)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// Update godoc
// PUT /v1/sessions/:id
func (h *SessionHandler) Update(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req model.UpdateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Update(c.Request.Context(), sess, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// PartialUpdate godoc
// PATCH /v1/sessions/:id
func (h *SessionHandler) PartialUpdate(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionPartialUpdate)
	if !ok {
		return
	}

	var req model.PatchSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Patch(c.Request.Context(), sess, &req); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// Delete godoc
// DELETE /v1/sessions/:id
// Moves the session to the trash. Recoverable with restore.
func (h *SessionHandler) Delete(c *gin.Context) {
	h.transition(c, authz.ActionDelete, authz.ActionTrash)
}

// Trash godoc
// POST /v1/sessions/:id/trash
func (h *SessionHandler) Trash(c *gin.Context) {
	h.transition(c, authz.ActionTrash, authz.ActionTrash)
}

// Restore godoc
// POST /v1/sessions/:id/restore
func (h *SessionHandler) Restore(c *gin.Context) {
	h.transition(c, authz.ActionRestore, authz.ActionRestore)
}

// PermanentRemove godoc
// POST /v1/sessions/:id/permanent_remove
// Deletes the session forever. Owner only.
func (h *SessionHandler) PermanentRemove(c *gin.Context) {
	h.transition(c, authz.ActionPermanentRemove, authz.ActionPermanentRemove)
}

// transition authorizes with gateAction and applies the lifecycle change
// named by lifecycleAction. The two differ only for Delete, which trashes.
func (h *SessionHandler) transition(c *gin.Context, gateAction, lifecycleAction authz.Action) {
	sess, ok := h.loadAuthorized(c, gateAction)
	if !ok {
		return
	}

	if err := h.sessionService.Transition(c.Request.Context(), sess, lifecycleAction); err != nil {
		failTransition(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// Rename godoc
// POST /v1/sessions/:id/rename
func (h *SessionHandler) Rename(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionRename)
	if !ok {
		return
	}

	var req model.RenameSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Rename(c.Request.Context(), sess.ID, req.NewName); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	sess.Name = req.NewName
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// ────────────────────────────────────────────────────────────────────────────
// Device and pipeline actions
// ────────────────────────────────────────────────────────────────────────────

// Status godoc
// GET /v1/sessions/:id/status
// Reports the session's processing status. Open to any requester as long as
// the session still exists; capture devices poll this unauthenticated-ish.
func (h *SessionHandler) Status(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionStatus)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": sess.Status})
}

// Permission godoc
// GET /v1/sessions/:id/get_session_permission
// Tells a client where it stands with respect to this session.
func (h *SessionHandler) Permission(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionSessionPermission)
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	role := authz.ResolveRole(principal, sess.UserID.String())
	response.Success(c, http.StatusOK, gin.H{
		"is_owner":  role == authz.RoleOwner,
		"is_public": sess.Public,
		"role":      role.String(),
	})
}

// Settings godoc
// GET /v1/sessions/:id/get_session_settings
func (h *SessionHandler) Settings(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionSessionSettings)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": h.sessionService.Settings(sess)})
}

// SetMetadata godoc
// POST /v1/sessions/:id/set_metadata
func (h *SessionHandler) SetMetadata(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionSetMetadata)
	if !ok {
		return
	}

	var meta map[string]string
	if err := c.ShouldBindJSON(&meta); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.sessionService.SetMeta(c.Request.Context(), sess.ID, meta); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	sess.Meta = meta
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// SetSubject godoc
// POST /v1/sessions/:id/set_subject
func (h *SessionHandler) SetSubject(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionSetSubject)
	if !ok {
		return
	}

	var req model.SetSubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SetSubject(c.Request.Context(), sess.ID, req.SubjectID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	sess.SubjectID = &req.SubjectID
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// SetSessionStatus godoc
// POST /v1/sessions/:id/set_session_status
// Operator override of the processing status. The gate is object-independent
// and runs first, so non-operators learn nothing about which IDs exist.
func (h *SessionHandler) SetSessionStatus(c *gin.Context) {
	if !authorize(c, authz.ResourceSession, authz.ActionSetSessionStatus, nil) {
		return
	}
	sess, ok := h.load(c)
	if !ok {
		return
	}

	var req model.SetSessionStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SetStatus(c.Request.Context(), sess.ID, req.Status); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	sess.Status = req.Status
	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

// NewSubject godoc
// POST /v1/sessions/:id/new_subject
// Provisions a fresh session for the next participant, reusing the capture
// setup.
func (h *SessionHandler) NewSubject(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionNewSubject)
	if !ok {
		return
	}

	clone, err := h.sessionService.CloneForNewSubject(c.Request.Context(), sess)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": clone})
}

// Record godoc
// GET /v1/sessions/:id/record?name=...
// Starts recording a new trial under the session.
func (h *SessionHandler) Record(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionRecord)
	if !ok {
		return
	}

	trial, err := h.sessionService.Record(c.Request.Context(), sess, c.Query("name"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"trial": trial})
}

// Stop godoc
// POST /v1/sessions/:id/stop
// Ends the current recording; the trial joins the processing queue.
func (h *SessionHandler) Stop(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionStop)
	if !ok {
		return
	}

	trial, err := h.sessionService.Stop(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveTrial) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// CancelTrial godoc
// POST /v1/sessions/:id/cancel_trial
// Aborts the current recording; the trial is marked failed.
func (h *SessionHandler) CancelTrial(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionCancelTrial)
	if !ok {
		return
	}

	trial, err := h.sessionService.CancelTrial(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveTrial) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"trial": trial})
}

// ────────────────────────────────────────────────────────────────────────────
// Calibration and media
// ────────────────────────────────────────────────────────────────────────────

// GetCalibration godoc
// GET /v1/sessions/:id/calibration
func (h *SessionHandler) GetCalibration(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionCalibrationGet)
	if !ok {
		return
	}

	data, err := h.sessionService.GetCalibration(c.Request.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, service.ErrNoCalibration) {
			response.Fail(c, http.StatusNotFound, response.ErrNoCalibration)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"calibration": json.RawMessage(data)})
}

// PostCalibration godoc
// POST /v1/sessions/:id/calibration
func (h *SessionHandler) PostCalibration(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionCalibrationPost)
	if !ok {
		return
	}

	var req model.CalibrationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SetCalibration(c.Request.Context(), sess.ID, req.CalibrationData); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// CalibratedCameras godoc
// GET /v1/sessions/:id/get_n_calibrated_cameras
func (h *SessionHandler) CalibratedCameras(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionCalibratedCameras)
	if !ok {
		return
	}

	n, err := h.sessionService.CalibratedCameras(c.Request.Context(), sess.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"n_calibrated_cameras": n})
}

// CalibrationImage godoc
// GET /v1/sessions/:id/calibration_img
func (h *SessionHandler) CalibrationImage(c *gin.Context) {
	h.presignSessionMedia(c, authz.ActionCalibrationImage, service.CalibrationImageKey)
}

// NeutralImage godoc
// GET /v1/sessions/:id/neutral_img
func (h *SessionHandler) NeutralImage(c *gin.Context) {
	h.presignSessionMedia(c, authz.ActionNeutralImage, service.NeutralImageKey)
}

// GetQR godoc
// GET /v1/sessions/:id/get_qr
// Returns a signed link to the session's pairing QR code. Owner only.
func (h *SessionHandler) GetQR(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionGetQR)
	if !ok {
		return
	}
	if sess.QRCodeKey == "" {
		response.Fail(c, http.StatusNotFound, response.ErrMediaUnavailable)
		return
	}

	url, err := h.mediaService.PresignGet(c.Request.Context(), sess.QRCodeKey)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"qr_url": url})
}

func (h *SessionHandler) presignSessionMedia(c *gin.Context, action authz.Action, keyFn func(string) string) {
	sess, ok := h.loadAuthorized(c, action)
	if !ok {
		return
	}

	url, err := h.mediaService.PresignGet(c.Request.Context(), keyFn(sess.ID.String()))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url})
}

// ────────────────────────────────────────────────────────────────────────────
// Downloads
// ────────────────────────────────────────────────────────────────────────────

// Download godoc
// GET /v1/sessions/:id/download
// Returns signed links for every result media in the session.
func (h *SessionHandler) Download(c *gin.Context) {
	sess, ok := h.loadAuthorized(c, authz.ActionDownload)
	if !ok {
		return
	}

	results, err := h.resultService.ListBySession(c.Request.Context(), sess.ID)
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
// POST /v1/sessions/:id/async_download
// Enqueues an archive job for the session and returns a pollable task ID.
func (h *SessionHandler) AsyncDownload(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}
	sess, ok := h.loadAuthorized(c, authz.ActionAsyncDownload)
	if !ok {
		return
	}

	task, err := h.archiveService.Enqueue(c.Request.Context(), model.ArchiveKindSession, sess.ID, userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"task": task})
}
