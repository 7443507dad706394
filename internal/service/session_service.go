package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/config"
	"github.com/motionlab/capserver/internal/model"
	"github.com/motionlab/capserver/internal/repository"
)

// Capture pipeline errors.
var (
	ErrNoActiveTrial  = errors.New("no trial in a recordable state")
	ErrNoCalibration  = errors.New("no calibration recorded for this session")
	ErrStaleLifecycle = errors.New("lifecycle changed concurrently")
)

// StatusEvent is the message published on a session's status channel and
// forwarded to websocket subscribers.
type StatusEvent struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	TrialID   string `json:"trial_id,omitempty"`
	At        string `json:"at"`
}

// SessionService orchestrates capture sessions and the recording pipeline.
type SessionService struct {
	sessions *repository.SessionRepository
	trials   *repository.TrialRepository
	rdb      *redis.Client
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions *repository.SessionRepository, trials *repository.TrialRepository, rdb *redis.Client) *SessionService {
	return &SessionService{sessions: sessions, trials: trials, rdb: rdb}
}

// GetByID retrieves a session by ID.
func (s *SessionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return s.sessions.GetByID(ctx, id)
}

// ListVisible lists sessions the requester may see: own plus public.
func (s *SessionService) ListVisible(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Session, int, error) {
	return s.sessions.ListVisible(ctx, userID, limit, offset)
}

// Search lists the requester's own sessions matching a name fragment.
func (s *SessionService) Search(ctx context.Context, userID uuid.UUID, query string) ([]model.Session, error) {
	return s.sessions.Search(ctx, userID, query)
}

// ListValid lists the requester's own sessions usable in pickers.
func (s *SessionService) ListValid(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	return s.sessions.ListValid(ctx, userID)
}

// ListOwnedByStatus lists the requester's own sessions in a given status.
func (s *SessionService) ListOwnedByStatus(ctx context.Context, userID uuid.UUID, status string) ([]model.Session, error) {
	return s.sessions.ListOwnedByStatus(ctx, userID, status)
}

// Create provisions a new session owned by the given user, with its QR code
// key preassigned.
func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, req *model.CreateSessionRequest) (*model.Session, error) {
	sess := &model.Session{
		UserID: userID,
		Name:   req.Name,
		Public: req.Public,
		Server: req.Server,
		Status: "new",
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	sess.QRCodeKey = SessionQRKey(sess.ID.String())
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CloneForNewSubject provisions a fresh session for the next participant,
// carrying over the capture setup but not the subject or recordings.
func (s *SessionService) CloneForNewSubject(ctx context.Context, src *model.Session) (*model.Session, error) {
	clone := &model.Session{
		UserID: src.UserID,
		Name:   "",
		Public: src.Public,
		Server: src.Server,
		Status: "new",
		Meta:   src.Meta,
	}
	if err := s.sessions.Create(ctx, clone); err != nil {
		return nil, err
	}

	clone.QRCodeKey = SessionQRKey(clone.ID.String())
	if err := s.sessions.Update(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// Update applies a full update to a session.
func (s *SessionService) Update(ctx context.Context, sess *model.Session, req *model.UpdateSessionRequest) error {
	sess.Name = req.Name
	sess.Public = req.Public
	sess.Server = req.Server
	return s.sessions.Update(ctx, sess)
}

// Patch applies a partial update to a session, leaving nil fields untouched.
func (s *SessionService) Patch(ctx context.Context, sess *model.Session, req *model.PatchSessionRequest) error {
	if req.Name != nil {
		sess.Name = *req.Name
	}
	if req.Public != nil {
		sess.Public = *req.Public
	}
	if req.Server != nil {
		sess.Server = *req.Server
	}
	return s.sessions.Update(ctx, sess)
}

// Rename changes a session's name.
func (s *SessionService) Rename(ctx context.Context, id uuid.UUID, name string) error {
	return s.sessions.Rename(ctx, id, name)
}

// SetSubject attaches a subject to a session.
func (s *SessionService) SetSubject(ctx context.Context, id, subjectID uuid.UUID) error {
	return s.sessions.SetSubject(ctx, id, subjectID)
}

// SetMeta replaces a session's metadata document.
func (s *SessionService) SetMeta(ctx context.Context, id uuid.UUID, meta map[string]string) error {
	return s.sessions.SetMeta(ctx, id, meta)
}

// SetStatus changes a session's processing status and notifies stream
// subscribers.
func (s *SessionService) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if err := s.sessions.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.publishStatus(ctx, id.String(), status, "")
	return nil
}

// Transition applies a lifecycle action to a session with a compare-and-set
// against the snapshot the caller authorized.
func (s *SessionService) Transition(ctx context.Context, sess *model.Session, action authz.Action) error {
	next, err := sess.Lifecycle.Next(action)
	if err != nil {
		return err
	}
	ok, err := s.sessions.TransitionLifecycle(ctx, sess.ID, sess.Lifecycle, next)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleLifecycle
	}
	sess.Lifecycle = next
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Recording pipeline
// ────────────────────────────────────────────────────────────────────────────

// Record starts a new recording trial under the session and flags the
// session as busy.
func (s *SessionService) Record(ctx context.Context, sess *model.Session, trialName string) (*model.Trial, error) {
	trial := &model.Trial{
		SessionID: sess.ID,
		Name:      trialName,
		Status:    model.TrialStatusRecording,
	}
	if err := s.trials.Create(ctx, trial); err != nil {
		return nil, err
	}
	trial.SessionOwnerID = sess.UserID
	trial.SessionPublic = sess.Public

	if err := s.sessions.SetStatus(ctx, sess.ID, "recording"); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, sess.ID.String(), "recording", trial.ID.String())
	return trial, nil
}

// Stop ends the session's current recording: the latest recording trial
// moves to 'stopped' and joins the processing queue.
func (s *SessionService) Stop(ctx context.Context, sess *model.Session) (*model.Trial, error) {
	trial, err := s.trials.LatestBySessionWithStatus(ctx, sess.ID,
		[]string{model.TrialStatusRecording, model.TrialStatusUploading})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveTrial
		}
		return nil, err
	}

	if err := s.trials.SetStatus(ctx, trial.ID, model.TrialStatusStopped); err != nil {
		return nil, err
	}
	trial.Status = model.TrialStatusStopped

	if err := s.sessions.SetStatus(ctx, sess.ID, "uploading"); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, sess.ID.String(), "uploading", trial.ID.String())
	return trial, nil
}

// CancelTrial aborts the session's current recording: the latest in-flight
// trial is marked failed and never enters the processing queue.
func (s *SessionService) CancelTrial(ctx context.Context, sess *model.Session) (*model.Trial, error) {
	trial, err := s.trials.LatestBySessionWithStatus(ctx, sess.ID,
		[]string{model.TrialStatusRecording, model.TrialStatusUploading, model.TrialStatusStopped})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveTrial
		}
		return nil, err
	}

	if err := s.trials.SetStatus(ctx, trial.ID, model.TrialStatusError); err != nil {
		return nil, err
	}
	trial.Status = model.TrialStatusError

	if err := s.sessions.SetStatus(ctx, sess.ID, "done"); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, sess.ID.String(), "done", trial.ID.String())
	return trial, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Calibration
// ────────────────────────────────────────────────────────────────────────────

// GetCalibration returns the stored calibration document.
func (s *SessionService) GetCalibration(ctx context.Context, id uuid.UUID) (string, error) {
	data, err := s.sessions.GetCalibration(ctx, id)
	if err != nil {
		return "", err
	}
	if data == "" {
		return "", ErrNoCalibration
	}
	return data, nil
}

// SetCalibration validates and stores a calibration document.
func (s *SessionService) SetCalibration(ctx context.Context, id uuid.UUID, data string) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("calibration document: %w", err)
	}
	return s.sessions.SetCalibration(ctx, id, data)
}

// CalibratedCameras returns how many cameras have calibration entries in the
// session's calibration document. Zero when nothing was calibrated yet.
func (s *SessionService) CalibratedCameras(ctx context.Context, id uuid.UUID) (int, error) {
	data, err := s.sessions.GetCalibration(ctx, id)
	if err != nil {
		return 0, err
	}
	if data == "" {
		return 0, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return 0, fmt.Errorf("calibration document: %w", err)
	}
	return len(doc), nil
}

// Settings returns the capture settings for a session: stored metadata over
// server defaults.
func (s *SessionService) Settings(sess *model.Session) map[string]string {
	settings := map[string]string{
		"framerate": "60",
	}
	for k, v := range sess.Meta {
		settings[k] = v
	}
	return settings
}

func (s *SessionService) publishStatus(ctx context.Context, sessionID, status, trialID string) {
	event := StatusEvent{
		SessionID: sessionID,
		Status:    status,
		TrialID:   trialID,
		At:        time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	// Best effort: a missed event only delays the next poll.
	s.rdb.Publish(ctx, config.CacheKey.SessionStatusChannel(sessionID), payload)
}
