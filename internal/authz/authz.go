// Package authz is the request-authorization engine for capture sessions,
// trials, trial results, and subjects. It is a pure evaluator: callers supply
// a principal snapshot and a resource snapshot, and Authorize returns one of
// three decisions. The package performs no I/O and holds no state, so it is
// safe to call from any number of goroutines.
package authz

import "errors"

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Allow lets the action proceed; the handler chooses its own success status.
	Allow Decision = iota
	// Forbidden denies with HTTP 403: the requester may learn the resource exists.
	Forbidden
	// NotFound denies with HTTP 404: the requester must not learn the resource exists.
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ResourceType identifies which entity an action targets.
type ResourceType string

const (
	ResourceSession ResourceType = "session"
	ResourceTrial   ResourceType = "trial"
	ResourceResult  ResourceType = "result"
	ResourceSubject ResourceType = "subject"
)

// Action names an operation on a resource type. The policy table maps each
// (resource type, action) pair to a gate; pairs missing from the table are a
// wiring fault, not a denial.
type Action string

const (
	ActionList          Action = "list"
	ActionRetrieve      Action = "retrieve"
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionPartialUpdate Action = "partial_update"
	ActionDelete        Action = "delete"

	ActionTrash           Action = "trash"
	ActionRestore         Action = "restore"
	ActionPermanentRemove Action = "permanent_remove"

	ActionRename     Action = "rename"
	ActionModifyTags Action = "modify_tags"

	ActionSearch            Action = "search"
	ActionValidList         Action = "valid_list"
	ActionValidConfirm      Action = "valid_confirm"
	ActionNew               Action = "new"
	ActionNewSubject        Action = "new_subject"
	ActionRecord            Action = "record"
	ActionStop              Action = "stop"
	ActionCancelTrial       Action = "cancel_trial"
	ActionStatus            Action = "status"
	ActionSessionPermission Action = "session_permission"
	ActionSessionSettings   Action = "session_settings"
	ActionSetMetadata       Action = "set_metadata"
	ActionSetSubject        Action = "set_subject"
	ActionSessionStatuses   Action = "session_statuses"
	ActionSetSessionStatus  Action = "set_session_status"

	ActionCalibrationGet    Action = "calibration_get"
	ActionCalibrationPost   Action = "calibration_post"
	ActionCalibratedCameras Action = "calibrated_cameras"
	ActionCalibrationImage  Action = "calibration_image"
	ActionNeutralImage      Action = "neutral_image"
	ActionGetQR             Action = "get_qr"

	ActionDownload      Action = "download"
	ActionAsyncDownload Action = "async_download"

	ActionDequeue          Action = "dequeue"
	ActionTrialsWithStatus Action = "trials_with_status"
)

// Contract faults. These indicate the caller mis-wired the gate (unknown
// action, missing snapshot) and must surface as internal errors, never as
// policy decisions.
var (
	ErrUnknownAction   = errors.New("authz: action not defined for resource type")
	ErrMissingResource = errors.New("authz: object action evaluated without a resource snapshot")
)
