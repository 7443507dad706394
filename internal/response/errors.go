package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrVerifiedOnly     ErrCode = "VERIFIED_ACCOUNT_REQUIRED"
	ErrOperatorOnly     ErrCode = "OPERATOR_ACCESS_ONLY"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound           ErrCode = "NOT_FOUND"
	ErrConflict           ErrCode = "CONFLICT"
	ErrLifecycleConflict  ErrCode = "LIFECYCLE_CONFLICT"
	ErrLifecycleForbidden ErrCode = "LIFECYCLE_TRANSITION_INVALID"

	// ─── Capture pipeline ──────────────────────────────────────────────
	ErrQueueEmpty       ErrCode = "QUEUE_EMPTY"
	ErrNoCalibration    ErrCode = "NO_CALIBRATION"
	ErrMediaUnavailable ErrCode = "MEDIA_UNAVAILABLE"
	ErrArchiveNotReady  ErrCode = "ARCHIVE_NOT_READY"

	// ─── Server ────────────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrInternal          ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to perform this action."
	case ErrVerifiedOnly:
		return "This action requires a verified account."
	case ErrOperatorOnly:
		return "This action is restricted to operators."
	case ErrPermissionDenied:
		return "Permission denied."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrLifecycleConflict:
		return "The resource changed state concurrently. Reload and retry."
	case ErrLifecycleForbidden:
		return "The resource's current state does not permit this transition."

	// ─── Capture pipeline ──────────────────────────────────────────────
	case ErrQueueEmpty:
		return "No trial is waiting for processing."
	case ErrNoCalibration:
		return "No calibration is recorded for this session."
	case ErrMediaUnavailable:
		return "The requested media is not available."
	case ErrArchiveNotReady:
		return "The archive is still being prepared."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Slow down and retry shortly."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
