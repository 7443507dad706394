package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/middleware"
	"github.com/motionlab/capserver/internal/response"
	"github.com/motionlab/capserver/internal/service"
)

// requesterID parses the authenticated user's ID out of the JWT subject.
// Responds 401 and returns false when the subject is unusable.
func requesterID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return uuid.Nil, false
	}
	return id, true
}

// authorize runs the policy engine for an action and writes the failure
// response when the outcome is not Allow. Returns true only when the caller
// may proceed.
func authorize(c *gin.Context, rt authz.ResourceType, action authz.Action, res *authz.Resource) bool {
	decision, err := authz.Authorize(middleware.GetPrincipal(c), rt, action, res)
	if err != nil {
		// A policy table miss is a programming fault, never a user error.
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return false
	}
	if decision != authz.Allow {
		response.FailDecision(c, decision)
		return false
	}
	return true
}

// pathID parses the :id path parameter. A value that is not a UUID cannot
// name any resource, so it resolves like a miss: 404, indistinguishable from
// an ID that simply does not exist.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// failTransition maps lifecycle transition failures to HTTP responses.
func failTransition(c *gin.Context, err error) {
	var invalid *authz.ErrInvalidTransition
	switch {
	case errors.Is(err, service.ErrStaleLifecycle):
		response.Fail(c, http.StatusConflict, response.ErrLifecycleConflict)
	case errors.As(err, &invalid):
		response.Fail(c, http.StatusConflict, response.ErrLifecycleForbidden)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
