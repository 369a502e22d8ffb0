package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/middleware"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/service"
)

// errorStatus maps a domain error onto an HTTP status and response code.
func errorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, service.ErrTokenRevoked):
		return http.StatusUnauthorized, response.ErrTokenRevoked
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, response.ErrUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.ErrForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest, response.ErrInvalidState
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, response.ErrConflict
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// respondError writes the envelope for err. Unexpected errors are logged and
// reported as INTERNAL_ERROR without detail.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
		return
	}

	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}

// respondConflict is respondError with a more specific code for conflicts.
func respondConflict(c *gin.Context, log zerolog.Logger, err error, code response.ErrCode) {
	if errors.Is(err, service.ErrConflict) {
		response.Fail(c, http.StatusConflict, code)
		return
	}
	respondError(c, log, err)
}

// paramUUID parses a UUID path parameter, writing INVALID_ID on failure.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// mustCaller returns the authenticated caller, writing 401 when absent.
func mustCaller(c *gin.Context) (service.Caller, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized)
	}
	return caller, ok
}
