package http

import (
	"errors"
	"net/http"

	"github.com/medialert/reportflow/internal/application/service"
)

// mapError translates a service error into a status code and client message.
// Store failures are not echoed back.
func mapError(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "transition not allowed in the current state"
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden, "not authorized"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "report was modified concurrently, reload and retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
