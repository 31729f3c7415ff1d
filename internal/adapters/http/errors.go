package httpadapter

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/PabloGalante/ledger/internal/app/coaching"
	"github.com/PabloGalante/ledger/internal/domain"
	"github.com/PabloGalante/ledger/internal/observability"
)

const loginPath = "/auth/login"

type errorResponse struct {
	Error         string           `json:"error"`
	SafetyMessage string           `json:"safety_message,omitempty"`
	Redirect      string           `json:"redirect,omitempty"`
	Session       *sessionResponse `json:"session,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrCrisisDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmptyInput),
		errors.Is(err, domain.ErrInvalidWedge),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrInvalidFollowUp):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrFollowUpResolved),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the client-facing body. Internal failures get a fixed
// message; the cause is only logged.
func errorBody(err error) errorResponse {
	switch status := statusFor(err); status {
	case http.StatusUnauthorized:
		return errorResponse{Error: domain.ErrUnauthenticated.Error(), Redirect: loginPath}
	case http.StatusUnprocessableEntity:
		return errorResponse{Error: domain.ErrCrisisDetected.Error(), SafetyMessage: coaching.SafetyMessage}
	case http.StatusBadGateway:
		return errorResponse{Error: "the coach is not responding right now, send your message again"}
	case http.StatusInternalServerError:
		return errorResponse{Error: "we could not save your progress, please try again"}
	default:
		return errorResponse{Error: err.Error()}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorResponse(w, r, err, errorBody(err))
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error, body errorResponse) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed",
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}
