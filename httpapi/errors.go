package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	kidsAuth "github.com/MrEthical07/kidsAuth"
)

const internalMessage = "internal error"

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Message  string   `json:"message"`
	Messages []string `json:"messages,omitempty"`
}

// statusFor maps an engine error to a status code and a message that is
// safe to return to the client. Engine sentinels only ever wrap
// operator-written detail, so their text is returned as is; anything
// unclassified collapses to a generic 500.
func statusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, kidsAuth.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, kidsAuth.ErrInvalidCredentials),
		errors.Is(err, kidsAuth.ErrIncorrectPIN),
		errors.Is(err, kidsAuth.ErrTokenExpired),
		errors.Is(err, kidsAuth.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, kidsAuth.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, kidsAuth.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, kidsAuth.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, kidsAuth.ErrTokenInvalid),
		errors.Is(err, kidsAuth.ErrInvalidOrExpiredCode),
		errors.Is(err, kidsAuth.ErrInvalidAssertion):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, kidsAuth.ErrRateLimited):
		return http.StatusTooManyRequests, "too many attempts, try again later"
	case errors.Is(err, kidsAuth.ErrDependencyFailure):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, kidsAuth.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

// writeError renders err. Validation failures become 422 with every message;
// unclassified errors are logged with their cause and hidden from the client.
func (a *api) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if verr, ok := kidsAuth.AsValidationError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message:  "validation failed",
			Messages: verr.Messages,
		})
		return
	}

	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(ctx, "request failed",
			slog.Int("status", status),
			slog.Any("error", err),
			slog.String("request_id", kidsAuth.RequestIDFromContext(ctx)),
		)
	}
	writeJSON(w, status, errorBody{Message: msg})
}
