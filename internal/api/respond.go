package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindCapacity:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err onto a status and body. Server-side failures are
// logged and carry the underlying error text in details.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var e *apperr.Error
	status := statusFor(apperr.KindOf(err))
	body := ErrorResponse{Error: err.Error(), Code: apperr.CodeOf(err)}
	isAppErr := errors.As(err, &e)
	if isAppErr {
		body.Error = e.Message
	}

	if status >= http.StatusInternalServerError {
		log.WithContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
		if !isAppErr {
			body.Error = "internal server error"
		}
		body.Details = err.Error()
		if isAppErr && e.Err != nil {
			body.Details = e.Err.Error()
		}
	}

	writeJSON(w, status, body)
}
