package web

// errors.go turns handler errors into API responses.
//
// The flow:
//  1. A handler calls respondError(w, r, err)
//  2. statusFor picks the HTTP status from the error kind
//  3. core.MapError supplies the user message and support code
//  4. The technical error is logged with the request ID
//  5. The client gets {success:false, message, detail, action, code}

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/logging"
	"github.com/JonMunkholm/leadimport/internal/spreadsheet"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errNoFile is returned when a multipart upload lacks the file part.
var errNoFile = errors.New("no file provided")

// respondError logs err and writes the failure body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", args...)
	} else {
		logger.Warn("request rejected", args...)
	}

	writeJSON(w, r, status, ErrorResponse{
		Message: msg.Message,
		Detail:  err.Error(),
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrImportBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrLeadNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrInvalidRequest),
		errors.Is(err, core.ErrInvalidLeadID),
		errors.Is(err, errNoFile),
		errors.Is(err, spreadsheet.ErrUnsupportedFormat),
		errors.Is(err, spreadsheet.ErrUnreadable),
		errors.Is(err, spreadsheet.ErrEmpty):
		return http.StatusBadRequest
	}

	switch core.KindOf(err) {
	case core.KindInput:
		return http.StatusBadRequest
	case core.KindSchema:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
