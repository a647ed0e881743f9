package utils

import (
	"errors"
	"net/http"

	"ticketnepal/internal/models"
)

// StatusFor maps a service error to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSeatConflict), errors.Is(err, models.ErrAlreadyApplied):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyRequest), errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTransientStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteError reports err as an APIResponse. Details of unexpected errors
// are not sent to the client.
func WriteError(w http.ResponseWriter, message string, err error) int {
	status := StatusFor(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		detail = http.StatusText(status)
	}
	WriteJSON(w, status, ErrorResponse(message, detail))
	return status
}
