package httpx

import (
	"errors"
	"net/http"

	"github.com/KyleQD/Flow-sub006/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrSystemRole):
		Problem(w, http.StatusConflict, "System Role", err.Error())
	case errors.Is(err, shared.ErrDuplicateRole):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
