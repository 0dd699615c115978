package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BigWednesdayIO/suppliers-api-sub000/datastore"
)

// errorBody is the wire shape of error responses.
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

func errBadPageParam(name string) error {
	return fmt.Errorf("%s must be a non-negative integer", name)
}

// writeDomainError maps catalog errors onto the HTTP boundary: missing or
// invalid identifiers are client input errors, absent entities are not-found,
// dependent conflicts are conflicts, and anything else is a generic server
// error that leaks no internal detail.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var missing *datastore.MissingIdentifierError
	var invalid *datastore.InvalidIdentifierError
	switch {
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest, missing.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, datastore.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, datastore.ErrHasDependents):
		writeError(w, http.StatusConflict, "resource has dependent resources")
	case errors.Is(err, datastore.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
