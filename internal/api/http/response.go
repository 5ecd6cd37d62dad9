package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bikeshare-backend/internal/domain"
	"bikeshare-backend/internal/logger"

	"github.com/gorilla/mux"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps a domain error onto an HTTP status. Business rules are
// conflicts with current state unless the input alone breaks them.
func statusFor(de *domain.Error) int {
	switch de.Kind {
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindBusinessRule:
		if de.Input {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case domain.ErrorKindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "Unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL", Message: "internal error"})
		return
	}
	if de.Kind == domain.ErrorKindTransient {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, statusFor(de), errorBody{Error: string(de.Kind), Message: de.Message})
}

func writeUnauthenticated(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHENTICATED", Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Validation("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid id: %q", mux.Vars(r)["id"])
	}
	return id, nil
}
