package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coachgraph/src/domain"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps the domain error kinds to status codes. Validation is
// checked first: endpoint errors also carry NotFound or Authorization.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *domain.Error
	message := err.Error()
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	switch {
	case domain.IsValidation(err):
		http.Error(w, message, http.StatusBadRequest)
	case domain.IsAuthorization(err):
		http.Error(w, message, http.StatusForbidden)
	case domain.IsNotFound(err):
		http.Error(w, message, http.StatusNotFound)
	case domain.IsConflict(err):
		http.Error(w, message, http.StatusConflict)
	case domain.IsTransientStore(err):
		s.logger.Warn("Storage unavailable", "path", r.URL.Path, "error", err)
		http.Error(w, domain.ErrUnavailableServer.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, domain.ErrUnavailableServer.Error(), http.StatusInternalServerError)
	}
}

func userID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

func sessionID(r *http.Request) string {
	return r.Header.Get(sessionIDHeader)
}

func decodeBody(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return domain.NewValidationError("http.decodeBody", "invalid request body: %v", err)
	}
	return nil
}

// queryTime parses an optional RFC3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, domain.NewValidationError("http.queryTime", "invalid %s format, use RFC3339", name)
	}
	t = t.UTC()
	return &t, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("http.queryInt", "invalid %s format", name)
	}
	return n, nil
}
