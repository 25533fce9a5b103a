package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// httpError carries a status code and a client-facing message.
type httpError struct {
	Code    int
	Message string
	cause   error
}

func (e *httpError) Error() string { return e.Message }

func (e *httpError) Unwrap() error { return e.cause }

func errBadRequest(message string, cause error) *httpError {
	return &httpError{Code: http.StatusBadRequest, Message: message, cause: cause}
}

// appHandler is a handler that reports failure by returning an error.
type appHandler func(w http.ResponseWriter, r *http.Request) error

// makeHandler adapts an appHandler, turning returned errors into JSON
// error bodies. Errors that are not httpErrors become 500s.
func (s *Server) makeHandler(h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		level := slog.LevelError

		var he *httpError
		if errors.As(err, &he) {
			status = he.Code
			message = he.Message
			if status < 500 {
				level = slog.LevelWarn
			}
		}

		s.logger.Log(r.Context(), level, "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		respondJSON(w, status, map[string]string{"error": message})
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
