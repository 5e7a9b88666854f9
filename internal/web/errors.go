package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nconklindev/datasweep/internal/apperr"
	"github.com/nconklindev/datasweep/internal/logging"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func newErrorBody(err error) *errorBody {
	return &errorBody{
		Code:    apperr.CodeOf(err).String(),
		Message: apperr.MessageOf(err),
	}
}

// respondError logs err and writes it as JSON with the status its code
// maps to.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"status", status,
		"code", apperr.CodeOf(err).String(),
		"error", err,
	)

	writeJSON(w, r, status, errorResponse{Error: *newErrorBody(err)})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
