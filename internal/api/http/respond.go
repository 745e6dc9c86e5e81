package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/qtdeferred/internal/attempt"
	"github.com/mind-engage/qtdeferred/internal/behaviour"
	"github.com/mind-engage/qtdeferred/internal/question"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attempt.ErrNotFound), errors.Is(err, question.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attempt.ErrInvalidData), errors.Is(err, behaviour.ErrUnknownBehaviour):
		status = http.StatusBadRequest
	case errors.Is(err, attempt.ErrConflict):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
