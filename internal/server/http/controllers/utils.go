package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rzbill/logpager/internal/api"
	"github.com/rzbill/logpager/internal/filter"
	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/internal/logstore"
	"github.com/rzbill/logpager/internal/source/local"
)

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// writeAccepted writes a 202 JSON response.
func writeAccepted(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps store and source errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, logstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, logstore.ErrInvalidName),
		errors.Is(err, local.ErrInvalidStreamID),
		errors.Is(err, local.ErrInvalidToken),
		errors.Is(err, filter.ErrInvalidExpression),
		errors.Is(err, loader.ErrNoCursor):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// requireMethod writes 405 and returns false unless r uses method.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// parseLimit parses a limit string and returns a valid limit value.
//
// Returns 0 for empty strings or invalid values.
func parseLimit(limitStr string) int {
	if limitStr == "" {
		return 0
	}
	if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
		return limit
	}
	return 0
}

// parseTimestamp parses raw unix milliseconds or RFC3339. ok is false for
// non-empty values in neither form.
func parseTimestamp(ts string) (t time.Time, ok bool) {
	if ts == "" {
		return time.Time{}, true
	}
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseWait parses waitMs, capped at maxWait.
func parseWait(s string) time.Duration {
	ms, err := strconv.Atoi(s)
	if err != nil || ms <= 0 {
		return 0
	}
	d := time.Duration(ms) * time.Millisecond
	if d > maxWait {
		d = maxWait
	}
	return d
}
