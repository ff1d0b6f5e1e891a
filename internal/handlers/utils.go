package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONOK writes v with status 200.
func writeJSONOK(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeServiceError maps engine errors onto HTTP statuses. Infrastructure
// details are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "not found", http.StatusNotFound)
	case errors.Is(err, database.ErrAccessDenied):
		writeJSONError(w, "access denied", http.StatusForbidden)
	case errors.Is(err, context.Canceled):
		logging.Debug("%s %s cancelled by client", r.Method, r.URL.Path)
	default:
		logging.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
	}
}

// paramError reports a malformed query parameter.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s", e.value, e.name)
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &paramError{name: name, value: raw}
	}
	return v, nil
}

func intParam(q url.Values, name string) (int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &paramError{name: name, value: raw}
	}
	return v, nil
}

// planParams reads ordering, last_seen and limit. Missing values yield an
// ascending plan from the start with the default limit.
func planParams(q url.Values) (database.Plan, error) {
	plan := database.Plan{Order: database.OrderAsc}

	if raw := q.Get("ordering"); raw != "" {
		order, ok := database.ParseOrder(raw)
		if !ok {
			return plan, &paramError{name: "ordering", value: raw}
		}
		plan.Order = order
	}

	lastSeen, err := intParam(q, "last_seen")
	if err != nil {
		return plan, err
	}
	plan.LastSeen = lastSeen

	limit, err := intParam(q, "limit")
	if err != nil {
		return plan, err
	}
	plan.Limit = int(limit)

	return plan, nil
}
