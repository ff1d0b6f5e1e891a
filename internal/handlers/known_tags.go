package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"media-catalog/internal/middleware"
)

type knownTagsResponse struct {
	Tags map[string]int `json:"tags"`
}

// AnonKnownTags handles GET /api/users/anon/known_tags
func (h *Handlers) AnonKnownTags(w http.ResponseWriter, r *http.Request) {
	counters, err := h.search.AnonKnownTags(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONOK(w, knownTagsResponse{Tags: nonNilCounters(counters)})
}

// UserKnownTags handles GET /api/users/{uuid}/known_tags
func (h *Handlers) UserKnownTags(w http.ResponseWriter, r *http.Request) {
	target, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		writeJSONError(w, "invalid user uuid", http.StatusBadRequest)
		return
	}

	user := middleware.UserFromContext(r.Context())
	counters, err := h.search.KnownTags(r.Context(), user, target)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONOK(w, knownTagsResponse{Tags: nonNilCounters(counters)})
}

func nonNilCounters(counters map[string]int) map[string]int {
	if counters == nil {
		return map[string]int{}
	}
	return counters
}
