package handlers

import (
	"net/http"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/middleware"
	"media-catalog/internal/search"
)

// itemResponse is an item with its presentation extras inlined.
type itemResponse struct {
	database.Item
	ParentName string `json:"parentName,omitempty"`
}

type itemsResponse struct {
	Duration float64        `json:"duration"`
	Items    []itemResponse `json:"items"`
}

type totalResponse struct {
	Total    int     `json:"total"`
	Duration float64 `json:"duration"`
}

type autocompleteResponse struct {
	Variants []string `json:"variants"`
}

func newItemsResponse(result search.Result) itemsResponse {
	items := make([]itemResponse, len(result.Items))
	for i, item := range result.Items {
		items[i] = itemResponse{Item: item}
		if i < len(result.Extras) {
			items[i].ParentName = result.Extras[i].ParentName
		}
	}
	return itemsResponse{Duration: seconds(result.Duration), Items: items}
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

// Autocomplete handles GET /api/search/autocomplete?tag=&limit=
func (h *Handlers) Autocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q, "limit")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := middleware.UserFromContext(r.Context())
	variants, err := h.search.Autocomplete(r.Context(), user, q.Get("tag"), int(limit))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if variants == nil {
		variants = []string{}
	}

	writeJSONOK(w, autocompleteResponse{Variants: variants})
}

// SearchTotal handles GET /api/search/total?q=&only_collections=
func (h *Handlers) SearchTotal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	collectionsOnly, err := boolParam(q, "only_collections")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := middleware.UserFromContext(r.Context())
	total, duration, err := h.search.Count(r.Context(), user, q.Get("q"), collectionsOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSONOK(w, totalResponse{Total: total, Duration: seconds(duration)})
}

// Search handles GET /api/search?q=&only_collections=&ordering=&last_seen=&limit=
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	collectionsOnly, err := boolParam(q, "only_collections")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := planParams(q)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := middleware.UserFromContext(r.Context())
	result, err := h.search.Search(r.Context(), user, q.Get("q"), collectionsOnly, plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSONOK(w, newItemsResponse(result))
}

// Home handles GET /api/home?collections=&direct=&ordering=&last_seen=&limit=
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	collectionsOnly, err := boolParam(q, "collections")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	directOnly, err := boolParam(q, "direct")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := planParams(q)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := middleware.UserFromContext(r.Context())
	result, err := h.search.Home(r.Context(), user, collectionsOnly, directOnly, plan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSONOK(w, newItemsResponse(result))
}
