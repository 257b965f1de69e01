package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mangamatch/internal/api"
	"mangamatch/internal/cache"
	"mangamatch/internal/catalog"
	"mangamatch/internal/gateway"
	"mangamatch/internal/matcher"
	"mangamatch/internal/services"
)

const (
	maxBodyBytes       = 4 << 20
	headerCatalogToken = "X-AniList-Token"
)

type batchRequest struct {
	Inputs []catalog.Input `json:"inputs"`
}

type batchResponse struct {
	*matcher.Batch
	Counts map[catalog.ResultStatus]int `json:"counts"`
	Error  *errorBody                   `json:"error,omitempty"`
}

type resultsResponse struct {
	Results []catalog.MatchResult        `json:"results"`
	Counts  map[catalog.ResultStatus]int `json:"counts"`
}

func (h *handler) catalogToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(headerCatalogToken)); token != "" {
		return token
	}
	return h.token
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	title := strings.TrimSpace(query.Get("title"))
	if title == "" {
		writeError(w, r, http.StatusBadRequest, "validation", "title is required")
		return
	}
	page, err := optionalInt(query.Get("page"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", "page: "+err.Error())
		return
	}
	perPage, err := optionalInt(query.Get("per_page"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", "per_page: "+err.Error())
		return
	}
	filter, err := api.ParseFilter(query["genre"], query["tag"], query["format"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", err.Error())
		return
	}

	result, err := h.matcher.Search(r.Context(), title, h.catalogToken(r), matcher.SearchOptions{
		Page:        page,
		PerPage:     perPage,
		Filter:      filter,
		BypassCache: truthy(query.Get("fresh")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) matchOne(w http.ResponseWriter, r *http.Request) {
	var in catalog.Input
	if !decodeBody(w, r, &in) {
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" && in.CatalogID <= 0 {
		writeError(w, r, http.StatusBadRequest, "validation", "title or catalog_id is required")
		return
	}
	result, err := h.matcher.MatchOne(r.Context(), in, h.catalogToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) matchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Inputs) > h.maxBatch {
		writeError(w, r, http.StatusBadRequest, "validation", fmt.Sprintf("at most %d inputs per batch", h.maxBatch))
		return
	}

	batch, err := h.matcher.MatchBatch(r.Context(), req.Inputs, h.catalogToken(r), nil)
	if batch == nil {
		h.fail(w, r, err)
		return
	}
	resp := batchResponse{Batch: batch, Counts: batch.Counts()}
	var rl *gateway.RateLimitedError
	switch {
	case errors.As(err, &rl):
		status, code := classify(err)
		resp.Error = &errorBody{Error: err.Error(), Code: code, RetryAfterSeconds: rl.RetryAfterSeconds}
		if rl.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds))
		}
		writeJSON(w, status, resp)
	case err != nil:
		h.fail(w, r, err)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *handler) invalidateCache(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if err := h.matcher.InvalidateCache(r.Context(), title); err != nil {
		h.fail(w, r, err)
		return
	}
	scope := title
	if scope == "" {
		scope = "all"
	}
	writeJSON(w, http.StatusOK, map[string]string{"invalidated": scope})
}

func (h *handler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]cache.Stats{"caches": h.matcher.CacheStats()})
}

func (h *handler) listResults(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		writeError(w, r, http.StatusNotFound, "not_found", "saved results are not available")
		return
	}
	var want catalog.ResultStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := catalog.ParseStatus(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "validation", fmt.Sprintf("unknown status %q", raw))
			return
		}
		want = status
	}
	results, err := h.results.LoadResults(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := resultsResponse{Results: make([]catalog.MatchResult, 0, len(results)), Counts: map[catalog.ResultStatus]int{}}
	for _, res := range results {
		resp.Counts[res.Status]++
		if want == "" || res.Status == want {
			resp.Results = append(resp.Results, res)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		err = services.Wrap(services.ErrValidation, "http-api", "decode body", "invalid JSON body", err)
		writeError(w, r, http.StatusBadRequest, "validation", err.Error())
		return false
	}
	return true
}

func optionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("want a non-negative integer, got %q", value)
	}
	return n, nil
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
