package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"mangamatch/internal/catalog"
)

// FakeCatalog is an in-process GraphQL endpoint speaking the subset of the
// AniList schema the client uses. Searches match records whose titles or
// synonyms contain the search text, case-insensitively.
type FakeCatalog struct {
	Server *httptest.Server

	mu       sync.Mutex
	records  []catalog.Record
	searches []string
	lookups  int
	status   int
}

// NewFakeCatalog starts a fake catalog serving records.
func NewFakeCatalog(t testing.TB, records ...catalog.Record) *FakeCatalog {
	t.Helper()
	fc := &FakeCatalog{records: records}
	fc.Server = httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(fc.Server.Close)
	return fc
}

// URL is the GraphQL endpoint.
func (fc *FakeCatalog) URL() string {
	return fc.Server.URL
}

// Searches returns the search texts received so far.
func (fc *FakeCatalog) Searches() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.searches...)
}

// Lookups returns the number of id lookups received.
func (fc *FakeCatalog) Lookups() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lookups
}

// FailWith makes every later request answer with status. Zero restores
// normal responses.
func (fc *FakeCatalog) FailWith(status int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.status = status
}

func (fc *FakeCatalog) serve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query     string `json:"query"`
		Variables struct {
			Search string  `json:"search"`
			IDs    []int64 `json:"ids"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fc.mu.Lock()
	status := fc.status
	var matched []catalog.Record
	if strings.Contains(body.Query, "id_in") {
		fc.lookups++
		for _, rec := range fc.records {
			if slices.Contains(body.Variables.IDs, rec.ID) {
				matched = append(matched, rec)
			}
		}
	} else {
		fc.searches = append(fc.searches, body.Variables.Search)
		needle := strings.ToLower(body.Variables.Search)
		for _, rec := range fc.records {
			if recordContains(rec, needle) {
				matched = append(matched, rec)
			}
		}
	}
	fc.mu.Unlock()

	if status != 0 {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "30")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"errors":[{"message":"fake catalog failure"}]}`))
		return
	}

	media := make([]map[string]any, 0, len(matched))
	for _, rec := range matched {
		media = append(media, map[string]any{
			"id": rec.ID,
			"title": map[string]string{
				"english": rec.Title.English,
				"romaji":  rec.Title.Romaji,
				"native":  rec.Title.Native,
			},
			"synonyms": rec.Synonyms,
			"format":   string(rec.Format),
			"status":   rec.Status,
			"isAdult":  rec.IsAdult,
			"siteUrl":  rec.SiteURL,
		})
	}
	payload := map[string]any{
		"data": map[string]any{
			"Page": map[string]any{
				"pageInfo": map[string]any{
					"total": len(media), "currentPage": 1, "lastPage": 1, "hasNextPage": false, "perPage": 50,
				},
				"media": media,
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func recordContains(rec catalog.Record, needle string) bool {
	if needle == "" {
		return false
	}
	for _, title := range rec.TitleVariants() {
		if strings.Contains(strings.ToLower(title), needle) {
			return true
		}
	}
	return false
}
