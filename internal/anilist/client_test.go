package anilist_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mangamatch/internal/anilist"
	"mangamatch/internal/catalog"
	"mangamatch/internal/gateway"
	"mangamatch/internal/services"
)

const searchPayload = `{"data":{"Page":{
  "pageInfo":{"total":2,"currentPage":1,"lastPage":1,"hasNextPage":false,"perPage":50},
  "media":[
    {"id":53390,"title":{"romaji":"Shingeki no Kyojin","english":"Attack on Titan","native":"進撃の巨人"},
     "synonyms":["AoT"," "],"format":"MANGA","status":"FINISHED","chapters":141,"volumes":34,"isAdult":false,
     "siteUrl":"https://anilist.co/manga/53390","coverImage":{"large":"https://img/large.jpg"},
     "mediaListEntry":{"id":9,"status":"CURRENT","progress":100,"progressVolumes":20,"score":9}},
    {"id":0,"title":{}}
  ]}}}`

type recordedRequest struct {
	auth      string
	query     string
	variables map[string]any
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, req recordedRequest)) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		req := recordedRequest{auth: r.Header.Get("Authorization"), query: payload.Query, variables: payload.Variables}
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func newClient(t *testing.T, url string) *anilist.Client {
	t.Helper()
	transport, err := anilist.NewHTTPTransport(url, anilist.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	gw := gateway.New(transport, gateway.Options{MaxRetries: 2, BaseDelay: time.Millisecond})
	t.Cleanup(gw.Close)
	return anilist.NewClient(gw, anilist.ClientOptions{PerPage: 50, BatchSize: 2})
}

func TestSearchDecodesMedia(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = io.WriteString(w, searchPayload)
	})
	client := newClient(t, srv.URL)

	page, err := client.Search(context.Background(), catalog.SearchQuery{
		Text:   " Attack on Titan ",
		Filter: catalog.Filter{Formats: []catalog.Format{catalog.FormatManga}},
	}, "secret")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("expected id-less media dropped, got %d records", len(page.Records))
	}
	rec := page.Records[0]
	if rec.ID != 53390 || rec.Title.English != "Attack on Titan" || rec.Chapters != 141 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.Synonyms) != 1 || rec.Synonyms[0] != "AoT" {
		t.Fatalf("unexpected synonyms %v", rec.Synonyms)
	}
	if rec.ListEntry == nil || rec.ListEntry.Progress != 100 || rec.ListEntry.Volumes != 20 {
		t.Fatalf("unexpected list entry %+v", rec.ListEntry)
	}
	if rec.CoverURL != "https://img/large.jpg" {
		t.Fatalf("unexpected cover %q", rec.CoverURL)
	}
	if rec.Provenance() != catalog.ProvenancePrimary {
		t.Fatalf("unexpected provenance %s", rec.Provenance())
	}

	req := seen()[0]
	if req.auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", req.auth)
	}
	if req.variables["search"] != "Attack on Titan" || req.variables["page"] != float64(1) {
		t.Fatalf("unexpected variables %v", req.variables)
	}
	if _, ok := req.variables["formats"]; !ok {
		t.Fatal("expected format filter forwarded")
	}
	if _, ok := req.variables["genres"]; ok {
		t.Fatal("empty genre filter must be omitted")
	}
}

func TestSearchMaps429ToRateLimited(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, _ recordedRequest) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"errors":[{"message":"Too Many Requests.","status":429}]}`)
	})
	client := newClient(t, srv.URL)

	_, err := client.Search(context.Background(), catalog.SearchQuery{Text: "Berserk"}, "")
	var rl *gateway.RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfterSeconds != 30 {
		t.Fatalf("expected RateLimitedError(30), got %v", err)
	}
	if len(seen()) != 1 {
		t.Fatalf("429 must not be retried, saw %d requests", len(seen()))
	}
	if seen()[0].auth != "" {
		t.Fatal("no auth header expected without token")
	}
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv, _ := newServer(t, func(w http.ResponseWriter, _ recordedRequest) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, searchPayload)
	})
	client := newClient(t, srv.URL)

	page, err := client.Search(context.Background(), catalog.SearchQuery{Text: "Berserk"}, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 1 || calls.Load() != 2 {
		t.Fatalf("expected success on retry, records=%d calls=%d", len(page.Records), calls.Load())
	}
}

func TestSearchMalformedPayload(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = io.WriteString(w, `{"data":{"Page":"nope"}}`)
	})
	client := newClient(t, srv.URL)

	_, err := client.Search(context.Background(), catalog.SearchQuery{Text: "Berserk"}, "")
	if !errors.Is(err, services.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestSearchRejectsEmptyText(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:0")
	if _, err := client.Search(context.Background(), catalog.SearchQuery{Text: "  "}, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchByIDsChunksAndDedupes(t *testing.T) {
	srv, seen := newServer(t, func(w http.ResponseWriter, req recordedRequest) {
		ids, _ := req.variables["ids"].([]any)
		var media []string
		for _, id := range ids {
			n := int(id.(float64))
			media = append(media, `{"id":`+itoa(n)+`,"title":{"romaji":"Title `+itoa(n)+`"}}`)
		}
		_, _ = io.WriteString(w, `{"data":{"Page":{"pageInfo":{},"media":[`+strings.Join(media, ",")+`]}}}`)
	})
	client := newClient(t, srv.URL)

	records, err := client.FetchByIDs(context.Background(), []int64{1, 2, 2, 3, 0}, "")
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if len(seen()) != 2 {
		t.Fatalf("expected 2 chunked requests, got %d", len(seen()))
	}
	if !strings.Contains(seen()[0].query, "id_in") {
		t.Fatal("expected id lookup query")
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
