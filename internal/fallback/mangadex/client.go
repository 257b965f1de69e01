package mangadex

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"mangamatch/internal/catalog"
	"mangamatch/internal/fallback"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

const (
	// DefaultBaseURL is the public MangaDex API.
	DefaultBaseURL  = "https://api.mangadex.org"
	defaultMaxHits  = 3
	defaultRPS      = 3
	sourceComponent = "mangadex"
)

type localized map[string]string

type mangaAttributes struct {
	Title    localized   `json:"title"`
	AltTitle []localized `json:"altTitles"`
	Links    localized   `json:"links"`
}

type manga struct {
	ID         string          `json:"id"`
	Attributes mangaAttributes `json:"attributes"`
}

type searchResponse struct {
	Result string  `json:"result"`
	Data   []manga `json:"data"`
}

type detailResponse struct {
	Result string `json:"result"`
	Data   manga  `json:"data"`
}

// Client resolves titles through MangaDex.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxHits    int
	logger     *slog.Logger
}

var _ fallback.Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRate sets the request pace in requests per second.
func WithRate(rps float64) Option {
	return func(c *Client) {
		c.limiter = fallback.NewLimiter(rps)
	}
}

// WithMaxHits caps how many search results get a detail lookup.
func WithMaxHits(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxHits = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, sourceComponent)
	}
}

// New creates a MangaDex client.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: fallback.DefaultHTTPTimeout},
		limiter:    fallback.NewLimiter(defaultRPS),
		maxHits:    defaultMaxHits,
		logger:     logging.NewComponentLogger(nil, sourceComponent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the source.
func (c *Client) Name() catalog.Provenance {
	return catalog.ProvenanceMangaDex
}

// Resolve searches by title, then reads the AniList link from each result's
// detail record.
func (c *Client) Resolve(ctx context.Context, title string) ([]fallback.Hit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("title", title)
	params.Set("limit", strconv.Itoa(c.maxHits))
	var search searchResponse
	if err := fallback.GetJSON(ctx, c.httpClient, c.limiter, sourceComponent, c.baseURL+"/manga?"+params.Encode(), &search); err != nil {
		return nil, err
	}

	var hits []fallback.Hit
	for i, m := range search.Data {
		if i >= c.maxHits {
			break
		}
		if m.ID == "" {
			continue
		}
		var detail detailResponse
		err := fallback.GetJSON(ctx, c.httpClient, c.limiter, sourceComponent, c.baseURL+"/manga/"+url.PathEscape(m.ID), &detail)
		if err != nil {
			if services.IsCancellation(err) {
				return hits, err
			}
			if !errors.Is(err, services.ErrNotFound) {
				c.logger.Debug("mangadex detail lookup failed", logging.String("manga_id", m.ID), logging.Error(err))
			}
			continue
		}
		id := fallback.ParseAniListID(detail.Data.Attributes.Links["al"])
		if id == 0 {
			continue
		}
		hits = append(hits, fallback.Hit{
			CatalogID:   id,
			SourceTitle: detail.Data.Attributes.Title.best(),
			SourceSlug:  m.ID,
		})
	}
	return hits, nil
}

var preferredLocales = []string{"en", "ja-ro", "ja"}

// best returns the first non-empty title in preferredLocales order, falling
// back to the remaining locales sorted by code.
func (l localized) best() string {
	for _, locale := range preferredLocales {
		if s := strings.TrimSpace(l[locale]); s != "" {
			return s
		}
	}
	for _, locale := range slices.Sorted(maps.Keys(l)) {
		if s := strings.TrimSpace(l[locale]); s != "" {
			return s
		}
	}
	return ""
}
