package comick

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"mangamatch/internal/catalog"
	"mangamatch/internal/fallback"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

const (
	// DefaultBaseURL is the public Comick API.
	DefaultBaseURL  = "https://api.comick.fun"
	defaultMaxHits  = 3
	defaultRPS      = 3
	sourceComponent = "comick"
)

type searchHit struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type comicLinks struct {
	AL string `json:"al"`
}

type detailResponse struct {
	Comic struct {
		Title string     `json:"title"`
		Slug  string     `json:"slug"`
		Links comicLinks `json:"links"`
	} `json:"comic"`
}

// Client resolves titles through Comick.
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

// New creates a Comick client.
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
	return catalog.ProvenanceComick
}

// Resolve searches by title and follows each slug to its detail record.
func (c *Client) Resolve(ctx context.Context, title string) ([]fallback.Hit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("q", title)
	params.Set("limit", strconv.Itoa(c.maxHits))
	var results []searchHit
	if err := fallback.GetJSON(ctx, c.httpClient, c.limiter, sourceComponent, c.baseURL+"/v1.0/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}

	var hits []fallback.Hit
	for i, r := range results {
		if i >= c.maxHits {
			break
		}
		if r.Slug == "" {
			continue
		}
		var detail detailResponse
		err := fallback.GetJSON(ctx, c.httpClient, c.limiter, sourceComponent, c.baseURL+"/comic/"+url.PathEscape(r.Slug), &detail)
		if err != nil {
			if services.IsCancellation(err) {
				return hits, err
			}
			if !errors.Is(err, services.ErrNotFound) {
				c.logger.Debug("comick detail lookup failed", logging.String("slug", r.Slug), logging.Error(err))
			}
			continue
		}
		id := fallback.ParseAniListID(detail.Comic.Links.AL)
		if id == 0 {
			continue
		}
		sourceTitle := strings.TrimSpace(detail.Comic.Title)
		if sourceTitle == "" {
			sourceTitle = r.Title
		}
		hits = append(hits, fallback.Hit{CatalogID: id, SourceTitle: sourceTitle, SourceSlug: r.Slug})
	}
	return hits, nil
}
