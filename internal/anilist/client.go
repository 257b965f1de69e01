package anilist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"mangamatch/internal/catalog"
	"mangamatch/internal/gateway"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

const (
	DefaultPerPage   = 50
	DefaultBatchSize = 25
	maxPerPage       = 50
)

// Client runs catalog queries through the shared gateway.
type Client struct {
	gw        *gateway.Gateway
	perPage   int
	batchSize int
	logger    *slog.Logger
}

// ClientOptions tunes a Client.
type ClientOptions struct {
	PerPage   int
	BatchSize int
	Logger    *slog.Logger
}

// NewClient wraps gw.
func NewClient(gw *gateway.Gateway, opts ClientOptions) *Client {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = DefaultPerPage
	}
	batch := opts.BatchSize
	if batch <= 0 || batch > maxPerPage {
		batch = DefaultBatchSize
	}
	return &Client{
		gw:        gw,
		perPage:   perPage,
		batchSize: batch,
		logger:    logging.NewComponentLogger(opts.Logger, "anilist"),
	}
}

// Search runs one search page with the gateway's retry policy.
func (c *Client) Search(ctx context.Context, q catalog.SearchQuery, token string) (catalog.Page, error) {
	return c.search(ctx, q, token, c.gw.Execute)
}

// SearchOnce runs one search page as a single attempt. Multi-page loops use it
// for pages after the first.
func (c *Client) SearchOnce(ctx context.Context, q catalog.SearchQuery, token string) (catalog.Page, error) {
	return c.search(ctx, q, token, c.gw.Send)
}

type sendFunc func(context.Context, gateway.Request) (gateway.Response, error)

func (c *Client) search(ctx context.Context, q catalog.SearchQuery, token string, send sendFunc) (catalog.Page, error) {
	q = q.WithDefaults(c.perPage)
	if q.Text == "" {
		return catalog.Page{}, services.Wrap(services.ErrValidation, "anilist", "search", "query text is empty", nil)
	}
	vars := map[string]any{
		"search":  q.Text,
		"page":    q.Page,
		"perPage": q.PerPage,
	}
	if len(q.Filter.Genres) > 0 {
		vars["genres"] = q.Filter.Genres
	}
	if len(q.Filter.Tags) > 0 {
		vars["tags"] = q.Filter.Tags
	}
	if len(q.Filter.Formats) > 0 {
		vars["formats"] = q.Filter.Formats
	}

	resp, err := send(ctx, gateway.Request{Query: searchQuery, Variables: vars, Token: token})
	if err != nil {
		return catalog.Page{}, err
	}
	page, err := decodePage(resp.Data)
	if err != nil {
		return catalog.Page{}, err
	}
	c.logger.Debug("catalog search",
		logging.String("query", q.Text),
		logging.Int("page", q.Page),
		logging.Int("results", len(page.Records)),
		logging.Bool("has_next_page", page.PageInfo.HasNextPage))
	return page, nil
}

// FetchByIDs loads records by id in chunks of the configured batch size.
// Missing ids are simply absent from the result.
func (c *Client) FetchByIDs(ctx context.Context, ids []int64, token string) ([]catalog.Record, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var out []catalog.Record
	for chunk := range slices.Chunk(unique, c.batchSize) {
		resp, err := c.gw.Execute(ctx, gateway.Request{
			Query:     byIDsQuery,
			Variables: map[string]any{"ids": chunk, "perPage": len(chunk)},
			Token:     token,
		})
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return out, err
		}
		page, err := decodePage(resp.Data)
		if err != nil {
			return out, err
		}
		out = append(out, page.Records...)
	}
	return out, nil
}

func decodePage(data json.RawMessage) (catalog.Page, error) {
	var payload pagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return catalog.Page{}, services.Wrap(services.ErrMalformedResponse, "anilist", "decode page", "", err)
	}
	if payload.Page == nil {
		return catalog.Page{}, services.Wrap(services.ErrMalformedResponse, "anilist", "decode page", "missing Page", nil)
	}
	page := catalog.Page{
		Records:  make([]catalog.Record, 0, len(payload.Page.Media)),
		PageInfo: payload.Page.PageInfo.catalog(),
	}
	for _, m := range payload.Page.Media {
		if m.ID <= 0 {
			continue
		}
		page.Records = append(page.Records, m.record())
	}
	return page, nil
}

// FormatIDs renders ids for log lines.
func FormatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
