package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mangamatch/internal/services"
)

// DefaultHTTPTimeout bounds each secondary catalog request.
const DefaultHTTPTimeout = 10 * time.Second

// NewLimiter paces a source at rps requests per second with no burst.
// A non-positive rps disables pacing.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// GetJSON waits on limiter, GETs endpoint and decodes a JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, source, endpoint string, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return services.Wrap(services.ErrCancelled, source, "wait", "pacing interrupted", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mangamatch")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrCancelled, source, "get", "request cancelled", ctx.Err())
		}
		return services.Wrap(services.ErrTransient, source, "get", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, source, "get", endpoint, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrTransient, source, "get",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrMalformedResponse, source, "decode", endpoint, err)
	}
	return nil
}

var trailingDigits = regexp.MustCompile(`(\d+)/?(?:[^/\d][^/]*)?$`)

// ParseAniListID accepts the forms secondary catalogs use for AniList links:
// a bare id or a URL such as https://anilist.co/manga/30002/Berserk.
func ParseAniListID(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil && id > 0 {
		return id
	}
	match := trailingDigits.FindStringSubmatch(value)
	if match == nil {
		return 0
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
