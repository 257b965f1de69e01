package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mangamatch/internal/cache"
	"mangamatch/internal/catalog"
	"mangamatch/internal/logging"
	"mangamatch/internal/matcher"
)

const shutdownTimeout = 5 * time.Second

// Matcher is the caller API the server exposes.
type Matcher interface {
	Search(ctx context.Context, title, token string, opts matcher.SearchOptions) (matcher.SearchResult, error)
	MatchOne(ctx context.Context, in catalog.Input, token string) (catalog.MatchResult, error)
	MatchBatch(ctx context.Context, inputs []catalog.Input, token string, onProgress matcher.ProgressFunc) (*matcher.Batch, error)
	InvalidateCache(ctx context.Context, title string) error
	CacheStats() []cache.Stats
}

// Results lists saved match results. It is optional.
type Results interface {
	LoadResults(ctx context.Context) ([]catalog.MatchResult, error)
}

// Options configures the handler.
type Options struct {
	Matcher Matcher
	Results Results
	// CatalogToken is used for catalog calls unless a request carries its
	// own X-AniList-Token header.
	CatalogToken string
	// AuthToken, when set, is required as a bearer token.
	AuthToken string
	// MaxBatch caps the number of inputs accepted by the batch route.
	MaxBatch int
	Logger   *slog.Logger
}

const defaultMaxBatch = 500

type handler struct {
	matcher  Matcher
	results  Results
	token    string
	maxBatch int
	logger   *slog.Logger
}

// NewHandler builds the API router.
func NewHandler(opts Options) http.Handler {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = defaultMaxBatch
	}
	h := &handler{
		matcher:  opts.Matcher,
		results:  opts.Results,
		token:    opts.CatalogToken,
		maxBatch: opts.MaxBatch,
		logger:   logging.NewComponentLogger(opts.Logger, "http-api"),
	}

	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(requestLogger(h.logger))
	router.Use(middleware.Recoverer)
	router.Use(requireToken(opts.AuthToken))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/search", h.search)
		r.Post("/match", h.matchOne)
		r.Post("/match/batch", h.matchBatch)
		r.Delete("/cache", h.invalidateCache)
		r.Get("/cache/stats", h.cacheStats)
		r.Get("/results", h.listResults)
	})
	return router
}

// ListenAndServe serves handler on bind until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, bind string, handler http.Handler, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "http-api")
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	logger.Info("api server stopped")
	return nil
}
