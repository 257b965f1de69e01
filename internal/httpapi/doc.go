// Package httpapi exposes the matcher over HTTP with a chi router.
//
// Routes:
//
//	GET    /api/health        liveness
//	GET    /api/search        ranked candidates for ?title= (page, per_page, genre, tag, format, fresh)
//	POST   /api/match         match one catalog.Input
//	POST   /api/match/batch   match {"inputs": [...]}; a rate-limited run answers 429 with the partial batch
//	DELETE /api/cache         invalidate ?title=, or everything
//	GET    /api/cache/stats   cache namespace statistics
//	GET    /api/results       saved results, optionally ?status=
//
// Every response carries an X-Request-ID header; the id is also attached to
// the request context so log lines share it. Catalog calls use the configured
// token unless the request sends X-AniList-Token.
package httpapi
