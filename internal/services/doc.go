// Package services defines the shared error markers and context helpers used
// by the catalog gateway, the fallback sources, and the batch matcher.
//
// Key responsibilities:
//   - Sentinel markers plus the Wrap helper so callers can classify failures
//     (rate limited, malformed payload, cancellation) with errors.Is.
//   - Context helpers that stamp batch IDs, stage names, and correlation
//     identifiers for logging.
package services
