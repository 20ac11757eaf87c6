// Package pixiv implements the upstream artwork platform API client and the
// process-wide credential manager.
//
// The client exposes the listing endpoints the collector paginates over
// (ranking, user works, followed feed, follow listing, keyword search) plus
// single-illustration detail. Upstream failures surface as *APIError values
// carrying the HTTP status code that the retry policy classifies.
package pixiv
