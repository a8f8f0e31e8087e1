// Package httputil downloads dataset snapshots over HTTP.
//
// [Client.Fetch] wraps a GET with three behaviours:
//
//   - a fresh snapshot in the [Cache] is served without a request
//   - transient failures (network errors, 5xx, 429) are retried with
//     exponential backoff via [Retry]
//   - when the source stays down, the last snapshot ever fetched is
//     returned with [SourceStale] so the viewer keeps working offline
//
// Stale snapshots are revalidated with If-None-Match and If-Modified-Since
// so an unchanged dataset costs a 304.
//
//	backend, _ := cache.NewFileCache(cache.DefaultDir())
//	client := httputil.NewClient(httputil.NewCache(backend, cache.TTLHTTP).Namespace("dataset"))
//	res, err := client.Fetch(ctx, "https://example.org/macro.json")
//
// Every request reports through [observability.HTTP].
package httputil
