// Package httpmw holds the host's HTTP middleware.
//
// httpserver.NewHandler composes these around the chi router. From the
// outside in: security headers, recover, request ID, client IP, rate limit,
// otelhttp, trace response headers, metrics, and the request logger. Inside
// the router the addon middleware runs first, then compression, the access
// log, and the body limit.
//
// Query strings and user agents never go into log fields.
package httpmw
