// Package addon is the host's extension point for server-side addon hooks.
//
// An [Addon] is registered with a [Registry] before the server starts. When
// the public handler is built, the host calls [Registry.Install] exactly
// once with an [App] wrapping its router, and each enabled addon gets one
// call to ServerMiddleware where it may add middleware via [App.Use].
//
// Middleware added this way is registered ahead of every route, so it runs
// for every request that reaches the router and before any handler writes
// a response.
package addon
