package uihandler

import (
	"path"
	"strings"
)

// isServiceWorkerScript matches sw.js, *-sw.js, and service-worker*.js.
// Browsers must revalidate these so a new worker is picked up.
func isServiceWorkerScript(name string) bool {
	base := strings.ToLower(path.Base(name))
	if path.Ext(base) != ".js" {
		return false
	}
	return base == "sw.js" ||
		strings.HasSuffix(base, "-sw.js") ||
		strings.HasPrefix(base, "service-worker")
}

func cacheControlFor(name string, o *Options) string {
	if isServiceWorkerScript(name) {
		return o.ServiceWorkerCacheControl
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".html", "":
		return o.HTMLCacheControl
	case ".css", ".js", ".mjs", ".wasm",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".eot", ".map":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}
