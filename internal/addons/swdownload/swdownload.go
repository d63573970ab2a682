// Package swdownload is the server half of the service-worker-authenticated-download
// addon. The UI registers a service worker that attaches credentials to
// download requests; browsers only let that worker control the whole
// origin when the response allows it, so every response carries
// Service-Worker-Allowed: /.
package swdownload

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/addon"
)

const (
	Name = "service-worker-authenticated-download"

	// DevelopingAddon is fixed at build time.
	DevelopingAddon = true

	HeaderName   = "Service-Worker-Allowed"
	AllowedScope = "/"
)

// Middleware sets Service-Worker-Allowed: / and always calls next.
// It keeps no state and is safe for concurrent use.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderName, AllowedScope)
		next.ServeHTTP(w, r)
	})
}

type Addon struct{}

var _ addon.Addon = Addon{}

func New() Addon { return Addon{} }

func (Addon) Name() string            { return Name }
func (Addon) IsDevelopingAddon() bool { return DevelopingAddon }

// ServerMiddleware registers Middleware on the host app.
func (Addon) ServerMiddleware(app addon.App) error {
	app.Use(Middleware)
	return nil
}
