package httpserver

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/addon"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/health"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/log"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/uihandler"
)

type Options struct {
	Logger log.Logger
	Port   int

	// Addons are installed on the router before any route is registered.
	Addons *addon.Registry
	UI     *uihandler.Handler

	Health    health.Probe
	Readiness health.Probe

	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions

	UseRecoverMW bool
	OnPanic      func() // called after a recovered panic, e.g. to bump a counter
}
