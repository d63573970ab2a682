package opshttp

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/addon"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/health"
)

// AddonLister reports installed addons; *addon.Registry satisfies it.
type AddonLister interface {
	Infos() []addon.Info
}

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	Addons      AddonLister

	// AllowPublic disables the private-network guard. Only for tests and
	// hosts where the admin port is firewalled some other way.
	AllowPublic bool

	UseRecoverMW bool
	OnPanic      func()
}
