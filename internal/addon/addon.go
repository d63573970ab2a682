package addon

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/log"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/xerrors"
)

var (
	ErrInvalidAddon     = errors.New("addon: invalid addon")
	ErrDuplicateAddon   = errors.New("addon: duplicate addon name")
	ErrUnknownAddon     = errors.New("addon: unknown addon")
	ErrAlreadyInstalled = errors.New("addon: registry already installed")
)

// App is the handle addons receive when the server starts.
type App interface {
	// Use appends middleware to the host pipeline. nil entries are ignored.
	Use(mws ...func(http.Handler) http.Handler)
}

// AppFunc adapts a function to App.
type AppFunc func(mws ...func(http.Handler) http.Handler)

func (f AppFunc) Use(mws ...func(http.Handler) http.Handler) { f(mws...) }

type Addon interface {
	Name() string
	// IsDevelopingAddon is a build-time flag, reported but not acted on.
	IsDevelopingAddon() bool
	// ServerMiddleware is called once at server start.
	ServerMiddleware(app App) error
}

// Info describes a registered addon.
type Info struct {
	Name       string `json:"name"`
	Developing bool   `json:"developing"`
	Enabled    bool   `json:"enabled"`
	Installed  bool   `json:"installed"`
}

// Registry holds addons in registration order. Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	addons    []Addon
	byName    map[string]Addon
	enabled   map[string]bool // nil means every registered addon
	installed map[string]bool
	done      bool
}

func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]Addon),
		installed: make(map[string]bool),
	}
}

func (r *Registry) Register(a Addon) error {
	if a == nil {
		return ErrInvalidAddon
	}
	name := a.Name()
	if name == "" {
		return xerrors.Wrap(ErrInvalidAddon, "empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrAlreadyInstalled
	}
	if _, dup := r.byName[name]; dup {
		return xerrors.Wrapf(ErrDuplicateAddon, "%q", name)
	}
	r.addons = append(r.addons, a)
	r.byName[name] = a
	return nil
}

// Enable limits Install to the named addons. Without a call to Enable every
// registered addon is installed. An empty call keeps that default.
func (r *Registry) Enable(names ...string) error {
	if len(names) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrAlreadyInstalled
	}
	set := make(map[string]bool, len(names))
	var errs []error
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			errs = append(errs, xerrors.Wrapf(ErrUnknownAddon, "%q", n))
			continue
		}
		set[n] = true
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.enabled = set
	return nil
}

// Install runs the ServerMiddleware hook of every enabled addon, in
// registration order. The first failing hook stops installation.
func (r *Registry) Install(ctx context.Context, app App) error {
	if app == nil {
		return xerrors.New("addon: nil app")
	}

	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return ErrAlreadyInstalled
	}
	r.done = true
	var todo []Addon
	for _, a := range r.addons {
		if r.isEnabled(a.Name()) {
			todo = append(todo, a)
		}
	}
	r.mu.Unlock()

	L := log.FromContext(ctx)
	// hooks run without the lock held so they may call back into the registry
	for _, a := range todo {
		if err := a.ServerMiddleware(app); err != nil {
			return xerrors.Wrapf(err, "install addon %q", a.Name())
		}
		r.mu.Lock()
		r.installed[a.Name()] = true
		r.mu.Unlock()

		L.Info(ctx, "addon installed",
			"addon", a.Name(),
			"developing", a.IsDevelopingAddon(),
		)
	}
	return nil
}

// Infos reports every registered addon in registration order.
func (r *Registry) Infos() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Info, 0, len(r.addons))
	for _, a := range r.addons {
		out = append(out, Info{
			Name:       a.Name(),
			Developing: a.IsDevelopingAddon(),
			Enabled:    r.isEnabled(a.Name()),
			Installed:  r.installed[a.Name()],
		})
	}
	return out
}

// caller holds r.mu
func (r *Registry) isEnabled(name string) bool {
	return r.enabled == nil || r.enabled[name]
}
