// Package uihandler serves a built single-page UI from an fs.FS under a
// mount path, with a maintenance page when no build is installed.
package uihandler

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/xerrors"
)

type Handler struct {
	opts  Options
	mount string // MountPath without the trailing slash
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts, mount: strings.TrimSuffix(opts.MountPath, "/")}, nil
}

// HasUI reports whether a UI build is being served.
func (h *Handler) HasUI() bool { return h.opts.UI != nil }

func (h *Handler) MountPath() string { return h.opts.MountPath }

// Mount registers the UI routes: the mount subtree, the bare mount path,
// and / redirecting to the mount.
func (h *Handler) Mount(r chi.Router) {
	r.Handle(h.opts.MountPath+"*", h)
	if h.mount != "" {
		r.Handle(h.mount, h)
		r.Handle("/", http.HandlerFunc(h.redirectToMount))
	}
}

func (h *Handler) redirectToMount(w http.ResponseWriter, r *http.Request) {
	if !allowedMethod(w, r) {
		return
	}
	http.Redirect(w, r, h.opts.MountPath, http.StatusFound)
}

func allowedMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowedMethod(w, r) {
		return
	}

	p := r.URL.Path
	if p == h.mount && h.mount != "" {
		http.Redirect(w, r, h.opts.MountPath, http.StatusPermanentRedirect)
		return
	}
	rel, ok := strings.CutPrefix(p, h.mount)
	if !ok || !strings.HasPrefix(rel, "/") {
		h.serveNotFound(w, r)
		return
	}

	if h.opts.UI == nil {
		h.serveMaintenance(w, r)
		return
	}

	res, found := resolvePath(rel, h.opts.UI, h.opts.IndexFile)
	if !found {
		h.serveNotFound(w, r)
		return
	}
	if res.redirectTo != "" {
		http.Redirect(w, r, h.mount+res.redirectTo, http.StatusPermanentRedirect)
		return
	}

	if cc := cacheControlFor(res.file, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	if res.fallback {
		// ServeFileFS would redirect ".../index.html" requests; serve the
		// content directly for client-side routes
		h.serveFileWithStatus(w, r, http.StatusOK, h.opts.UI, res.file)
		return
	}
	http.ServeFileFS(w, r, h.opts.UI, res.file)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	h.serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if existsFile(h.opts.UI, h.opts.NotFoundFile) {
		h.serveFileWithStatus(w, r, http.StatusNotFound, h.opts.UI, h.opts.NotFoundFile)
		return
	}
	http.Error(w, "404 page not found", http.StatusNotFound)
}

func (h *Handler) serveError(w http.ResponseWriter, r *http.Request, err error) {
	h.opts.Logger.Error(r.Context(), err, "ui file serve failed", "url.path", r.URL.Path)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// statusOverrideWriter replaces the first status ServeContent writes.
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

// serveFileWithStatus serves name with status regardless of what
// ServeContent would pick. Conditional and range headers are dropped so the
// full body always goes out.
func (h *Handler) serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	f, err := fsys.Open(name)
	if err != nil {
		h.serveError(w, r, xerrors.Wrapf(err, "open %s", name))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.serveError(w, r, xerrors.Wrapf(err, "stat %s", name))
		return
	}

	r = r.Clone(r.Context())
	for _, k := range []string{"If-Modified-Since", "If-None-Match", "If-Range", "Range", "If-Match", "If-Unmodified-Since"} {
		r.Header.Del(k)
	}
	sw := &statusOverrideWriter{ResponseWriter: w, status: status}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(f)
		if err != nil {
			h.serveError(w, r, xerrors.Wrapf(err, "read %s", name))
			return
		}
		rs = bytes.NewReader(b)
	}
	http.ServeContent(sw, r, info.Name(), info.ModTime(), rs)
}
