package uihandler

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/keithlinneman/linnemanlabs-uihost/internal/log"
	"github.com/keithlinneman/linnemanlabs-uihost/internal/xerrors"
)

var ErrInvalidOptions = errors.New("uihandler: invalid options")

type Options struct {
	Logger log.Logger

	// UI is the built UI. nil serves the maintenance page.
	UI fs.FS
	// FallbackFS holds MaintenanceFile.
	FallbackFS fs.FS

	// MountPath is where the UI lives, with leading and trailing slash.
	MountPath string // default: "/ui/"

	IndexFile       string // default: "index.html"
	NotFoundFile    string // optional, read from UI. default: "404.html"
	MaintenanceFile string // default: "maintenance.html"

	HTMLCacheControl          string // default: "no-cache"
	AssetCacheControl         string // default: "public, max-age=31536000, immutable"
	ServiceWorkerCacheControl string // default: "no-cache"
	OtherCacheControl         string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.MountPath == "" {
		o.MountPath = "/ui/"
	}
	if o.IndexFile == "" {
		o.IndexFile = "index.html"
	}
	if o.NotFoundFile == "" {
		o.NotFoundFile = "404.html"
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.ServiceWorkerCacheControl == "" {
		o.ServiceWorkerCacheControl = "no-cache"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if !strings.HasPrefix(o.MountPath, "/") || !strings.HasSuffix(o.MountPath, "/") || hasDotSegments(o.MountPath) {
		return xerrors.Wrapf(ErrInvalidOptions, "MountPath %q must start and end with /", o.MountPath)
	}
	if o.FallbackFS == nil {
		return xerrors.Wrap(ErrInvalidOptions, "FallbackFS is nil")
	}
	// a mispackaged binary should fail at boot, not on the first request
	if !existsFile(o.FallbackFS, o.MaintenanceFile) {
		return xerrors.Wrapf(ErrInvalidOptions, "%q missing from fallback FS", o.MaintenanceFile)
	}
	if o.UI != nil && !existsFile(o.UI, o.IndexFile) {
		return xerrors.Wrapf(ErrInvalidOptions, "UI build has no %s", o.IndexFile)
	}
	return nil
}
