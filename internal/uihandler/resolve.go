package uihandler

import (
	"io/fs"
	"path"
	"strings"
)

// resolution is what a request path maps to inside the UI build.
type resolution struct {
	file       string // relative to the FS root
	redirectTo string // path relative to the mount, ends with /
	fallback   bool   // file is the index served for a client-side route
}

// resolvePath maps p (relative to the mount, leading slash) to a file.
// Paths with NUL, backslashes, or dot segments never resolve.
// Extensionless paths that match no file get the index so the UI's
// router can handle them. Paths with an extension must exist.
func resolvePath(p string, fsys fs.FS, index string) (resolution, bool) {
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if strings.ContainsAny(p, "\x00\\") || hasDotSegments(p) {
		return resolution{}, false
	}

	dir := strings.HasSuffix(p, "/")
	clean := path.Clean(p)
	name := strings.TrimPrefix(clean, "/")

	switch {
	case clean == "/":
		if existsFile(fsys, index) {
			return resolution{file: index}, true
		}
		return resolution{}, false

	case dir:
		if f := name + "/" + index; existsFile(fsys, f) {
			return resolution{file: f}, true
		}

	case path.Ext(clean) != "":
		if existsFile(fsys, name) {
			return resolution{file: name}, true
		}
		return resolution{}, false

	default:
		if existsFile(fsys, name) {
			return resolution{file: name}, true
		}
		if existsFile(fsys, name+"/"+index) {
			return resolution{redirectTo: clean + "/"}, true
		}
	}

	if existsFile(fsys, index) {
		return resolution{file: index, fallback: true}, true
	}
	return resolution{}, false
}

func hasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func existsFile(fsys fs.FS, name string) bool {
	if fsys == nil || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
