// Package webassets embeds the pages served when no UI build is present.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

const MaintenancePage = "maintenance.html"

//go:embed fallback
var embedded embed.FS

// FallbackFS is rooted at fallback/.
func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		panic(fmt.Errorf("webassets: fallback subfs: %w", err))
	}
	return sub
}

// Maintenance returns the maintenance page body.
func Maintenance() []byte {
	b, err := fs.ReadFile(FallbackFS(), MaintenancePage)
	if err != nil {
		panic(fmt.Errorf("webassets: %s: %w", MaintenancePage, err))
	}
	return b
}
