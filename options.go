package nodeup

import (
	"strings"

	"github.com/nodeup/nodeup/dist"
)

type Option func(i *Installer)

// WithInstallDir sets the directory the runtime is installed into.
// Defaults to ./.nodeup relative to the working directory.
func WithInstallDir(dir string) Option {
	return func(i *Installer) {
		if dir != "" {
			i.dir = dir
		}
	}
}

// WithBinDir sets the directory the entry-point scripts are written into.
// Defaults to ./bin relative to the working directory.
func WithBinDir(dir string) Option {
	return func(i *Installer) {
		if dir != "" {
			i.binDir = dir
		}
	}
}

// WithMirror points both the release catalog and the artifact locator at a
// different release file server, e.g. a corporate mirror of nodejs.org/dist.
func WithMirror(base string) Option {
	return func(i *Installer) {
		i.mirror = strings.TrimRight(base, "/")
	}
}

// WithForceLocal skips the global install entirely and always provisions
// into the local directory, even when a satisfying global runtime exists.
func WithForceLocal() Option {
	return func(i *Installer) {
		i.forceLocal = true
	}
}

// WithPlatform overrides the detected host descriptor.
// Useful to provision for a different target, e.g. a 32bit runtime on a
// 64bit host.
func WithPlatform(platform dist.Platform) Option {
	return func(i *Installer) {
		i.platform = platform
	}
}

// WithCatalog replaces the release catalog, overriding whatever mirror is
// configured.
func WithCatalog(catalog Catalog) Option {
	return func(i *Installer) {
		if catalog != nil {
			i.catalog = catalog
		}
	}
}
