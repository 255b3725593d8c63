package dist

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/nodeup/nodeup/version"
)

// ArchiveKind describes how a downloaded artifact must be unpacked.
type ArchiveKind int

const (
	// RawExecutable is a bare node.exe that only needs to be dropped in place.
	RawExecutable ArchiveKind = iota
	// TarGz is a gzip compressed tarball with a single leading directory.
	TarGz
	// Zip is a zip archive with a single leading directory.
	Zip
)

// ArtifactLocation is the canonical download location of one release
// artifact together with the strategy needed to unpack it.
type ArtifactLocation struct {
	URL  string
	Kind ArchiveKind
}

// ErrUnsupportedPlatform is returned when no distribution exists for the
// host descriptor. There is never a silent fallback artifact.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// DefaultMirror is the upstream release file server.
const DefaultMirror = "https://nodejs.org/dist"

// URL patterns per artifact family. Releases before 4.0.0 published windows
// executables directly under the version folder; from 4.0.0 on they live in
// per-platform subfolders.
const (
	winModernPattern   = "{{.Mirror}}/v{{.Version}}/win-{{.Arch}}/node.exe"
	winLegacy32Pattern = "{{.Mirror}}/v{{.Version}}/node.exe"
	winLegacy64Pattern = "{{.Mirror}}/v{{.Version}}/x64/node.exe"
	tarballPattern     = "{{.Mirror}}/v{{.Version}}/node-v{{.Version}}-{{.Slug}}.tar.gz"
)

// newStyleFloor is the first release with per-platform windows folders and
// official ARM builds.
var newStyleFloor = version.Version{Major: 4}

// Locator maps resolved versions to artifact locations for a platform.
type Locator struct {
	mirror string
}

type LocatorOption func(l *Locator)

// WithMirror points the locator at a different release file server, e.g. a
// corporate mirror of nodejs.org/dist. Trailing slashes are dropped.
func WithMirror(base string) LocatorOption {
	return func(l *Locator) {
		if base != "" {
			l.mirror = strings.TrimRight(base, "/")
		}
	}
}

// NewLocator creates a locator against the default mirror.
func NewLocator(opts ...LocatorOption) *Locator {
	loc := Locator{mirror: DefaultMirror}

	for _, opt := range opts {
		opt(&loc)
	}

	return &loc
}

// Locate returns the artifact for a resolved version on the given platform.
// Combinations with no known distribution fail with [ErrUnsupportedPlatform]
// wrapped together with the reported OS/arch; the caller surfaces that to
// the user instead of guessing at a default.
func (l *Locator) Locate(ver string, platform Platform) (ArtifactLocation, error) {
	parsed, err := version.Parse(ver)
	if err != nil {
		return ArtifactLocation{}, fmt.Errorf("locate: %w", err)
	}

	fields := artifact{
		Mirror:  l.mirror,
		Version: parsed.String(),
		Arch:    archName(platform.Bits),
	}
	modern := version.Compare(parsed, newStyleFloor) >= 0

	switch platform.OS {
	case Windows:
		switch {
		case modern:
			return ArtifactLocation{URL: fields.resolve(winModernPattern), Kind: RawExecutable}, nil
		case platform.Bits == 64:
			return ArtifactLocation{URL: fields.resolve(winLegacy64Pattern), Kind: RawExecutable}, nil
		default:
			return ArtifactLocation{URL: fields.resolve(winLegacy32Pattern), Kind: RawExecutable}, nil
		}

	case MacOS:
		fields.Slug = "darwin-" + fields.Arch
		return ArtifactLocation{URL: fields.resolve(tarballPattern), Kind: TarGz}, nil

	case SunOS:
		fields.Slug = "sunos-" + fields.Arch
		return ArtifactLocation{URL: fields.resolve(tarballPattern), Kind: TarGz}, nil

	case Linux:
		switch platform.ARM {
		case ARMNone:
			fields.Slug = "linux-" + fields.Arch
		case ARMv6l, ARMv7l:
			if !modern {
				return ArtifactLocation{}, fmt.Errorf("%w: no ARM distribution of node %s for %s", ErrUnsupportedPlatform, parsed, platform)
			}
			fields.Slug = "linux-arm" + string(platform.ARM)
		case ARM64:
			if !modern || platform.Bits != 64 {
				return ArtifactLocation{}, fmt.Errorf("%w: no ARM distribution of node %s for %s", ErrUnsupportedPlatform, parsed, platform)
			}
			fields.Slug = "linux-arm64"
		default:
			return ArtifactLocation{}, fmt.Errorf("%w: unrecognized 32bit ARM variant on %s", ErrUnsupportedPlatform, platform)
		}
		return ArtifactLocation{URL: fields.resolve(tarballPattern), Kind: TarGz}, nil

	default:
		return ArtifactLocation{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
}

// archName is the distribution naming for the pointer width.
func archName(bits int) string {
	if bits == 64 {
		return "x64"
	}
	return "x86"
}

// artifact is the field set available to URL patterns.
type artifact struct {
	Mirror  string
	Version string
	Arch    string
	Slug    string
}

// resolve executes a URL pattern with the artifact fields. Patterns are
// package constants, so a parse failure is a programmer error and panics.
func (a artifact) resolve(pattern string) string {
	tmpl, err := template.New("artifact").Parse(pattern)
	if err != nil {
		panic(err)
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, a); err != nil {
		panic(err)
	}

	return bld.String()
}
