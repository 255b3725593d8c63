package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a dotted numeric identifier with an optional pre-release or
// build suffix. The normalized form never carries a leading 'v'.
type Version struct {
	Major int
	Minor int
	Patch int

	raw string
}

// Parse normalizes and parses a version string.
// A leading 'v' is stripped; a pre-release or build suffix stays on the
// normalized string but is excluded from the numeric components. Missing
// components default to zero, so "4" and "4.0.0" parse to the same numbers.
func Parse(input string) (Version, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(input), "v")
	if normalized == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	core := normalized
	if idx := strings.IndexAny(core, "-+"); idx >= 0 {
		core = core[:idx]
	}

	if !semver.IsValid("v" + core) {
		return Version{}, fmt.Errorf("invalid version %q", input)
	}

	ver := Version{raw: normalized}
	for i, component := range strings.Split(core, ".") {
		num, err := strconv.Atoi(component)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", input, err)
		}

		switch i {
		case 0:
			ver.Major = num
		case 1:
			ver.Minor = num
		case 2:
			ver.Patch = num
		}
	}

	return ver, nil
}

// String returns the normalized version string, suffix included.
func (v Version) String() string {
	return v.raw
}

// Compare orders two versions numerically per dot-separated component.
// Suffixes are not considered, so 4.0.0-rc1 and 4.0.0 compare as equal.
func Compare(a, b Version) int {
	return semver.Compare(a.core(), b.core())
}

// core renders the numeric components in the canonical form understood
// by [semver.Compare].
func (v Version) core() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}
