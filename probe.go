package nodeup

import (
	"context"
	"os/exec"
	"strings"
)

// installation is an existing runtime found on the host, either on the
// search path or inside the local install directory.
type installation struct {
	path    string
	version string
}

// probeGlobal looks an executable up on the search path and asks it for its
// version. A missing binary, or one that fails to report a version, counts
// as absent.
func probeGlobal(ctx context.Context, name string) (installation, bool) {
	binpath, err := exec.LookPath(name)
	if err != nil {
		return installation{}, false
	}

	ver, ok := probeVersion(ctx, binpath)
	if !ok {
		return installation{}, false
	}

	return installation{path: binpath, version: ver}, true
}

// probeVersion runs `<binary> --version` and normalizes the reported
// version by stripping the leading 'v'.
func probeVersion(ctx context.Context, binpath string) (string, bool) {
	out, err := exec.CommandContext(ctx, binpath, "--version").Output()
	if err != nil {
		return "", false
	}

	ver := strings.TrimPrefix(strings.TrimSpace(string(out)), "v")
	if ver == "" {
		return "", false
	}

	return ver, true
}
