package nodeup

import (
	"fmt"
	"os"
	"path/filepath"
)

// entryPoint describes one stable wrapper script exposed in the bin
// directory. Wrappers always dispatch to an absolute resolved path so they
// keep working regardless of the caller's working directory or search path.
type entryPoint struct {
	name   string
	target string
	// viaNode marks targets that are javascript entry files rather than
	// executables; the wrapper runs them through this node binary.
	viaNode string
}

// writeEntryPoint renders the wrapper for one entry point into the bin
// directory: a .cmd shim on windows, an exec shell script everywhere else.
// Existing wrappers are overwritten so repeated runs converge on the
// current decision.
func writeEntryPoint(binDir string, ep entryPoint, windows bool) error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %s", ErrFilesystemFailure, binDir, err)
	}

	var (
		script   string
		contents string
	)

	switch {
	case windows && ep.viaNode != "":
		script = filepath.Join(binDir, ep.name+".cmd")
		contents = fmt.Sprintf("@ECHO OFF\r\n\"%s\" \"%s\" %%*\r\n", ep.viaNode, ep.target)
	case windows:
		script = filepath.Join(binDir, ep.name+".cmd")
		contents = fmt.Sprintf("@ECHO OFF\r\n\"%s\" %%*\r\n", ep.target)
	case ep.viaNode != "":
		script = filepath.Join(binDir, ep.name)
		contents = fmt.Sprintf("#!/bin/sh\nexec \"%s\" \"%s\" \"$@\"\n", ep.viaNode, ep.target)
	default:
		script = filepath.Join(binDir, ep.name)
		contents = fmt.Sprintf("#!/bin/sh\nexec \"%s\" \"$@\"\n", ep.target)
	}

	if err := os.WriteFile(script, []byte(contents), 0o755); err != nil {
		return fmt.Errorf("%w: write %s: %s", ErrFilesystemFailure, script, err)
	}

	return nil
}
