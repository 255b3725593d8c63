// Package nodeup provisions a node runtime matching a declared version
// constraint.
//
// At the core, an [Installer] is a declaration of the constraint
// the runtime must satisfy and where the installation should live. One run
// walks a strict linear state machine: probe the host for existing global
// and local installs, decide whether anything needs installing at all,
// resolve the constraint against the remote release index, and finally
// expose the chosen runtime through stable entry-point scripts.
//
// Version resolution and platform targeting are pure and live in the
// version and dist packages; this package coordinates them and performs
// the mechanical download, extraction and script writing.
//
// example usage
//
//	// aggregate the constraint declared by the project and its dependencies
//	expr := config.MergedConstraint(".")
//
//	installer, err := nodeup.New(
//		expr,
//		nodeup.WithInstallDir(".nodeup"),
//		nodeup.WithBinDir("bin"),
//	)
//	if err != nil {
//		return err
//	}
//
//	// idempotent: an already satisfying install means no download happens
//	if err := installer.Run(ctx); err != nil {
//		return fmt.Errorf("failed to provision node: %w", err)
//	}
package nodeup
