package nodeup

import "errors"

// Error kinds surfaced by an install run. All of them are fatal within a
// run: there is no partial success and no retry, the remaining steps of the
// state machine are aborted and the failure reaches the invoking process
// verbatim. The one exception is malformed catalog entries, which are
// skipped during matching instead of failing the run.
var (
	// ErrNoMatchingVersion means no catalog candidate satisfied the
	// constraint; the message always includes the constraint expression.
	ErrNoMatchingVersion = errors.New("no version matching constraint")

	// ErrTransferFailure covers failed downloads and catalog fetches.
	ErrTransferFailure = errors.New("transfer failed")

	// ErrExtractionFailure covers archives that cannot be unpacked.
	ErrExtractionFailure = errors.New("extraction failed")

	// ErrFilesystemFailure covers target directories that cannot be
	// created or written.
	ErrFilesystemFailure = errors.New("filesystem failure")
)
