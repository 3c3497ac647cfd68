package domain

import "errors"

// Sentinel errors used across all layers. The run controller decides
// retry-vs-abort; everything here is fatal once it surfaces.
var (
	// ErrAuthentication: the catalog site rejected the configured
	// credentials, or login stayed unreachable past the retry budget.
	ErrAuthentication = errors.New("catalog authentication failed")

	// ErrExportNotFound: the data-dumps page no longer contains the
	// expected download anchor. The page structure changed; a code fix
	// is needed, retrying cannot help.
	ErrExportNotFound = errors.New("bulk export link not found")

	// ErrDownload: the export page or archive stayed unreachable past
	// the retry budget. The site is down or blocking us, not broken.
	ErrDownload = errors.New("export download failed")

	// ErrArchiveFormat: the downloaded archive is corrupt or does not
	// contain the expected inner file.
	ErrArchiveFormat = errors.New("unexpected archive format")

	// ErrEnrichmentAPI: the detail API returned a non-transient failure
	// status. Likely a malformed request; retrying would mask a bug.
	ErrEnrichmentAPI = errors.New("enrichment api rejected request")

	// ErrMalformedExport: the share of skipped export rows exceeded the
	// configured threshold.
	ErrMalformedExport = errors.New("too many malformed export rows")

	// ErrRunInProgress: another pipeline instance holds the run lock.
	ErrRunInProgress = errors.New("sync run already in progress")

	ErrNotFound = errors.New("not found")
)
