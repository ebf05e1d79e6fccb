package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages. Callers test with errors.Is so
// wrapped context survives.
var (
	// ErrEmptyPlaylist: structurally valid playlist with zero usable entries.
	// Distinct from a ParseError so the caller can phrase it differently.
	ErrEmptyPlaylist = errors.New("playlist contains no usable entries")

	// ErrValidation: missing tenant scope or malformed page/size parameters.
	ErrValidation = errors.New("invalid request parameters")

	// ErrStore: a persistence batch failed mid-replace.
	ErrStore = errors.New("catalog store failure")

	// ErrSearch: candidate retrieval from the store failed during a search.
	ErrSearch = errors.New("search failure")

	// ErrIngestInProgress: a replace for the same tenant is already running.
	ErrIngestInProgress = errors.New("ingest already in progress for tenant")

	// ErrFetchTimeout: a remote playlist fetch exceeded its deadline.
	ErrFetchTimeout = errors.New("playlist fetch timed out")
)

// ParseError means the input has no recognizable directive/URI structure at
// all (e.g. binary garbage). A playlist that parses but yields nothing is
// ErrEmptyPlaylist instead.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed playlist: %s", e.Reason)
}
