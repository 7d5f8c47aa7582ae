package model

import "errors"

// Error kinds callers can discriminate with errors.Is. Everything else is
// either absorbed with a fallback or wrapped around one of these.
var (
	// ErrInvalidArgument marks a malformed registry, family, or country
	// code. No network or disk I/O happens after this is raised.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFetchFailed marks an exhausted feed download with no cached index
	// to fall back on.
	ErrFetchFailed = errors.New("feed fetch failed")

	// ErrCacheMiss marks an absent cache entry. Internal to the pipeline:
	// the service reacts by fetching, never by failing.
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrCacheCorrupt marks an existing cache entry that cannot be
	// deserialized. Deliberately distinct from ErrCacheMiss so a broken
	// filesystem or format drift surfaces instead of triggering silent
	// re-fetches.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)
