package domain

import "errors"

// Engine error kinds. All are scoped to a single event or scan invocation;
// none is fatal to the process.
var (
	// ErrInvalidCoordinate rejects latitudes outside ±90 or longitudes
	// outside ±180.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrUnknownTag means the tag is absent or inactive. Non-retryable.
	ErrUnknownTag = errors.New("unknown rfid tag")

	// ErrUnknownReader means the reader is not registered. Non-retryable.
	ErrUnknownReader = errors.New("unknown rfid reader")

	// ErrTagUnassigned means the tag exists but no asset wears it. The
	// event is still recorded; it just produces no geofence evaluation.
	ErrTagUnassigned = errors.New("tag not assigned to an asset")

	// ErrStaleEvent means the event is older than the stored containment
	// state for its pair. Logged and dropped.
	ErrStaleEvent = errors.New("stale detection event")

	// ErrDependencyTimeout marks a transient lookup timeout. The whole
	// ingest call is safe to retry: persistence is keyed by event id and
	// state updates are timestamp-gated.
	ErrDependencyTimeout = errors.New("dependency timeout")

	// ErrNotFound is the generic read-miss for query boundaries.
	ErrNotFound = errors.New("not found")
)
