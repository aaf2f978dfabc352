package fanray

import "errors"

// Sentinel errors returned by the store and lookup adapter. Handlers branch on
// these with errors.Is; anything else is treated as an internal failure.
var (
	// ErrNotFound means the underlying content row does not exist.
	ErrNotFound = errors.New("fanray: not found")

	// ErrDuplicateSlug means a published post already occupies the same
	// (date, slug) address.
	ErrDuplicateSlug = errors.New("fanray: duplicate slug for date")

	// ErrNoRouteMatch means no route pattern matched the request path. It is
	// distinct from ErrNotFound: the path shape itself is unknown, as opposed
	// to a well-formed address whose content is missing.
	ErrNoRouteMatch = errors.New("fanray: no route match")
)
