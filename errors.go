package mascotlayer

import "errors"

var (
	// ErrUnavailable is returned by every compose call when the layer store
	// could not be loaded at construction time.
	ErrUnavailable = errors.New("mascotlayer: compositor unavailable")

	// ErrUnsupportedFormat is returned for output formats other than PNG and JPEG.
	ErrUnsupportedFormat = errors.New("mascotlayer: unsupported output format")

	// ErrInvalidStore reports layer metadata that violates the store invariants.
	ErrInvalidStore = errors.New("mascotlayer: invalid layer store")

	// ErrUnknownLayer is returned by the layer cache for identifiers missing
	// from the store.
	ErrUnknownLayer = errors.New("mascotlayer: unknown layer")
)
