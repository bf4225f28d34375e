package epub

import "errors"

var (
	// ErrDuplicateID is returned when an id is already reserved in the package.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrDuplicateHref is returned when two items would share a path.
	ErrDuplicateHref = errors.New("duplicate href")
	// ErrMissingContent is returned by WriteTo when an item has no bytes.
	ErrMissingContent = errors.New("item has no content")
	// ErrInvalidScope is returned for an itemref that belongs to another spine.
	ErrInvalidScope = errors.New("itemref is not in the spine")
	// ErrUnsupportedVersion is returned for a version that is not a number.
	ErrUnsupportedVersion = errors.New("unsupported OPF version")
	// ErrInvalidProperty is returned for values outside a property's vocabulary.
	ErrInvalidProperty = errors.New("invalid property value")
	// ErrFallbackCycle is returned when a fallback link would loop.
	ErrFallbackCycle = errors.New("fallback chain would form a cycle")
)
