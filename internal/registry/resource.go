package registry

import (
	"context"
)

// ContentProvider produces the current content of a resource on demand.
// Content is never cached by the registry; every read goes back to the
// provider.
type ContentProvider func(ctx context.Context) (string, error)

// Resource is a named, lazily-fetched piece of content exposed to observers.
type Resource struct {
	// URI uniquely identifies the resource and is its stable key.
	URI string

	// Name is a human-readable label, typically the file base name.
	Name string

	// MIMEType is static metadata describing the content.
	MIMEType string

	// Provider returns the resource's current content.
	Provider ContentProvider
}
