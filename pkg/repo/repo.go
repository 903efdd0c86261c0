// Package repo defines the generic read-repository contract the API's
// case-browsing endpoints consume.
package repo

import "context"

// Reader is the read side of a repository. The case base is immutable
// once loaded, so stores implement only reads.
type Reader[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
}

// ListOpts pages and filters List calls. Filter keys are defined by
// each implementation.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}

// PageSize returns Limit, or fallback when the caller left it unset.
func (o ListOpts) PageSize(fallback int) int {
	if o.Limit <= 0 {
		return fallback
	}
	return o.Limit
}
