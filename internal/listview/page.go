// Package listview implements the paginated list-and-action view pattern shared by
// every collection page of the dashboard: fetch a page, render it, expand rows,
// dispatch per-row actions and patch the affected row locally.
package listview

import (
	"context"
	"fmt"
)

// Resource names a backend collection, e.g. "inscripciones".
type Resource string

// PageRequest describes one page fetch.
type PageRequest struct {
	Resource Resource
	Page     int
	Limit    int
	Search   string
}

// Validate checks the request bounds.
func (r PageRequest) Validate() error {
	if r.Resource == "" {
		return fmt.Errorf("listview: page request without resource")
	}
	if r.Page < 1 {
		return fmt.Errorf("listview: page must be >= 1, got %d", r.Page)
	}
	if r.Limit < 1 {
		return fmt.Errorf("listview: limit must be > 0, got %d", r.Limit)
	}
	return nil
}

// PageResult is one normalised page. TotalPages is taken from the server as is.
type PageResult[R any] struct {
	Items        []R
	TotalRecords int
	TotalPages   int
}

// Fetcher loads one page of rows. Implementations must not mutate caller state.
type Fetcher[R any] interface {
	FetchPage(ctx context.Context, req PageRequest) (PageResult[R], error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[R any] func(ctx context.Context, req PageRequest) (PageResult[R], error)

// FetchPage calls f.
func (f FetcherFunc[R]) FetchPage(ctx context.Context, req PageRequest) (PageResult[R], error) {
	return f(ctx, req)
}
