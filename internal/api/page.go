package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Page is the paginated envelope returned by collection endpoints.
type Page[T any] struct {
	Data         []T `json:"data"`
	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
	Page         int `json:"page"`
	Limit        int `json:"limit"`
}

// FetchPage requests one page of a collection endpoint such as "inscripciones".
func FetchPage[T any](ctx context.Context, c *Client, resource string, page, limit int) (Page[T], error) {
	if page < 1 {
		return Page[T]{}, fmt.Errorf("api: fetch %s: page must be >= 1, got %d", resource, page)
	}
	if limit < 1 {
		return Page[T]{}, fmt.Errorf("api: fetch %s: limit must be > 0, got %d", resource, limit)
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var out Page[T]
	if err := c.getJSON(ctx, "fetch "+resource, resource, query, &out); err != nil {
		return Page[T]{}, err
	}
	if out.Data == nil {
		out.Data = []T{}
	}
	if out.TotalRecords < 0 || out.TotalPages < 0 {
		return Page[T]{}, &DecodeError{Op: "fetch " + resource, Err: fmt.Errorf("negative totals %d/%d", out.TotalRecords, out.TotalPages)}
	}
	return out, nil
}
