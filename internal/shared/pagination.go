package shared

import (
	"net/url"
	"strconv"
)

// Pager is the view model behind the Previous/Next controls of a list.
type Pager struct {
	Page         int
	PageSize     int
	TotalPages   int
	TotalRecords int
	HasPrev      bool
	HasNext      bool
	StartIndex   int
	EndIndex     int
	PrevURL      string
	NextURL      string
}

// PagerInput carries the state a pager is computed from.
type PagerInput struct {
	BasePath     string
	Search       string
	Page         int
	PageSize     int
	Shown        int
	TotalRecords int
	TotalPages   int
	Busy         bool
}

// NewPager computes navigation metadata. Controls are disabled while busy, on the
// first page (Previous) and on the last page (Next). Totals come from the server.
func NewPager(in PagerInput) Pager {
	p := Pager{
		Page:         in.Page,
		PageSize:     in.PageSize,
		TotalPages:   in.TotalPages,
		TotalRecords: in.TotalRecords,
	}
	if p.Page < 1 {
		p.Page = 1
	}
	p.HasPrev = !in.Busy && p.Page > 1 && p.TotalPages > 0
	p.HasNext = !in.Busy && p.Page < p.TotalPages
	if in.Shown > 0 && in.PageSize > 0 {
		p.StartIndex = (p.Page-1)*in.PageSize + 1
		p.EndIndex = p.StartIndex + in.Shown - 1
	}
	if p.HasPrev {
		p.PrevURL = pageURL(in.BasePath, in.Search, p.Page-1)
	}
	if p.HasNext {
		p.NextURL = pageURL(in.BasePath, in.Search, p.Page+1)
	}
	return p
}

func pageURL(base, search string, page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if search != "" {
		q.Set("q", search)
	}
	return base + "?" + q.Encode()
}
