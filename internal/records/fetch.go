package records

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/caza2026/panel/internal/api"
	"github.com/caza2026/panel/internal/listview"
)

// PageFetcher loads pages of R from the collection endpoint named by the request resource.
type PageFetcher[R any] struct {
	client *api.Client
}

// NewPageFetcher returns a fetcher over client.
func NewPageFetcher[R any](client *api.Client) PageFetcher[R] {
	return PageFetcher[R]{client: client}
}

// FetchPage implements listview.Fetcher.
func (f PageFetcher[R]) FetchPage(ctx context.Context, req listview.PageRequest) (listview.PageResult[R], error) {
	if err := req.Validate(); err != nil {
		return listview.PageResult[R]{}, err
	}
	page, err := api.FetchPage[R](ctx, f.client, string(req.Resource), req.Page, req.Limit)
	if err != nil {
		return listview.PageResult[R]{}, err
	}
	return listview.PageResult[R]{Items: page.Data, TotalRecords: page.TotalRecords, TotalPages: page.TotalPages}, nil
}

// SentItemsSource returns identifier to last sent action.
type SentItemsSource interface {
	SentItems(ctx context.Context) (map[string]string, error)
}

// InscripcionFetcher loads registrations and merges the sent-items log into each row.
type InscripcionFetcher struct {
	pages  listview.Fetcher[Inscripcion]
	sent   SentItemsSource
	logger *slog.Logger
}

// NewInscripcionFetcher composes the page fetcher with the sent-items source.
func NewInscripcionFetcher(pages listview.Fetcher[Inscripcion], sent SentItemsSource, logger *slog.Logger) *InscripcionFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InscripcionFetcher{pages: pages, sent: sent, logger: logger}
}

// FetchPage fetches the page and the sent-items map in parallel. A sent-items failure
// is logged and the page is returned without the merge.
func (f *InscripcionFetcher) FetchPage(ctx context.Context, req listview.PageRequest) (listview.PageResult[Inscripcion], error) {
	var (
		page listview.PageResult[Inscripcion]
		sent map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = f.pages.FetchPage(gctx, req)
		return err
	})
	if f.sent != nil {
		g.Go(func() error {
			m, err := f.sent.SentItems(gctx)
			if err != nil {
				f.logger.Warn("sent items merge skipped", slog.Any("error", err))
				return nil
			}
			sent = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return listview.PageResult[Inscripcion]{}, err
	}
	for i := range page.Items {
		action, ok := sent[page.Items[i].Key()]
		if !ok {
			continue
		}
		page.Items[i].SentStatuses = page.Items[i].SentStatuses.With(TagForAction(action))
	}
	return page, nil
}
