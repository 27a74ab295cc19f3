package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/query"
	"github.com/desertthunder/fintx/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize = 50
	defaultWorkers  = 4
	maxWorkers      = 10
)

// Lister fetches one page of a collection; api.CRUD satisfies it.
type Lister[T models.Entity] interface {
	List(ctx context.Context, params query.Params) (*models.Page[T], error)
}

// ExportOpts configures [ExportAll].
type ExportOpts struct {
	Name      string       // collection name used in progress messages
	PageSize  int          // records per page (default: 50)
	Workers   int          // concurrent page fetches (default: 4, max: 10)
	RateLimit float64      // page requests per second, 0 for unlimited
	Params    query.Params // extra list parameters such as search, sort or filter
}

// ExportResult holds every record of a collection in page order.
type ExportResult[T models.Entity] struct {
	Items      []T
	Total      int // total reported by the first page
	Pages      int
	Duplicates int // records seen on more than one page and dropped
}

// ExportAll fetches the first page to learn the total, then fetches the remaining pages concurrently.
//
// Items keep page order regardless of completion order. The first failing page cancels the rest.
func ExportAll[T models.Entity](ctx context.Context, lister Lister[T], opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult[T], error) {
	if lister == nil {
		return nil, fmt.Errorf("%w: lister not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Name == "" {
		opts.Name = "records"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	fetch := func(ctx context.Context, page int) (*models.Page[T], error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		params := opts.Params.Clone().Set("page", page).Set("limit", opts.PageSize)
		p, err := lister.List(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		return p, nil
	}

	sendProgress(progress, firstPageUpdate(opts.Name))
	first, err := fetch(ctx, 1)
	if err != nil {
		return nil, err
	}
	if first.Total < 0 {
		return nil, fmt.Errorf("%w: negative total %d in first page", shared.ErrAPIRequest, first.Total)
	}

	// The server may clamp the page size; follow what it reports.
	limit := opts.PageSize
	if first.Limit > 0 {
		limit = first.Limit
	}
	pages := models.Page[T]{Total: first.Total, Limit: limit}.Pages()
	sendProgress(progress, pagesFoundUpdate(opts.Name, pages, first.Total))

	results := make([][]T, pages)
	results[0] = first.Data

	var done atomic.Int64
	done.Store(1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for page := 2; page <= pages; page++ {
		g.Go(func() error {
			p, err := fetch(gctx, page)
			if err != nil {
				return err
			}
			results[page-1] = p.Data
			sendProgress(progress, pageFetchedUpdate(int(done.Add(1)), pages, page))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ExportResult[T]{Total: first.Total, Pages: pages, Items: make([]T, 0, first.Total)}
	seen := make(map[string]bool, first.Total)
	for _, items := range results {
		for _, item := range items {
			if id := item.GetID(); id != "" {
				if seen[id] {
					out.Duplicates++
					continue
				}
				seen[id] = true
			}
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}
