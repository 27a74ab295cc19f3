package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/fintx/internal/formatter"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/query"
	"github.com/desertthunder/fintx/internal/shared"
	th "github.com/desertthunder/fintx/internal/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

type mockLister struct {
	items    []models.Transaction
	failPage int           // page that returns an error
	maxLimit int           // clamps the requested limit like the server does
	delay    time.Duration // per call
	total    int           // reported total when non-zero

	mu       sync.Mutex
	requests []query.Params

	inflight atomic.Int32
	peak     atomic.Int32
}

func (m *mockLister) List(ctx context.Context, params query.Params) (*models.Page[models.Transaction], error) {
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, params)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pv, _ := params.Get("page")
	lv, _ := params.Get("limit")
	page, limit := pv.(int), lv.(int)
	if m.maxLimit > 0 && limit > m.maxLimit {
		limit = m.maxLimit
	}
	if page == m.failPage {
		return nil, fmt.Errorf("%w: boom", shared.ErrAPIRequest)
	}

	start := min((page-1)*limit, len(m.items))
	end := min(start+limit, len(m.items))
	total := len(m.items)
	if m.total != 0 {
		total = m.total
	}
	return &models.Page[models.Transaction]{Data: m.items[start:end], Total: total, Page: page, Limit: limit}, nil
}

func makeTransactions(n int) []models.Transaction {
	txs := make([]models.Transaction, n)
	for i := range txs {
		txs[i] = models.Transaction{
			ID:          models.ID(fmt.Sprintf("txn-%03d", i+1)),
			Date:        time.Date(2025, 1, 1+i%28, 0, 0, 0, 0, time.UTC),
			Description: fmt.Sprintf("Transaction %d", i+1),
			Amount:      decimal.NewFromInt(int64(i + 1)),
			Type:        models.Expense,
		}
	}
	return txs
}

func ids(txs []models.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.GetID()
	}
	return out
}

func TestExportAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Keeps Page Order", func(t *testing.T) {
		items := makeTransactions(23)
		lister := &mockLister{items: items, delay: time.Millisecond}

		res, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{PageSize: 5, Workers: 3}, nil)
		if err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}

		if res.Pages != 5 || res.Total != 23 || res.Duplicates != 0 {
			t.Errorf("unexpected result %+v", res)
		}
		if diff := cmp.Diff(ids(items), ids(res.Items)); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
		if len(lister.requests) != 5 {
			t.Errorf("expected 5 list calls, got %d", len(lister.requests))
		}
		if peak := lister.peak.Load(); peak > 3 {
			t.Errorf("expected at most 3 concurrent fetches, saw %d", peak)
		}
	})

	t.Run("Single Page", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(3)}

		res, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{}, nil)
		if err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}
		if res.Pages != 1 || len(res.Items) != 3 || len(lister.requests) != 1 {
			t.Errorf("unexpected result %+v after %d calls", res, len(lister.requests))
		}
	})

	t.Run("Empty Collection", func(t *testing.T) {
		res, err := ExportAll[models.Transaction](ctx, &mockLister{}, ExportOpts{}, nil)
		if err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}
		if res.Pages != 1 || len(res.Items) != 0 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Rejects Negative Total", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(3), total: -100}

		_, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{PageSize: 20}, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if len(lister.requests) != 1 {
			t.Errorf("expected only the first page to be fetched, got %d calls", len(lister.requests))
		}
	})

	t.Run("Follows Server Limit", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(25), maxLimit: 10}

		res, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{PageSize: 100}, nil)
		if err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}
		if res.Pages != 3 || len(res.Items) != 25 {
			t.Errorf("expected 3 pages and 25 items, got %d and %d", res.Pages, len(res.Items))
		}
	})

	t.Run("Carries Extra Params", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(2)}
		base := query.New("search", "rent", "page", 9)

		if _, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{Params: base}, nil); err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}

		got := query.Encode(lister.requests[0])
		if got != "?search=rent&page=1&limit=50" {
			t.Errorf("unexpected request params %s", got)
		}
		if v, _ := base.Get("page"); v != 9 {
			t.Errorf("expected caller params untouched, got page=%v", v)
		}
	})

	t.Run("Drops Duplicates", func(t *testing.T) {
		items := makeTransactions(4)
		items = append(items, items[1])
		lister := &mockLister{items: items}

		res, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{PageSize: 2}, nil)
		if err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}
		if res.Duplicates != 1 || len(res.Items) != 4 {
			t.Errorf("expected 4 unique items and 1 duplicate, got %d and %d", len(res.Items), res.Duplicates)
		}
	})

	t.Run("Page Failure", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(30), failPage: 4}

		_, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{PageSize: 5}, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "page 4") {
			t.Errorf("expected failing page in error, got %v", err)
		}
	})

	t.Run("First Page Failure", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(30), failPage: 1}

		if _, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{}, nil); err == nil {
			t.Fatal("expected error")
		}
		if len(lister.requests) != 1 {
			t.Errorf("expected no further requests, got %d", len(lister.requests))
		}
	})

	t.Run("Nil Lister", func(t *testing.T) {
		if _, err := ExportAll[models.Transaction](ctx, nil, ExportOpts{}, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		lister := &mockLister{items: makeTransactions(10)}
		if _, err := ExportAll[models.Transaction](cctx, lister, ExportOpts{RateLimit: 1}, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Reports Progress", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 32)
		lister := &mockLister{items: makeTransactions(12)}

		if _, err := ExportAll[models.Transaction](ctx, lister, ExportOpts{Name: "transactions", PageSize: 4}, progress); err != nil {
			t.Fatalf("ExportAll() error = %v", err)
		}
		close(progress)

		var phases []Phase
		fetched := 0
		for u := range progress {
			phases = append(phases, u.Phase)
			if u.Phase == FetchPages && u.Data != nil {
				fetched++
			}
		}
		if phases[0] != FetchFirstPage || phases[1] != FetchPages {
			t.Errorf("unexpected phases %v", phases)
		}
		if fetched != 2 {
			t.Errorf("expected 2 page updates, got %d", fetched)
		}
	})
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes Every Format", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		lister := &mockLister{items: makeTransactions(7)}

		res, err := BulkExport(ctx, lister, BulkExportOpts{OutputDir: dir, Export: ExportOpts{PageSize: 3}}, nil)
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}

		if res.Total != 7 || res.Pages != 3 {
			t.Errorf("unexpected totals %+v", res)
		}
		if len(res.Results) != len(formatter.Formats) || len(res.Failed()) != 0 {
			t.Errorf("unexpected results %+v", res.Results)
		}
		for i, r := range res.Results {
			if r.Format != formatter.Formats[i] {
				t.Errorf("result %d: expected format %s, got %s", i, formatter.Formats[i], r.Format)
			}
			for _, f := range r.Files {
				th.AssertFileExists(t, f)
			}
		}

		th.AssertFileExists(t, res.ManifestPath)
		manifest := th.MustReadFile(t, res.ManifestPath)
		if !strings.Contains(manifest, `"total_transactions": 7`) {
			t.Errorf("manifest missing total: %s", manifest)
		}
		csv := th.MustReadFile(t, filepath.Join(dir, "transactions_transactions.csv"))
		if strings.Count(csv, "\n") != 8 {
			t.Errorf("expected header plus 7 rows, got:\n%s", csv)
		}
	})

	t.Run("Selected Formats", func(t *testing.T) {
		dir := t.TempDir()

		res, err := BulkExport(ctx, &mockLister{items: makeTransactions(2)}, BulkExportOpts{
			Formats:   []string{formatter.FormatJSON},
			OutputDir: dir,
			Export:    ExportOpts{Name: "jan"},
		}, nil)
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if len(res.Results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(res.Results))
		}
		th.AssertFileExists(t, filepath.Join(dir, "jan.json"))
	})

	t.Run("Unknown Format", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(2)}

		_, err := BulkExport(ctx, lister, BulkExportOpts{Formats: []string{"pdf"}, OutputDir: t.TempDir()}, nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(lister.requests) != 0 {
			t.Errorf("expected no fetches before validation, got %d", len(lister.requests))
		}
	})

	t.Run("Fetch Failure", func(t *testing.T) {
		lister := &mockLister{items: makeTransactions(2), failPage: 1}

		if _, err := BulkExport(ctx, lister, BulkExportOpts{OutputDir: t.TempDir()}, nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestPhase(t *testing.T) {
	tc := map[Phase]string{
		FetchFirstPage: "fetch_first_page",
		FetchPages:     "fetch_pages",
		WriteFiles:     "write_files",
		Complete:       "complete",
		Phase(99):      "",
	}
	for p, want := range tc {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}
