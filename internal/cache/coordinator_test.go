package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/fintx/internal/api"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
	tu "github.com/desertthunder/fintx/internal/testing"
)

func newCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func fetcher(body string, calls *int) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		*calls++
		return []byte(body), nil
	}
}

func TestConfig(t *testing.T) {
	t.Run("Default Is Valid", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})

	t.Run("Invalid Fields", func(t *testing.T) {
		tc := []struct {
			name  string
			mod   func(*Config)
			field string
		}{
			{name: "capacity", mod: func(c *Config) { c.Capacity = 0 }, field: "Capacity"},
			{name: "shards", mod: func(c *Config) { c.NumShards = 0 }, field: "NumShards"},
			{name: "shards over capacity", mod: func(c *Config) { c.Capacity = 4; c.NumShards = 8 }, field: "NumShards"},
			{name: "ttl", mod: func(c *Config) { c.TTL = 0 }, field: "TTL"},
			{name: "eviction", mod: func(c *Config) { c.EvictionPercentage = 101 }, field: "EvictionPercentage"},
			{name: "interval", mod: func(c *Config) { c.EvictionInterval = -time.Second }, field: "EvictionInterval"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				cfg := DefaultConfig()
				tt.mod(&cfg)

				err := cfg.Validate()
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigError, got %v", err)
				}
				if cfgErr.Field != tt.field {
					t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
				}
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Error("expected ConfigError to match ErrInvalidConfig")
				}
			})
		}
	})

	t.Run("From Shared", func(t *testing.T) {
		cfg := FromShared(shared.CacheConfig{Capacity: 50, TTLSeconds: 5})
		if cfg.Capacity != 50 || cfg.TTL != 5*time.Second {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.NumShards != DefaultConfig().NumShards {
			t.Errorf("expected default shards, got %d", cfg.NumShards)
		}
	})
}

func TestCoordinator(t *testing.T) {
	ctx := context.Background()
	list := models.ListTag(models.TagTransactions)
	one := models.IDTag(models.TagTransactions, "txn-1")

	t.Run("Fetch Caches", func(t *testing.T) {
		c := newCoordinator(t)
		calls := 0

		for range 3 {
			body, err := c.Fetch(ctx, "k", fetcher(`{"ok":true}`, &calls))
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if string(body) != `{"ok":true}` {
				t.Errorf("Fetch() = %s", body)
			}
		}

		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
		stats := c.Stats()
		if stats.Hits != 2 || stats.Misses != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("Fetch Error Is Not Cached", func(t *testing.T) {
		c := newCoordinator(t)
		boom := errors.New("boom")

		_, err := c.Fetch(ctx, "k", func(context.Context) ([]byte, error) { return nil, boom })
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		calls := 0
		if _, err := c.Fetch(ctx, "k", fetcher(`1`, &calls)); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if calls != 1 {
			t.Errorf("expected refetch after error, got %d calls", calls)
		}
	})

	t.Run("Invalidate By Tag", func(t *testing.T) {
		c := newCoordinator(t)
		calls := 0

		c.Fetch(ctx, "list", fetcher(`[]`, &calls))
		c.Provide("list", []models.Tag{list})
		c.Fetch(ctx, "one", fetcher(`{}`, &calls))
		c.Provide("one", []models.Tag{one})
		c.Fetch(ctx, "budget", fetcher(`{}`, &calls))
		c.Provide("budget", []models.Tag{models.ListTag(models.TagBudget)})

		if n := c.Invalidate(list); n != 1 {
			t.Errorf("expected 1 eviction, got %d", n)
		}
		if got := c.Keys(); len(got) != 2 || got[0] != "budget" || got[1] != "one" {
			t.Errorf("unexpected keys after LIST invalidation: %v", got)
		}

		c.Invalidated(ctx, models.Invalidation{Endpoint: "updateTransactions", Tags: []models.Tag{one, list}})
		if got := c.Keys(); len(got) != 1 || got[0] != "budget" {
			t.Errorf("unexpected keys after update: %v", got)
		}
	})

	t.Run("Type Wide Invalidation", func(t *testing.T) {
		c := newCoordinator(t)
		calls := 0
		c.Fetch(ctx, "a", fetcher(`1`, &calls))
		c.Provide("a", []models.Tag{one})
		c.Fetch(ctx, "b", fetcher(`1`, &calls))
		c.Provide("b", []models.Tag{list})

		if n := c.Invalidate(models.Tag{Type: models.TagTransactions}); n != 2 {
			t.Errorf("expected 2 evictions, got %d", n)
		}
	})

	t.Run("Invalidation During Fetch Drops Response", func(t *testing.T) {
		c := newCoordinator(t)
		calls := 0

		body, err := c.Fetch(ctx, "list", func(context.Context) ([]byte, error) {
			calls++
			c.Invalidate(list)
			return []byte(`"v1"`), nil
		})
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(body) != `"v1"` {
			t.Errorf("Fetch() = %s", body)
		}
		c.Provide("list", []models.Tag{list})

		if keys := c.Keys(); len(keys) != 0 {
			t.Errorf("expected stale response to be evicted, got keys %v", keys)
		}
		if stats := c.Stats(); stats.Tracked != 0 {
			t.Errorf("expected no tracked keys, got %+v", stats)
		}

		body, _ = c.Fetch(ctx, "list", fetcher(`"v2"`, &calls))
		c.Provide("list", []models.Tag{list})
		if calls != 2 || string(body) != `"v2"` {
			t.Errorf("expected refetch of v2, got %s after %d calls", body, calls)
		}
		if keys := c.Keys(); len(keys) != 1 {
			t.Errorf("expected fresh response to stay cached, got keys %v", keys)
		}
	})

	t.Run("Unrelated Fetch Survives", func(t *testing.T) {
		c := newCoordinator(t)
		calls := 0
		c.Fetch(ctx, "list", fetcher(`[]`, &calls))
		c.Invalidate(one)
		c.Provide("list", []models.Tag{list})

		if keys := c.Keys(); len(keys) != 1 {
			t.Errorf("expected response fetched before the write to stay, got keys %v", keys)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		c := newCoordinator(t)
		calls := 0
		c.Fetch(ctx, "a", fetcher(`1`, &calls))
		c.Provide("a", []models.Tag{list})
		c.Clear()

		if stats := c.Stats(); stats.Entries != 0 || stats.Tracked != 0 {
			t.Errorf("expected empty cache, got %+v", stats)
		}
	})
}

func TestCoordinatorWithClient(t *testing.T) {
	srv, rec := tu.NewRecordingServer(t)
	rec.On(http.MethodGet, "/categories", 200, `{"data":[{"id":"c1","name":"Food","type":"expense"}],"total":1,"page":1,"limit":20}`).
		On(http.MethodPut, "/categories/c1", 200, `{"id":"c1","name":"Groceries","type":"expense"}`)

	coord := newCoordinator(t)
	client := api.NewClient(api.NewTransport(api.TransportOpts{BaseURL: srv.URL}), api.WithCache(coord))
	categories, err := api.InjectCRUD[models.Category](client, api.Definition{EntityName: "categories", TagType: models.TagCategory})
	if err != nil {
		t.Fatalf("InjectCRUD() error = %v", err)
	}

	ctx := context.Background()
	if _, err := categories.List(ctx, nil); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if _, err := categories.List(ctx, nil); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if rec.Count() != 1 {
		t.Fatalf("expected cached second list, got %d requests", rec.Count())
	}

	if _, err := categories.Update(ctx, models.Category{ID: "c1", Name: "Groceries", Type: models.Expense}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := categories.List(ctx, nil); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if rec.Count() != 3 {
		t.Errorf("expected list refetch after update, got %d requests", rec.Count())
	}
}

// writeDuringList performs a category update while the first list request is in flight.
// The first list body predates that update.
type writeDuringList struct {
	crud   *api.CRUD[models.Category]
	writes int
}

func (w *writeDuringList) Execute(ctx context.Context, req api.Request) ([]byte, error) {
	if req.Method == http.MethodPut {
		w.writes++
		return []byte(`{"id":"c1","name":"Groceries","type":"expense"}`), nil
	}

	name := "Groceries"
	if w.writes == 0 {
		if _, err := w.crud.Update(ctx, models.Category{ID: "c1", Name: "Groceries", Type: models.Expense}); err != nil {
			return nil, err
		}
		name = "Food"
	}
	return []byte(`{"data":[{"id":"c1","name":"` + name + `","type":"expense"}],"total":1,"page":1,"limit":20}`), nil
}

func TestCoordinatorWriteDuringRead(t *testing.T) {
	coord := newCoordinator(t)
	exec := &writeDuringList{}
	client := api.NewClient(exec, api.WithCache(coord))
	categories, err := api.InjectCRUD[models.Category](client, api.Definition{EntityName: "categories", TagType: models.TagCategory})
	if err != nil {
		t.Fatalf("InjectCRUD() error = %v", err)
	}
	exec.crud = categories

	ctx := context.Background()
	first, err := categories.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if first.Data[0].Name != "Food" {
		t.Fatalf("expected the in-flight read to return the old name, got %q", first.Data[0].Name)
	}

	second, err := categories.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if second.Data[0].Name != "Groceries" {
		t.Errorf("expected list after the write to be refetched, got %q", second.Data[0].Name)
	}
}
