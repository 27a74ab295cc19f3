package query

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestEncode(t *testing.T) {
	tc := []struct {
		name   string
		params any
		want   string
	}{
		{
			name:   "nil params",
			params: nil,
			want:   "",
		},
		{
			name:   "empty params",
			params: Params{},
			want:   "",
		},
		{
			name:   "only nil values",
			params: New("a", nil, "b", (*string)(nil), "c", []string(nil)),
			want:   "",
		},
		{
			name:   "scalars keep insertion order",
			params: New("page", 1, "limit", 20, "search", "food"),
			want:   "?page=1&limit=20&search=food",
		},
		{
			name:   "nested object",
			params: New("filter", New("status", "active")),
			want:   "?filter%5Bstatus%5D=active",
		},
		{
			name:   "nested map sorts keys",
			params: New("filter", map[string]any{"status": "active", "min": 5}),
			want:   "?filter%5Bmin%5D=5&filter%5Bstatus%5D=active",
		},
		{
			name:   "deeply nested",
			params: New("a", New("b", New("c", true))),
			want:   "?a%5Bb%5D%5Bc%5D=true",
		},
		{
			name:   "array expands to repeated pairs",
			params: New("sort", []string{"date", "-amount"}),
			want:   "?sort=date&sort=-amount",
		},
		{
			name:   "array values are encoded",
			params: New("tag", []any{"a b", "c&d", nil}),
			want:   "?tag=a%20b&tag=c%26d",
		},
		{
			name:   "nested array keeps bracketed key",
			params: New("filter", New("ids", []int{1, 2})),
			want:   "?filter%5Bids%5D=1&filter%5Bids%5D=2",
		},
		{
			name:   "nil dropped beside values",
			params: New("a", 1, "b", nil, "c", "x"),
			want:   "?a=1&c=x",
		},
		{
			name:   "special characters",
			params: New("q", "café & co/2", "note", "it's (fine)!"),
			want:   "?q=caf%C3%A9%20%26%20co%2F2&note=it's%20(fine)!",
		},
		{
			name:   "stringer and time",
			params: New("amount", decimal.RequireFromString("12.50"), "from", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
			want:   "?amount=12.5&from=2025-03-01T00%3A00%3A00Z",
		},
		{
			name:   "top level map",
			params: map[string]any{"b": 2, "a": 1},
			want:   "?a=1&b=2",
		},
		{
			name:   "pointer values",
			params: New("p", ptr("x")),
			want:   "?p=x",
		},
		{
			name:   "empty string kept",
			params: New("q", ""),
			want:   "?q=",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.params); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodePairSet(t *testing.T) {
	got := Encode(map[string]any{"page": 1, "limit": 20, "search": "food"})
	if !strings.HasPrefix(got, "?") {
		t.Fatalf("expected leading ?, got %q", got)
	}

	pairs := strings.Split(strings.TrimPrefix(got, "?"), "&")
	sort.Strings(pairs)
	want := []string{"limit=20", "page=1", "search=food"}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("pair set mismatch (-want +got):\n%s", diff)
	}
}

func TestParams(t *testing.T) {
	t.Run("Set Replaces In Place", func(t *testing.T) {
		p := New("a", 1, "b", 2).Set("a", 3)
		if diff := cmp.Diff([]string{"a", "b"}, p.Keys()); diff != "" {
			t.Errorf("keys mismatch (-want +got):\n%s", diff)
		}
		if v, _ := p.Get("a"); v != 3 {
			t.Errorf("expected a=3, got %v", v)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		if _, ok := New().Get("missing"); ok {
			t.Error("expected missing key")
		}
	})

	t.Run("Clone Is Independent", func(t *testing.T) {
		p := New("a", 1)
		c := p.Clone().Set("a", 2)
		if v, _ := p.Get("a"); v != 1 {
			t.Errorf("expected original untouched, got %v", v)
		}
		if v, _ := c.Get("a"); v != 2 {
			t.Errorf("expected clone updated, got %v", v)
		}
	})

	t.Run("MarshalJSON Keeps Order", func(t *testing.T) {
		data, err := json.Marshal(New("z", 1, "a", New("y", "x"), "m", []int{1}))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `{"z":1,"a":{"y":"x"},"m":[1]}` {
			t.Errorf("Marshal() = %s", data)
		}
	})

	t.Run("MarshalJSON Empty", func(t *testing.T) {
		data, err := json.Marshal(Params{})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `{}` {
			t.Errorf("Marshal() = %s", data)
		}
	})

	t.Run("New Ignores Dangling Key", func(t *testing.T) {
		if got := len(New("a", 1, "b")); got != 1 {
			t.Errorf("expected 1 pair, got %d", got)
		}
	})
}

func TestEncodeComponent(t *testing.T) {
	tc := map[string]string{
		"plain":   "plain",
		"a b":     "a%20b",
		"[x]":     "%5Bx%5D",
		"-_.~":    "-_.~",
		"!'()*":   "!'()*",
		"a+b=c&d": "a%2Bb%3Dc%26d",
	}

	for in, want := range tc {
		if got := EncodeComponent(in); got != want {
			t.Errorf("EncodeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func ptr[T any](v T) *T { return &v }
