package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/desertthunder/fintx/internal/storage"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Record is one stored resource as decoded from JSON.
type Record = map[string]any

// BackendOpts configures [NewBackend].
type BackendOpts struct {
	BasePath    string   // mount point, e.g. "/api"
	Collections []string // defaults to transactions, categories, budgets and plans
	Logger      *log.Logger
}

// Backend serves a REST API over collections kept in a [storage.Adapter].
//
// Every collection supports list, get, create, update and delete. Transactions additionally
// support approve, reject and a summary.
type Backend struct {
	store       *storage.Adapter
	base        string
	collections []string
	mux         *http.ServeMux
	logger      *log.Logger

	mu sync.Mutex
}

// NewBackend creates a backend reading and writing through store.
func NewBackend(store *storage.Adapter, opts BackendOpts) *Backend {
	b := &Backend{
		store:       store,
		base:        strings.TrimRight(opts.BasePath, "/"),
		collections: opts.Collections,
		mux:         http.NewServeMux(),
		logger:      opts.Logger,
	}
	if len(b.collections) == 0 {
		b.collections = []string{storage.KeyTransactions, storage.KeyCategories, storage.KeyBudgets, storage.KeyPlans}
	}
	if b.logger == nil {
		b.logger = shared.NopLogger()
	}

	txns := b.base + "/" + storage.KeyTransactions
	b.mux.HandleFunc("GET "+txns+"/summary", b.summary)
	b.mux.HandleFunc("POST "+txns+"/{id}/approve", b.setStatus(models.StatusApproved))
	b.mux.HandleFunc("POST "+txns+"/{id}/reject", b.setStatus(models.StatusRejected))

	for _, c := range b.collections {
		path := b.base + "/" + c
		b.mux.HandleFunc("GET "+path, b.list(c))
		b.mux.HandleFunc("POST "+path, b.create(c))
		b.mux.HandleFunc("GET "+path+"/{id}", b.get(c))
		b.mux.HandleFunc("PUT "+path+"/{id}", b.update(c))
		b.mux.HandleFunc("DELETE "+path+"/{id}", b.remove(c))
	}
	return b
}

// Routes returns the collection prefixes served by the backend.
func (b *Backend) Routes() []string {
	routes := make([]string, 0, len(b.collections)*2)
	for _, c := range b.collections {
		routes = append(routes, b.base+"/"+c, b.base+"/"+c+"/")
	}
	return routes
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func (b *Backend) list(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		records, err := b.load(collection)
		b.mu.Unlock()
		if err != nil {
			b.fail(w, err)
			return
		}

		q := r.URL.Query()
		page := intParam(q, "page", defaultPage, 1, 0)
		limit := intParam(q, "limit", defaultLimit, 1, maxLimit)

		records = filterRecords(records, q)
		sortRecords(records, q["sort"])

		// bounding page first keeps (page-1)*limit from overflowing
		window := []Record{}
		if pages := (len(records) + limit - 1) / limit; page <= pages {
			start := (page - 1) * limit
			end := min(start+limit, len(records))
			window = append(window, records[start:end]...)
		}

		writeJSON(w, http.StatusOK, models.Page[Record]{Data: window, Total: len(records), Page: page, Limit: limit})
	}
}

func (b *Backend) get(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		records, err := b.load(collection)
		b.mu.Unlock()
		if err != nil {
			b.fail(w, err)
			return
		}

		i := indexOf(records, r.PathValue("id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, collection+" record not found")
			return
		}
		writeJSON(w, http.StatusOK, records[i])
	}
}

func (b *Backend) create(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeRecord(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		id := idString(rec["id"])
		if id == "" {
			id = shared.GenerateID()
			rec["id"] = id
		}
		if collection == storage.KeyTransactions && rec["status"] == nil {
			rec["status"] = string(models.StatusPending)
		}
		if err := validateRecord(collection, rec); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		records, err := b.load(collection)
		if err != nil {
			b.fail(w, err)
			return
		}
		if indexOf(records, id) >= 0 {
			writeError(w, http.StatusConflict, fmt.Sprintf("%s record %s already exists", collection, id))
			return
		}

		if err := b.store.Put(collection, append(records, rec)); err != nil {
			b.fail(w, err)
			return
		}
		b.logger.Debug("record created", "collection", collection, "id", id)
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (b *Backend) update(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := decodeRecord(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		id := r.PathValue("id")
		rec["id"] = id
		if err := validateRecord(collection, rec); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		records, err := b.load(collection)
		if err != nil {
			b.fail(w, err)
			return
		}
		i := indexOf(records, id)
		if i < 0 {
			writeError(w, http.StatusNotFound, collection+" record not found")
			return
		}

		records[i] = rec
		if err := b.store.Put(collection, records); err != nil {
			b.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (b *Backend) remove(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		records, err := b.load(collection)
		if err != nil {
			b.fail(w, err)
			return
		}
		i := indexOf(records, r.PathValue("id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, collection+" record not found")
			return
		}

		records = append(records[:i], records[i+1:]...)
		if err := b.store.Put(collection, records); err != nil {
			b.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) setStatus(status models.TransactionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		records, err := b.load(storage.KeyTransactions)
		if err != nil {
			b.fail(w, err)
			return
		}
		i := indexOf(records, r.PathValue("id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}

		records[i]["status"] = string(status)
		if body.Reason != "" {
			records[i]["notes"] = body.Reason
		}
		if err := b.store.Put(storage.KeyTransactions, records); err != nil {
			b.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records[i])
	}
}

func (b *Backend) summary(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r.URL.Query(), "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := dateParam(r.URL.Query(), "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b.mu.Lock()
	var txs []models.Transaction
	err = b.store.Lookup(storage.KeyTransactions, &txs)
	b.mu.Unlock()
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		b.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Summarize(txs, from, to))
}

// load returns the records of collection; a missing collection is empty.
func (b *Backend) load(collection string) ([]Record, error) {
	var records []Record
	err := b.store.Lookup(collection, &records)
	if errors.Is(err, shared.ErrNotFound) {
		return []Record{}, nil
	}
	return records, err
}

func (b *Backend) fail(w http.ResponseWriter, err error) {
	b.logger.Error("storage failure", "error", err)
	writeError(w, http.StatusInternalServerError, "storage unavailable")
}

func decodeRecord(r *http.Request) (Record, error) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if rec == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return rec, nil
}

// validateRecord checks records of the known collections against their model rules.
func validateRecord(collection string, rec Record) error {
	var entity models.Entity
	switch collection {
	case storage.KeyTransactions:
		entity = &models.Transaction{}
	case storage.KeyCategories:
		entity = &models.Category{}
	case storage.KeyBudgets:
		entity = &models.Budget{}
	case storage.KeyPlans:
		entity = &models.Plan{}
	default:
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, entity); err != nil {
		return err
	}
	return entity.Validate()
}

func indexOf(records []Record, id string) int {
	for i, rec := range records {
		if idString(rec["id"]) == id {
			return i
		}
	}
	return -1
}

func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// intParam reads an integer of at least lo, falling back to def and clamping to hi when hi > 0.
func intParam(q url.Values, key string, def, lo, hi int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < lo {
		return def
	}
	if hi > 0 && n > hi {
		return hi
	}
	return n
}

func dateParam(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s date %q", key, raw)
}

// filterRecords applies search (substring over string fields) and filter[field]=value equality.
func filterRecords(records []Record, q url.Values) []Record {
	search := strings.ToLower(q.Get("search"))

	filters := map[string][]string{}
	for key, values := range q {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") {
			filters[key[len("filter["):len(key)-1]] = values
		}
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if search != "" && !containsText(rec, search) {
			continue
		}
		if !matchesFilters(rec, filters) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func containsText(rec Record, needle string) bool {
	for _, v := range rec {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(rec Record, filters map[string][]string) bool {
	for field, allowed := range filters {
		have := idString(rec[field])
		found := false
		for _, v := range allowed {
			if v == have {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortRecords orders by each field in turn; a leading "-" sorts that field descending.
func sortRecords(records []Record, fields []string) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, field := range fields {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")

			c := compareValues(records[i][name], records[j][name])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues compares numerically when both values are numbers or numeric strings, and as text otherwise.
// Missing values sort first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(idString(a), idString(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
