package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/shared"
)

// Prefix namespaces every key written by an [Adapter].
const Prefix = "fintx:"

// Keys used for the seeded collections.
const (
	KeyTransactions = "transactions"
	KeyCategories   = "categories"
	KeyBudgets      = "budgets"
	KeyPlans        = "plans"
)

// CorruptError reports a stored value that is not valid JSON for the requested type.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt value under %q: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Adapter reads and writes JSON values under [Prefix].
type Adapter struct {
	backend Backend
	logger  *log.Logger
}

// NewAdapter wraps backend. A nil logger discards warnings.
func NewAdapter(backend Backend, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Adapter{backend: backend, logger: logger}
}

// Get returns the value stored under key, or nil when it is absent, null or unreadable.
func Get[T any](a *Adapter, key string) *T {
	var out T
	if err := a.Lookup(key, &out); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			a.logger.Warn("storage read failed", "key", key, "error", err)
		}
		return nil
	}
	return &out
}

// Set stores value under key. Failures are logged and otherwise ignored.
func Set[T any](a *Adapter, key string, value T) {
	if err := a.Put(key, value); err != nil {
		a.logger.Warn("storage write failed", "key", key, "error", err)
	}
}

// Lookup decodes the value under key into out.
//
// It returns an error wrapping [shared.ErrNotFound] when the key is absent or holds null,
// a [*CorruptError] when the JSON cannot be decoded, and an error wrapping
// [shared.ErrStorageUnavailable] when the backend fails.
func (a *Adapter) Lookup(key string, out any) error {
	raw, ok, err := a.backend.GetItem(namespaced(key))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	if !ok || strings.TrimSpace(raw) == "null" {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, key)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &CorruptError{Key: key, Err: err}
	}
	return nil
}

// Put encodes value and stores it under key.
func (a *Adapter) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	if err := a.backend.SetItem(namespaced(key), string(data)); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}
	return nil
}

// Has reports whether key holds a value.
func (a *Adapter) Has(key string) bool {
	_, ok, err := a.backend.GetItem(namespaced(key))
	return err == nil && ok
}

// Remove deletes key. Failures are logged.
func (a *Adapter) Remove(key string) {
	if err := a.backend.RemoveItem(namespaced(key)); err != nil {
		a.logger.Warn("storage remove failed", "key", key, "error", err)
	}
}

// Clear deletes every key under the namespace and leaves other keys alone.
func (a *Adapter) Clear() {
	for _, key := range a.Keys() {
		a.Remove(key)
	}
}

// Keys returns the keys under the namespace with the prefix stripped.
func (a *Adapter) Keys() []string {
	all, err := a.backend.Keys()
	if err != nil {
		a.logger.Warn("storage key scan failed", "error", err)
		return nil
	}

	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, Prefix) {
			keys = append(keys, strings.TrimPrefix(k, Prefix))
		}
	}
	return keys
}

func namespaced(key string) string { return Prefix + key }
