package api

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
)

// Registry is the shared, ordered endpoint table.
//
// Names are unique and the first registration wins.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	endpoints map[string]Endpoint
	tagTypes  []models.TagType
	logger    *log.Logger
}

// NewRegistry creates an empty registry accepting the given tag types, or [models.DefaultTagTypes] when none are given.
func NewRegistry(tagTypes ...models.TagType) *Registry {
	if len(tagTypes) == 0 {
		tagTypes = models.DefaultTagTypes
	}
	return &Registry{
		endpoints: make(map[string]Endpoint),
		tagTypes:  append([]models.TagType(nil), tagTypes...),
		logger:    shared.NopLogger(),
	}
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Register adds ep unless its name is already taken, reporting whether it was added.
func (r *Registry) Register(ep Endpoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[ep.Name]; exists {
		r.logger.Debug("endpoint already registered, keeping first", "endpoint", ep.Name)
		return false
	}

	r.endpoints[ep.Name] = ep
	r.order = append(r.order, ep.Name)
	return true
}

// RegisterAll registers each endpoint in order and returns the names that were newly added.
func (r *Registry) RegisterAll(eps []Endpoint) []string {
	var added []string
	for _, ep := range eps {
		if r.Register(ep) {
			added = append(added, ep.Name)
		}
	}
	return added
}

// Lookup returns the endpoint registered under name.
func (r *Registry) Lookup(name string) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[name]
	return ep, ok
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// KnownTagType reports whether t is one of the pre-registered tag types.
func (r *Registry) KnownTagType(t models.TagType) bool {
	for _, known := range r.tagTypes {
		if known == t {
			return true
		}
	}
	return false
}
