package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
)

// QueryCache stores read results and tracks which tags they provide.
type QueryCache interface {
	// Fetch returns the cached body for key or calls fetch to fill it.
	Fetch(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error)
	// Provide records that the body cached under key carries tags. It is called after every
	// successful Fetch, with nil tags for untagged reads.
	Provide(key string, tags []models.Tag)
}

// Observer is notified after each successful write.
type Observer interface {
	Invalidated(ctx context.Context, inv models.Invalidation)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ctx context.Context, inv models.Invalidation)

func (f ObserverFunc) Invalidated(ctx context.Context, inv models.Invalidation) { f(ctx, inv) }

// Response is the result of one dispatched call.
type Response struct {
	Endpoint     string
	Body         json.RawMessage
	Provided     []models.Tag         // tags provided by a read
	Invalidation *models.Invalidation // set by a successful write
}

// Client dispatches registered endpoints.
type Client struct {
	registry  *Registry
	exec      Executor
	cache     QueryCache
	observers []Observer
	logger    *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithRegistry shares an existing registry.
func WithRegistry(r *Registry) Option { return func(c *Client) { c.registry = r } }

// WithCache routes reads through cache. A cache that also implements [Observer] is subscribed to invalidations.
func WithCache(cache QueryCache) Option {
	return func(c *Client) {
		c.cache = cache
		if obs, ok := cache.(Observer); ok {
			c.observers = append(c.observers, obs)
		}
	}
}

// WithObserver subscribes obs to invalidations.
func WithObserver(obs Observer) Option {
	return func(c *Client) { c.observers = append(c.observers, obs) }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient creates a client sending requests through exec.
func NewClient(exec Executor, opts ...Option) *Client {
	c := &Client{exec: exec}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = shared.NopLogger()
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	c.registry.SetLogger(c.logger)
	return c
}

// Registry returns the client's endpoint registry.
func (c *Client) Registry() *Registry { return c.registry }

// Subscribe adds an invalidation observer.
func (c *Client) Subscribe(obs Observer) { c.observers = append(c.observers, obs) }

// Do invokes the endpoint registered under name.
func (c *Client) Do(ctx context.Context, name string, arg any) (*Response, error) {
	ep, ok := c.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownEndpoint, name)
	}
	return c.dispatch(ctx, ep, arg)
}

func (c *Client) dispatch(ctx context.Context, ep Endpoint, arg any) (*Response, error) {
	req, err := ep.Build(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep.Name, err)
	}

	c.logger.Debug("dispatch", "endpoint", ep.Name, "method", req.Method, "path", req.Path)

	if ep.Mutation {
		return c.mutate(ctx, ep, req, arg)
	}
	return c.query(ctx, ep, req, arg)
}

func (c *Client) query(ctx context.Context, ep Endpoint, req Request, arg any) (*Response, error) {
	var (
		body []byte
		err  error
	)

	key := CacheKey(ep.Name, req)
	if c.cache != nil {
		body, err = c.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
			return c.exec.Execute(ctx, req)
		})
	} else {
		body, err = c.exec.Execute(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep.Name, err)
	}

	tags := ep.tagsFor(body, arg)
	if c.cache != nil {
		c.cache.Provide(key, tags)
	}
	return &Response{Endpoint: ep.Name, Body: body, Provided: tags}, nil
}

func (c *Client) mutate(ctx context.Context, ep Endpoint, req Request, arg any) (*Response, error) {
	body, err := c.exec.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep.Name, err)
	}

	resp := &Response{Endpoint: ep.Name, Body: body}
	tags := ep.tagsFor(body, arg)
	if len(tags) == 0 {
		return resp, nil
	}

	inv := models.Invalidation{Endpoint: ep.Name, Tags: tags}
	resp.Invalidation = &inv
	for _, obs := range c.observers {
		obs.Invalidated(ctx, inv)
	}
	c.logger.Debug("invalidated", "endpoint", ep.Name, "tags", len(tags))
	return resp, nil
}

// CacheKey identifies a read result by endpoint and request line.
func CacheKey(endpoint string, req Request) string {
	return endpoint + "::" + req.Method + " " + req.Path
}
