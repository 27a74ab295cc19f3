package server

import (
	"net/http"
	"strings"
)

// BasicRouter mounts the health check and the finance [Backend] on one [http.ServeMux].
//
// Middleware is captured when a route is registered, so routes added before a [BasicRouter.Use] call
// (such as an unauthenticated health check) are not wrapped by it.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	patterns    []string
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware for routes registered after this call. The first added runs outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a single method-scoped route such as ("GET", "/api/health").
//
// Other methods on the same path get a 405 from the mux.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mount(strings.ToUpper(method)+" "+path, r.Apply(handler))
}

// Handler mounts h on every pattern it reports through Routes, e.g. each collection of the backend.
func (r *BasicRouter) Handler(h Handler) {
	wrapped := r.Apply(h)
	for _, pattern := range h.Routes() {
		r.mount(pattern, wrapped)
	}
}

// Routes lists the mounted patterns in registration order.
func (r *BasicRouter) Routes() []string {
	return append([]string(nil), r.patterns...)
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the current middleware stack.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler
}

func (r *BasicRouter) mount(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
	r.patterns = append(r.patterns, pattern)
}
