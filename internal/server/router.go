package server

import (
	"net/http"
	"slices"
)

var _ Router = (*BasicRouter)(nil)

// BasicRouter dispatches through an [http.ServeMux]; every route runs behind the same middleware chain.
type BasicRouter struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes []string
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. Routes registered afterwards get it; the first one added runs outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handler mounts handler on every pattern from [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	for _, pattern := range handler.Routes() {
		r.mux.Handle(pattern, r.Apply(handler))
		r.routes = append(r.routes, pattern)
	}
}

// Routes lists the registered patterns in registration order.
func (r *BasicRouter) Routes() []string {
	return slices.Clone(r.routes)
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the middleware chain.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.chain) - 1; i >= 0; i-- {
		handler = r.chain[i](handler)
	}
	return handler
}
