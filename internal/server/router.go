package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// MuxRouter implements [Router] on a [mux.Router], so paths may carry {variables}.
type MuxRouter struct {
	mux         *mux.Router
	middlewares []Middleware
}

// NewMuxRouter creates a new [MuxRouter] instance.
func NewMuxRouter() *MuxRouter {
	return &MuxRouter{
		mux:         mux.NewRouter(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the router's stack, applied in the order it's added.
//
// Only routes registered after the call are wrapped.
func (r *MuxRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for method and path. Other methods on the same path get 405.
func (r *MuxRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, r.Apply(handler)).Methods(method)
}

// Handler registers every route of a [Handler] for GET.
func (r *MuxRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped).Methods(http.MethodGet)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *MuxRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *MuxRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}

// Var returns a path variable of the matched route.
func Var(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
