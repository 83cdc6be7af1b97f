// Package router is a small fasthttp router for the BBS control surface:
// exact-path routes per method, JSON responders and a request id wrapper.
package router

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

const RequestIDHeader = "X-Request-Id"

type Router struct {
	routes   map[string]map[string]fasthttp.RequestHandler
	notFound fasthttp.RequestHandler
}

func New() *Router {
	return &Router{routes: make(map[string]map[string]fasthttp.RequestHandler)}
}

// Handler satisfies fasthttp.Server. A path registered under another method
// answers 405.
func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	if h, ok := r.routes[string(ctx.Method())][path]; ok {
		h(ctx)
		return
	}
	for _, byPath := range r.routes {
		if _, ok := byPath[path]; ok {
			WriteJSONError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
			return
		}
	}
	if r.notFound != nil {
		r.notFound(ctx)
		return
	}
	WriteJSONError(ctx, fasthttp.StatusNotFound, "not found")
}

func (r *Router) GET(path string, h fasthttp.RequestHandler)  { r.add(fasthttp.MethodGet, path, h) }
func (r *Router) POST(path string, h fasthttp.RequestHandler) { r.add(fasthttp.MethodPost, path, h) }

// NotFound registers a handler for unmatched routes.
func (r *Router) NotFound(h fasthttp.RequestHandler) {
	r.notFound = h
}

func (r *Router) add(method, path string, h fasthttp.RequestHandler) {
	if r.routes[method] == nil {
		r.routes[method] = make(map[string]fasthttp.RequestHandler)
	}
	r.routes[method][path] = h
}

// WithRequestID echoes the caller's X-Request-Id or assigns a new one, and
// stores it as the "request_id" user value.
func WithRequestID(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.Request.Header.Peek(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetUserValue("request_id", id)
		ctx.Response.Header.Set(RequestIDHeader, id)
		next(ctx)
	}
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("request_id").(string)
	return id
}

// WriteJSON writes v with the given status.
func WriteJSON(ctx *fasthttp.RequestCtx, status int, v any) error {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	return json.NewEncoder(ctx).Encode(v)
}

// WriteJSONError writes {"error": message}.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	_ = WriteJSON(ctx, status, map[string]string{"error": message})
}
