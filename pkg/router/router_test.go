package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func do(h fasthttp.RequestHandler, method, path string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	h(ctx)
	return ctx
}

func TestRoutes(t *testing.T) {
	r := New()
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		_ = WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	})

	ctx := do(r.Handler, "GET", "/healthz")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, string(ctx.Response.Body()))

	ctx = do(r.Handler, "POST", "/healthz")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())

	ctx = do(r.Handler, "GET", "/nope")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"error":"not found"}`, string(ctx.Response.Body()))
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(func(ctx *fasthttp.RequestCtx) { seen = RequestID(ctx) })

	ctx := do(h, "GET", "/")
	require.Len(t, seen, 36)
	assert.Equal(t, seen, string(ctx.Response.Header.Peek(RequestIDHeader)))

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(RequestIDHeader, "abc")
	h(ctx)
	assert.Equal(t, "abc", seen)
}
