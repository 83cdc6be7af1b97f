package app

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"meshbbs/pkg/router"
	"meshbbs/pkg/telemetry"
)

func (a *App) healthzHandlerFast(ctx *fasthttp.RequestCtx) {
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{
		"status":   "ok",
		"state":    a.Status(),
		"sessions": a.sessions.Len(),
	})
}

// routes builds the handler served by the listener.
func (a *App) routes() fasthttp.RequestHandler {
	r := router.New()
	r.GET("/healthz", a.healthzHandlerFast)
	r.GET("/metrics", telemetry.Handler())
	if a.gateway != nil {
		a.gateway.Register(r)
	}
	r.NotFound(func(ctx *fasthttp.RequestCtx) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "not found")
	})
	return router.WithRequestID(r.Handler)
}

// startHTTP starts the fasthttp server and returns a channel that delivers
// its error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	const (
		readBufferSize       = 16 * 1024
		maxRequestBodySize   = 64 * 1024 // packets are tiny
		readTimeout          = 10 * time.Second
		writeTimeout         = 10 * time.Second
		idleTimeout          = 30 * time.Second
		maxKeepaliveDuration = 2 * time.Minute
	)
	a.srvFast = &fasthttp.Server{
		Handler:              a.routes(),
		Name:                 "meshbbs",
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   maxRequestBodySize,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	srv := a.srvFast
	addr := a.eff.Config.Addr()
	go func() {
		errCh <- srv.ListenAndServe(addr)
	}()
	return errCh
}
