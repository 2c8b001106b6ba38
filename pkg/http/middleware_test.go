package xhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func newCtx(method, uri string) *RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(ctx *RequestCtx) {
		panic("boom")
	})

	ctx := newCtx("GET", "/api/v1/policies/due")
	assert.NotPanics(t, func() { h(ctx) })
	assert.Equal(t, StatusInternalServerError, ctx.Response.StatusCode())
}

func TestEngine_MiddlewareOrder(t *testing.T) {
	e := NewServer(DefaultServerOption)
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next RequestHandler) RequestHandler {
			return func(ctx *RequestCtx) {
				order = append(order, name)
				next(ctx)
			}
		}
	}
	e.Use(mark("first"))
	e.Use(mark("second"))
	e.GET("/ping", func(ctx *RequestCtx) {
		order = append(order, "handler")
		ctx.SetStatusCode(StatusOK)
	})

	ctx := newCtx("GET", "/ping")
	e.Handler()(ctx)

	assert.Equal(t, []string{"first", "second", "handler"}, order)
	assert.Equal(t, StatusOK, ctx.Response.StatusCode())
}

func TestDefaultRouter_NotFound(t *testing.T) {
	r := CreateDefaultRouter()
	r.GET("/known", func(ctx *RequestCtx) {})

	ctx := newCtx("GET", "/unknown")
	r.Handler(ctx)
	assert.Equal(t, StatusNotFound, ctx.Response.StatusCode())

	ctx = newCtx("POST", "/known")
	r.Handler(ctx)
	assert.Equal(t, StatusNotFound, ctx.Response.StatusCode())
}

func TestRequestLogger_Helpers(t *testing.T) {
	assert.True(t, shouldSkip("/api/v1/health"))
	assert.True(t, shouldSkip("/metrics"))
	assert.False(t, shouldSkip("/api/v1/policies/import"))

	ctx := newCtx("GET", "/x")
	assert.Equal(t, "", requestID(ctx))
	ctx.Request.Header.Set("X-Request-Id", "req-7")
	assert.Equal(t, "req-7", requestID(ctx))

	RequestLoggerMiddleware(func(ctx *RequestCtx) { ctx.SetStatusCode(StatusBadRequest) })(ctx)
	assert.Equal(t, StatusBadRequest, ctx.Response.StatusCode())
}
