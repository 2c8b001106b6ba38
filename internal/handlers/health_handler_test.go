package handlers

import (
	"context"
	"errors"
	"testing"

	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/stretchr/testify/assert"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) Check(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ctx := setupTestContext("GET", "/api/v1/health", nil, nil)
	NewHealthHandler(checkFunc(func(context.Context) error { return nil })).GetHealth(ctx)
	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, string(ctx.Response.Body()))

	ctx = setupTestContext("GET", "/api/v1/health", nil, nil)
	NewHealthHandler(checkFunc(func(context.Context) error { return errors.New("redis: down") })).GetHealth(ctx)
	assert.Equal(t, xhttp.StatusServiceUnavailable, ctx.Response.StatusCode())
}
