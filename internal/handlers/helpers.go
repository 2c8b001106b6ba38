package handlers

import (
	"encoding/json"
	"strings"

	xhttp "github.com/nimasrn/policy-desk/pkg/http"
)

const (
	HeaderOwnerID         = "X-Owner-Id"
	HeaderSchedulerSecret = "X-Scheduler-Secret"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func ownerID(ctx *xhttp.RequestCtx) string {
	return strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderOwnerID)))
}

// requireOwner writes a 400 and returns "" when the owner header is absent.
func requireOwner(ctx *xhttp.RequestCtx) string {
	id := ownerID(ctx)
	if id == "" {
		writeError(ctx, xhttp.StatusBadRequest, HeaderOwnerID+" header is required")
	}
	return id
}
