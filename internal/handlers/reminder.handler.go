package handlers

import (
	"context"
	"crypto/subtle"

	"github.com/fasthttp/router"
	"github.com/nimasrn/policy-desk/internal/reminder"
	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/nimasrn/policy-desk/pkg/logger"
)

type ReminderRunner interface {
	Run(ctx context.Context) (*reminder.RunSummary, error)
}

type ReminderHandler struct {
	runner ReminderRunner
	secret string
}

func RegisterReminderRoutes(e *router.Group, h *ReminderHandler) {
	e.POST("/reminders/run", h.Run)
}

// NewReminderHandler protects the run endpoint with secret. An empty secret
// disables the endpoint.
func NewReminderHandler(runner ReminderRunner, secret string) *ReminderHandler {
	return &ReminderHandler{runner: runner, secret: secret}
}

func (h *ReminderHandler) Run(ctx *xhttp.RequestCtx) {
	given := ctx.Request.Header.Peek(HeaderSchedulerSecret)
	if h.secret == "" || subtle.ConstantTimeCompare(given, []byte(h.secret)) != 1 {
		writeError(ctx, xhttp.StatusUnauthorized, "invalid scheduler secret")
		return
	}

	summary, err := h.runner.Run(ctx)
	if err != nil {
		logger.Error("reminder run failed", "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, summary)
}
