package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/reminder"
	"github.com/nimasrn/policy-desk/internal/services"
	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ImportFile(ctx context.Context, ownerID string, data []byte) (*model.ImportResult, error) {
	args := m.Called(ctx, ownerID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ImportResult), args.Error(1)
}

type MockPolicyViewService struct {
	mock.Mock
}

func (m *MockPolicyViewService) Due(ctx context.Context, ownerID string, tier string) ([]services.PolicyView, error) {
	args := m.Called(ctx, ownerID, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.PolicyView), args.Error(1)
}

func (m *MockPolicyViewService) Expired(ctx context.Context, ownerID string) ([]services.PolicyView, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.PolicyView), args.Error(1)
}

type MockReminderRunner struct {
	mock.Mock
}

func (m *MockReminderRunner) Run(ctx context.Context) (*reminder.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reminder.RunSummary), args.Error(1)
}

// setupTestContext goes through Init so the context is bound to a server and
// can be handed to code that waits on Done.
func setupTestContext(method, path string, body []byte, headers map[string]string) *xhttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.SetBody(body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func decode(t *testing.T, ctx *xhttp.RequestCtx, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), dst))
}

func owner(id string) map[string]string {
	return map[string]string{HeaderOwnerID: id}
}
