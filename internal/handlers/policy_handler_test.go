package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"testing"

	"github.com/nimasrn/policy-desk/internal/importer"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/services"
	"github.com/nimasrn/policy-desk/internal/urgency"
	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestPolicyHandler_Import(t *testing.T) {
	t.Run("returns the import result", func(t *testing.T) {
		imports := new(MockImportService)
		h := NewPolicyHandler(imports, nil)

		body := []byte("csv body")
		imports.On("ImportFile", mock.Anything, "owner-1", body).Return(&model.ImportResult{
			BatchID:      "b-1",
			TotalRows:    2,
			SuccessCount: 1,
			FailedCount:  1,
			Errors:       []model.ValidationError{{Row: 3, Field: "Policy Number", Message: "Policy Number is required"}},
		}, nil)

		ctx := setupTestContext("POST", "/api/v1/policies/import", body, owner("owner-1"))
		h.Import(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var got model.ImportResult
		decode(t, ctx, &got)
		assert.Equal(t, "b-1", got.BatchID)
		assert.Equal(t, 1, got.FailedCount)
		require.Len(t, got.Errors, 1)
		assert.Equal(t, 3, got.Errors[0].Row)
		imports.AssertExpectations(t)
	})

	t.Run("missing owner header", func(t *testing.T) {
		imports := new(MockImportService)
		h := NewPolicyHandler(imports, nil)

		ctx := setupTestContext("POST", "/api/v1/policies/import", []byte("x"), nil)
		h.Import(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
		imports.AssertNotCalled(t, "ImportFile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty body", func(t *testing.T) {
		h := NewPolicyHandler(new(MockImportService), nil)

		ctx := setupTestContext("POST", "/api/v1/policies/import", nil, owner("owner-1"))
		h.Import(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("batch rejections are client errors", func(t *testing.T) {
		for _, err := range []error{
			importer.ErrEmptyBatch,
			fmt.Errorf("%w: 1001 rows, limit 1000", importer.ErrBatchTooLarge),
			importer.ErrQuotaExceeded,
			fmt.Errorf("%w: csv: %w", services.ErrUnreadableFile, importer.ErrMissingColumns),
		} {
			imports := new(MockImportService)
			imports.On("ImportFile", mock.Anything, "owner-1", mock.Anything).Return(nil, err)

			ctx := setupTestContext("POST", "/api/v1/policies/import", []byte("x"), owner("owner-1"))
			NewPolicyHandler(imports, nil).Import(ctx)

			assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode(), err.Error())
			var body map[string]string
			decode(t, ctx, &body)
			assert.Equal(t, err.Error(), body["error"])
		}
	})

	t.Run("unexpected failures are server errors", func(t *testing.T) {
		imports := new(MockImportService)
		imports.On("ImportFile", mock.Anything, "owner-1", mock.Anything).Return(nil, assert.AnError)

		ctx := setupTestContext("POST", "/api/v1/policies/import", []byte("x"), owner("owner-1"))
		NewPolicyHandler(imports, nil).Import(ctx)

		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
	})

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", "policies.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte("file contents"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		imports := new(MockImportService)
		imports.On("ImportFile", mock.Anything, "owner-1", []byte("file contents")).Return(&model.ImportResult{BatchID: "b-2"}, nil)

		headers := owner("owner-1")
		headers["Content-Type"] = w.FormDataContentType()
		ctx := setupTestContext("POST", "/api/v1/policies/import", buf.Bytes(), headers)
		NewPolicyHandler(imports, nil).Import(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		imports.AssertExpectations(t)
	})
}

func TestPolicyHandler_ImportReport(t *testing.T) {
	result := []byte(`{"batchId":"b-9","errors":[{"row":2,"field":"Mobile Number","message":"Mobile Number must be 10 digits"}]}`)

	t.Run("csv", func(t *testing.T) {
		ctx := setupTestContext("POST", "/api/v1/policies/import/report?format=csv", result, nil)
		NewPolicyHandler(nil, nil).ImportReport(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		assert.Equal(t, "text/csv; charset=utf-8", string(ctx.Response.Header.ContentType()))
		assert.Contains(t, string(ctx.Response.Header.Peek("Content-Disposition")), "import-errors-b-9.csv")
		assert.Contains(t, string(ctx.Response.Body()), "2,Mobile Number,Mobile Number must be 10 digits")
	})

	t.Run("xlsx", func(t *testing.T) {
		ctx := setupTestContext("POST", "/api/v1/policies/import/report?format=xlsx", result, nil)
		NewPolicyHandler(nil, nil).ImportReport(ctx)

		require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		f, err := xlsx.OpenBinary(ctx.Response.Body())
		require.NoError(t, err)
		require.NotEmpty(t, f.Sheets)
		assert.Equal(t, "Mobile Number", f.Sheets[0].Rows[1].Cells[1].String())
	})

	t.Run("bad format", func(t *testing.T) {
		ctx := setupTestContext("POST", "/api/v1/policies/import/report?format=pdf", result, nil)
		NewPolicyHandler(nil, nil).ImportReport(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("bad body", func(t *testing.T) {
		ctx := setupTestContext("POST", "/api/v1/policies/import/report", []byte("{"), nil)
		NewPolicyHandler(nil, nil).ImportReport(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestPolicyHandler_ImportTemplate(t *testing.T) {
	ctx := setupTestContext("GET", "/api/v1/policies/import/template", nil, nil)
	NewPolicyHandler(nil, nil).ImportTemplate(ctx)

	require.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	f, err := xlsx.OpenBinary(ctx.Response.Body())
	require.NoError(t, err)
	require.NotEmpty(t, f.Sheets)
	assert.Equal(t, "Customer Name", f.Sheets[0].Rows[0].Cells[0].String())
}

func TestPolicyHandler_Due(t *testing.T) {
	t.Run("lists due policies", func(t *testing.T) {
		views := new(MockPolicyViewService)
		views.On("Due", mock.Anything, "owner-1", "critical").Return([]services.PolicyView{
			{Policy: &model.Policy{ID: 1, PolicyNumber: "P-1"}, Urgency: urgency.Assessment{DaysLeft: 2, Tier: urgency.Critical, Due: true}},
		}, nil)

		ctx := setupTestContext("GET", "/api/v1/policies/due?tier=critical", nil, owner("owner-1"))
		NewPolicyHandler(nil, views).Due(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		var got struct {
			Items []map[string]any `json:"items"`
			Total int              `json:"total"`
		}
		decode(t, ctx, &got)
		assert.Equal(t, 1, got.Total)
		assert.Equal(t, "P-1", got.Items[0]["policyNumber"])
		assert.Equal(t, "critical", got.Items[0]["urgency"].(map[string]any)["tier"])
	})

	t.Run("invalid tier", func(t *testing.T) {
		views := new(MockPolicyViewService)
		views.On("Due", mock.Anything, "owner-1", "urgent").Return(nil, services.ErrInvalidTier)

		ctx := setupTestContext("GET", "/api/v1/policies/due?tier=urgent", nil, owner("owner-1"))
		NewPolicyHandler(nil, views).Due(ctx)
		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("repository failure", func(t *testing.T) {
		views := new(MockPolicyViewService)
		views.On("Due", mock.Anything, "owner-1", "").Return(nil, assert.AnError)

		ctx := setupTestContext("GET", "/api/v1/policies/due", nil, owner("owner-1"))
		NewPolicyHandler(nil, views).Due(ctx)
		assert.Equal(t, xhttp.StatusInternalServerError, ctx.Response.StatusCode())
	})
}

func TestPolicyHandler_Expired(t *testing.T) {
	views := new(MockPolicyViewService)
	views.On("Expired", mock.Anything, "owner-1").Return([]services.PolicyView{}, nil)

	ctx := setupTestContext("GET", "/api/v1/policies/expired", nil, owner("owner-1"))
	NewPolicyHandler(nil, views).Expired(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"items":[],"total":0}`, string(ctx.Response.Body()))

	ctx = setupTestContext("GET", "/api/v1/policies/expired", nil, nil)
	NewPolicyHandler(nil, views).Expired(ctx)
	assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
}
