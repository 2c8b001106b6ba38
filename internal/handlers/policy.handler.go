package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fasthttp/router"
	"github.com/nimasrn/policy-desk/internal/importer"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/services"
	xhttp "github.com/nimasrn/policy-desk/pkg/http"
	"github.com/nimasrn/policy-desk/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ImportService interface {
	ImportFile(ctx context.Context, ownerID string, data []byte) (*model.ImportResult, error)
}

type PolicyViewService interface {
	Due(ctx context.Context, ownerID string, tier string) ([]services.PolicyView, error)
	Expired(ctx context.Context, ownerID string) ([]services.PolicyView, error)
}

type PolicyHandler struct {
	imports ImportService
	views   PolicyViewService
}

func RegisterPolicyRoutes(e *router.Group, h *PolicyHandler) {
	e.POST("/policies/import", h.Import)
	e.POST("/policies/import/report", h.ImportReport)
	e.GET("/policies/import/template", h.ImportTemplate)
	e.GET("/policies/due", h.Due)
	e.GET("/policies/expired", h.Expired)
}

func NewPolicyHandler(imports ImportService, views PolicyViewService) *PolicyHandler {
	return &PolicyHandler{
		imports: imports,
		views:   views,
	}
}

type listResponse struct {
	Items []services.PolicyView `json:"items"`
	Total int                   `json:"total"`
}

// batch-level rejections; anything else is a server fault
var badImportErrors = []error{
	services.ErrMissingOwner,
	services.ErrUnreadableFile,
	importer.ErrEmptyBatch,
	importer.ErrBatchTooLarge,
	importer.ErrQuotaExceeded,
}

func (h *PolicyHandler) Import(ctx *xhttp.RequestCtx) {
	owner := requireOwner(ctx)
	if owner == "" {
		return
	}

	data, err := uploadBody(ctx)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	result, err := h.imports.ImportFile(ctx, owner, data)
	if err != nil {
		for _, bad := range badImportErrors {
			if errors.Is(err, bad) {
				writeError(ctx, xhttp.StatusBadRequest, err.Error())
				return
			}
		}
		logger.Error("policy import failed", "owner_id", owner, "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "import failed")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, result)
}

// uploadBody returns the multipart "file" field when the request is a form
// upload, otherwise the raw body.
func uploadBody(ctx *xhttp.RequestCtx) ([]byte, error) {
	if !bytes.HasPrefix(ctx.Request.Header.ContentType(), []byte("multipart/form-data")) {
		if len(ctx.PostBody()) == 0 {
			return nil, errors.New("request body is empty")
		}
		return ctx.PostBody(), nil
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("multipart field \"file\": %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *PolicyHandler) ImportReport(ctx *xhttp.RequestCtx) {
	format, err := importer.ParseReportFormat(query(ctx, "format"))
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	var result model.ImportResult
	if err := readJSON(ctx, &result); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := importer.WriteReport(&buf, format, result.Errors); err != nil {
		logger.Error("error report failed", "batch_id", result.BatchID, "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "report failed")
		return
	}
	attachment(ctx, format.ContentType(), format.FileName(result.BatchID), buf.Bytes())
}

func (h *PolicyHandler) ImportTemplate(ctx *xhttp.RequestCtx) {
	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf); err != nil {
		logger.Error("template generation failed", "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "template failed")
		return
	}
	attachment(ctx, xlsxContentType, "policy-import-template.xlsx", buf.Bytes())
}

func attachment(ctx *xhttp.RequestCtx, contentType, name string, body []byte) {
	ctx.Response.Header.Set("Content-Type", contentType)
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	ctx.Response.SetStatusCode(xhttp.StatusOK)
	ctx.Response.SetBodyRaw(body)
}

func (h *PolicyHandler) Due(ctx *xhttp.RequestCtx) {
	owner := requireOwner(ctx)
	if owner == "" {
		return
	}

	items, err := h.views.Due(ctx, owner, query(ctx, "tier"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidTier) {
			writeError(ctx, xhttp.StatusBadRequest, err.Error())
			return
		}
		logger.Error("due policies failed", "owner_id", owner, "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "could not load policies")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: len(items)})
}

func (h *PolicyHandler) Expired(ctx *xhttp.RequestCtx) {
	owner := requireOwner(ctx)
	if owner == "" {
		return
	}

	items, err := h.views.Expired(ctx, owner)
	if err != nil {
		logger.Error("expired policies failed", "owner_id", owner, "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, "could not load policies")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: len(items)})
}
