package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/policy-desk/internal/importer"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/validation"
	"github.com/nimasrn/policy-desk/pkg/logger"
)

// ErrUnreadableFile wraps every failure to read an upload into rows.
var ErrUnreadableFile = errors.New("upload could not be read")

type FileFormat string

const (
	FormatXLSX FileFormat = "xlsx"
	FormatCSV  FileFormat = "csv"
)

// xlsx workbooks are zip archives
var zipMagic = []byte("PK\x03\x04")

// DetectFormat sniffs the upload instead of trusting its content type.
func DetectFormat(data []byte) FileFormat {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

type Importer interface {
	Import(ctx context.Context, ownerID string, rows []validation.Row) (*model.ImportResult, error)
}

type ImportService struct {
	pipeline Importer
}

// NewImportService expects a pipeline whose row numbers already account for
// the sheet's header line.
func NewImportService(pipeline Importer) *ImportService {
	return &ImportService{pipeline: pipeline}
}

// ImportFile reads an uploaded workbook or CSV file and runs it through the
// pipeline. Read failures are batch-level rejections like any other.
func (s *ImportService) ImportFile(ctx context.Context, ownerID string, data []byte) (*model.ImportResult, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	var (
		rows []validation.Row
		err  error
	)
	format := DetectFormat(data)
	switch format {
	case FormatXLSX:
		rows, err = importer.ReadXLSX(data)
	default:
		rows, err = importer.ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, format, err)
	}

	logger.Debug("upload parsed", "owner_id", ownerID, "format", format, "rows", len(rows))
	return s.pipeline.Import(ctx, ownerID, rows)
}
