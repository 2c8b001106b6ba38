// Package importer turns uploaded policy spreadsheets into stored policies.
//
// An import validates every row, stores the clean rows in fixed-size chunks
// and reports each problem against the row it came from. Chunks are written
// independently: a failed chunk does not undo the chunks before it.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/policy-desk/internal/company"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/validation"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/prom"
)

const (
	DefaultMaxRows   = 500
	DefaultChunkSize = 50

	FieldDatabase = "Database"
	MsgSaveFailed = "Failed to save"
)

var (
	ErrEmptyBatch    = errors.New("import contains no rows")
	ErrBatchTooLarge = errors.New("import exceeds the row limit")
	ErrQuotaExceeded = errors.New("import would exceed the owner's policy limit")
	ErrMissingOwner  = errors.New("owner id is required")
)

// PolicyStore persists policies. InsertMany must be all-or-nothing for the
// records it is given.
type PolicyStore interface {
	InsertMany(ctx context.Context, policies []*model.Policy) error
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}

type Options struct {
	MaxRows   int
	ChunkSize int

	// HeaderRows is added to every reported row number so numbers match what
	// the user sees in their spreadsheet.
	HeaderRows int

	// MaxPoliciesPerOwner caps an owner's stored policies; 0 disables it.
	MaxPoliciesPerOwner int
}

func DefaultOptions() Options {
	return Options{
		MaxRows:   DefaultMaxRows,
		ChunkSize: DefaultChunkSize,
	}
}

type Pipeline struct {
	store      PolicyStore
	normalizer *company.Normalizer
	opts       Options
}

func NewPipeline(store PolicyStore, normalizer *company.Normalizer, opts Options) *Pipeline {
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Pipeline{
		store:      store,
		normalizer: normalizer,
		opts:       opts,
	}
}

// WithHeaderRows returns a copy of the pipeline that offsets reported row
// numbers by n.
func (p *Pipeline) WithHeaderRows(n int) *Pipeline {
	cp := *p
	cp.opts.HeaderRows = n
	return &cp
}

type pendingRecord struct {
	rowNum int
	policy *model.Policy
}

// Import validates and stores rows for ownerID. A returned error is a
// batch-level rejection and means nothing was stored; everything else is
// reported inside the result.
func (p *Pipeline) Import(ctx context.Context, ownerID string, rows []validation.Row) (*model.ImportResult, error) {
	start := time.Now()

	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	if len(rows) == 0 {
		prom.IncImportBatch("rejected")
		return nil, ErrEmptyBatch
	}
	if len(rows) > p.opts.MaxRows {
		prom.IncImportBatch("rejected")
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrBatchTooLarge, len(rows), p.opts.MaxRows)
	}

	result := &model.ImportResult{
		BatchID:   uuid.New().String(),
		TotalRows: len(rows),
		Errors:    []model.ValidationError{},
	}

	clean := make([]pendingRecord, 0, len(rows))
	for i, row := range rows {
		rowNum := i + 1 + p.opts.HeaderRows
		if errs := validation.ValidateRow(row, rowNum); len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}
		clean = append(clean, pendingRecord{rowNum: rowNum, policy: toPolicy(row, ownerID, p.normalizer)})
	}

	if err := p.checkQuota(ctx, ownerID, len(clean)); err != nil {
		prom.IncImportBatch("rejected")
		return nil, err
	}

	for offset := 0; offset < len(clean); offset += p.opts.ChunkSize {
		end := min(offset+p.opts.ChunkSize, len(clean))
		chunk := clean[offset:end]

		policies := make([]*model.Policy, len(chunk))
		for i, rec := range chunk {
			policies[i] = rec.policy
		}

		if err := p.store.InsertMany(ctx, policies); err != nil {
			logger.Error("policy import chunk failed",
				"batch_id", result.BatchID,
				"owner_id", ownerID,
				"first_row", chunk[0].rowNum,
				"size", len(chunk),
				"error", err)
			for _, rec := range chunk {
				result.Errors = append(result.Errors, model.ValidationError{
					Row:     rec.rowNum,
					Field:   FieldDatabase,
					Message: MsgSaveFailed,
				})
			}
			continue
		}
		result.SuccessCount += len(chunk)
	}

	result.FailedCount = len(rows) - result.SuccessCount

	prom.IncImportBatch("accepted")
	prom.AddImportRows("success", result.SuccessCount)
	prom.AddImportRows("failed", result.FailedCount)
	prom.ObserveImportDuration(time.Since(start).Seconds())

	logger.Info("policy import finished",
		"batch_id", result.BatchID,
		"owner_id", ownerID,
		"rows", result.TotalRows,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"errors", len(result.Errors),
		"duration", time.Since(start).String())

	return result, nil
}

func (p *Pipeline) checkQuota(ctx context.Context, ownerID string, incoming int) error {
	if p.opts.MaxPoliciesPerOwner <= 0 || incoming == 0 {
		return nil
	}
	existing, err := p.store.CountByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("count owner policies: %w", err)
	}
	if existing+int64(incoming) > int64(p.opts.MaxPoliciesPerOwner) {
		return fmt.Errorf("%w: %d stored, %d incoming, limit %d",
			ErrQuotaExceeded, existing, incoming, p.opts.MaxPoliciesPerOwner)
	}
	return nil
}
