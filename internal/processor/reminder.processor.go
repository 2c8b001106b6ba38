package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gateway "github.com/nimasrn/policy-desk/internal/gateways"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/queue"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/prom"
)

var ErrLockHeld = errors.New("lock held by another consumer")

type Sender interface {
	SendWhatsApp(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error)
}

type ReminderLogStore interface {
	MarkSent(ctx context.Context, id int64, sentAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64) error
}

type ReminderCounter interface {
	IncrementReminderCount(ctx context.Context, policyID int64) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReminderDispatchProcessor delivers queued reminders and records the outcome
// on the reminder log and the policy's reminder count.
type ReminderDispatchProcessor struct {
	sender      Sender
	logs        ReminderLogStore
	policies    ReminderCounter
	tx          Transactor
	idempotency *IdempotencyService
	now         func() time.Time
}

func NewReminderDispatchProcessor(sender Sender, logs ReminderLogStore, policies ReminderCounter, tx Transactor, idempotency *IdempotencyService) *ReminderDispatchProcessor {
	return &ReminderDispatchProcessor{
		sender:      sender,
		logs:        logs,
		policies:    policies,
		tx:          tx,
		idempotency: idempotency,
		now:         time.Now,
	}
}

func (p *ReminderDispatchProcessor) GetType() string {
	return queue.TypeReminder
}

// Process returns nil when the message is finished with, delivered or not,
// and an error when it should be redelivered.
func (p *ReminderDispatchProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var job model.ReminderJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		prom.IncDispatchResult("invalid")
		return fmt.Errorf("decode reminder job %s: %w", msg.ID, err)
	}
	key := job.IdempotencyKey()

	pc, err := p.idempotency.AcquireProcessingLock(ctx, key)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		prom.IncDispatchResult("duplicate")
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		p.markFailed(ctx, job)
		return nil
	case errors.Is(err, ErrLockAcquireFailed):
		return ErrLockHeld
	case err != nil:
		return err
	}
	defer func() {
		_ = p.idempotency.ReleaseLock(ctx, pc)
	}()

	resp, err := p.sender.SendWhatsApp(ctx, gateway.NewSendRequest(key, job.ContactNumber, job.Message))
	if errors.Is(err, gateway.ErrRejected) {
		logger.Warn("reminder rejected by channel", "key", key, "log_id", job.LogID, "error", err)
		p.markFailed(ctx, job)
		if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
			logger.Error("mark processed failed", "key", key, "error", err)
		}
		return nil
	}
	if err != nil {
		retries, markErr := p.idempotency.MarkFailure(ctx, pc, err)
		if markErr != nil {
			logger.Error("mark failure failed", "key", key, "error", markErr)
		}
		if retries >= p.idempotency.MaxRetries() {
			p.markFailed(ctx, job)
			return nil
		}
		prom.IncDispatchResult("retry")
		return err
	}

	// the message is out; a bookkeeping failure below must not cause a resend
	if err := p.recordSent(ctx, job); err != nil {
		logger.Error("record sent reminder failed", "key", key, "log_id", job.LogID, "error", err)
	}
	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		logger.Error("mark processed failed", "key", key, "error", err)
	}

	prom.IncDispatchResult(string(model.ReminderSent))
	logger.Info("reminder sent",
		"key", key,
		"log_id", job.LogID,
		"policy_id", job.PolicyID,
		"provider", resp.Provider,
		"retry_count", pc.RetryCount)
	return nil
}

func (p *ReminderDispatchProcessor) recordSent(ctx context.Context, job model.ReminderJob) error {
	return p.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		changed, err := p.logs.MarkSent(ctx, job.LogID, p.now().UTC())
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return p.policies.IncrementReminderCount(ctx, job.PolicyID)
	})
}

func (p *ReminderDispatchProcessor) markFailed(ctx context.Context, job model.ReminderJob) {
	prom.IncDispatchResult(string(model.ReminderFailed))
	if err := p.logs.MarkFailed(ctx, job.LogID); err != nil {
		logger.Error("mark reminder failed", "log_id", job.LogID, "error", err)
	}
}
