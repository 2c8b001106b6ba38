package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrReminderLogNotFound = errors.New("reminder log not found")
)

type ReminderLogRepository struct {
	*pg.DB
}

func NewReminderLogRepository(db *pg.DB) *ReminderLogRepository {
	return &ReminderLogRepository{
		db,
	}
}

// Exists reports whether the policy already has a reminder for the day
// (yyyy-MM-dd).
func (r *ReminderLogRepository) Exists(ctx context.Context, policyID int64, day string) (bool, error) {
	var count int64
	err := r.Read(ctx).
		Model(&ReminderLogEntity{}).
		Where("policy_id = ? AND reminder_date = ?", policyID, day).
		Count(&count).
		Error
	return count > 0, err
}

// Create inserts the log unless one already exists for (policy, day). The
// returned bool is false when a concurrent run got there first.
func (r *ReminderLogRepository) Create(ctx context.Context, log *model.ReminderLog) (bool, error) {
	entity := toReminderLogEntity(log)
	result := r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "policy_id"}, {Name: "reminder_date"}},
			DoNothing: true,
		}).
		Create(entity)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	log.ID = entity.ID
	log.CreatedAt = entity.CreatedAt
	log.UpdatedAt = entity.UpdatedAt
	return true, nil
}

// FindUnqueued returns the day's pending entry for the policy when it has not
// been handed to the queue yet, or nil.
func (r *ReminderLogRepository) FindUnqueued(ctx context.Context, policyID int64, day string) (*model.ReminderLog, error) {
	var entities []*ReminderLogEntity
	err := r.Read(ctx).
		Where("policy_id = ? AND reminder_date = ? AND status = ? AND queued_at IS NULL",
			policyID, day, string(model.ReminderPending)).
		Limit(1).
		Find(&entities).
		Error
	if err != nil || len(entities) == 0 {
		return nil, err
	}
	return toReminderLogModel(entities[0]), nil
}

func (r *ReminderLogRepository) MarkQueued(ctx context.Context, id int64, queuedAt time.Time) error {
	return r.Write(ctx).
		Model(&ReminderLogEntity{}).
		Where("id = ?", id).
		Update("queued_at", queuedAt).
		Error
}

func (r *ReminderLogRepository) GetByID(ctx context.Context, id int64) (*model.ReminderLog, error) {
	var entity ReminderLogEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderLogNotFound
		}
		return nil, err
	}
	return toReminderLogModel(&entity), nil
}

func (r *ReminderLogRepository) ListByPolicy(ctx context.Context, policyID int64) ([]*model.ReminderLog, error) {
	var entities []*ReminderLogEntity
	err := r.Read(ctx).
		Where("policy_id = ?", policyID).
		Order("reminder_date ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toReminderLogModels(entities), nil
}

// MarkSent moves a pending or failed entry to sent. It returns false when the
// entry was already sent, so callers can skip side effects on redelivery.
func (r *ReminderLogRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) (bool, error) {
	result := r.Write(ctx).
		Model(&ReminderLogEntity{}).
		Where("id = ? AND status IN ?", id, []string{string(model.ReminderPending), string(model.ReminderFailed)}).
		Updates(map[string]any{
			"status":  string(model.ReminderSent),
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *ReminderLogRepository) MarkFailed(ctx context.Context, id int64) error {
	result := r.Write(ctx).
		Model(&ReminderLogEntity{}).
		Where("id = ? AND status = ?", id, string(model.ReminderPending)).
		Update("status", string(model.ReminderFailed))
	return result.Error
}
