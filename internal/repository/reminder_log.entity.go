package repository

import (
	"time"

	"github.com/nimasrn/policy-desk/internal/model"
)

type ReminderLogEntity struct {
	ID           int64      `gorm:"primaryKey;autoIncrement;column:id"`
	PolicyID     int64      `gorm:"column:policy_id;not null;uniqueIndex:idx_reminder_logs_policy_day,priority:1"`
	OwnerID      string     `gorm:"column:owner_id;not null;index"`
	Message      string     `gorm:"column:message;type:text;not null"`
	Status       string     `gorm:"column:status;not null"`
	ReminderDate string     `gorm:"column:reminder_date;size:10;not null;uniqueIndex:idx_reminder_logs_policy_day,priority:2"`
	DaysToExpiry int        `gorm:"column:days_to_expiry;not null"`
	SentAt       *time.Time `gorm:"column:sent_at"`
	QueuedAt     *time.Time `gorm:"column:queued_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReminderLogEntity) TableName() string {
	return "whatsapp_reminder_logs"
}

func toReminderLogEntity(m *model.ReminderLog) *ReminderLogEntity {
	if m == nil {
		return nil
	}
	e := &ReminderLogEntity{
		ID:           m.ID,
		PolicyID:     m.PolicyID,
		OwnerID:      m.OwnerID,
		Message:      m.Message,
		Status:       string(m.Status),
		ReminderDate: m.ReminderDate,
		DaysToExpiry: m.DaysToExpiry,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if !m.SentAt.IsZero() {
		sentAt := m.SentAt
		e.SentAt = &sentAt
	}
	if !m.QueuedAt.IsZero() {
		queuedAt := m.QueuedAt
		e.QueuedAt = &queuedAt
	}
	return e
}

func toReminderLogModel(e *ReminderLogEntity) *model.ReminderLog {
	if e == nil {
		return nil
	}
	m := &model.ReminderLog{
		ID:           e.ID,
		PolicyID:     e.PolicyID,
		OwnerID:      e.OwnerID,
		Message:      e.Message,
		Status:       model.ReminderStatus(e.Status),
		ReminderDate: e.ReminderDate,
		DaysToExpiry: e.DaysToExpiry,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.SentAt != nil {
		m.SentAt = *e.SentAt
	}
	if e.QueuedAt != nil {
		m.QueuedAt = *e.QueuedAt
	}
	return m
}

func toReminderLogModels(entities []*ReminderLogEntity) []*model.ReminderLog {
	models := make([]*model.ReminderLog, len(entities))
	for i, e := range entities {
		models[i] = toReminderLogModel(e)
	}
	return models
}
