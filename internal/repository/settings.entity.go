package repository

import (
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/policy-desk/internal/model"
)

// ReminderSettingsEntity keeps reminder_days as a comma separated list so the
// same schema works on postgres and sqlite.
type ReminderSettingsEntity struct {
	OwnerID       string    `gorm:"primaryKey;column:owner_id"`
	AutoReminders bool      `gorm:"column:auto_reminders;not null;default:false;index"`
	ReminderDays  string    `gorm:"column:reminder_days;not null;default:''"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReminderSettingsEntity) TableName() string {
	return "reminder_settings"
}

func toSettingsEntity(m model.ReminderSettings) *ReminderSettingsEntity {
	days := make([]string, 0, len(m.ReminderDays))
	for _, d := range m.ReminderDays {
		days = append(days, strconv.Itoa(d))
	}
	return &ReminderSettingsEntity{
		OwnerID:       m.OwnerID,
		AutoReminders: m.AutoReminders,
		ReminderDays:  strings.Join(days, ","),
	}
}

// toSettingsModel drops malformed or non-positive offsets rather than failing
// the owner's whole run.
func toSettingsModel(e *ReminderSettingsEntity) model.ReminderSettings {
	m := model.ReminderSettings{OwnerID: e.OwnerID, AutoReminders: e.AutoReminders}
	for _, part := range strings.Split(e.ReminderDays, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && d > 0 {
			m.ReminderDays = append(m.ReminderDays, d)
		}
	}
	return m
}
