package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSettingsNotFound = errors.New("reminder settings not found")
)

type SettingsRepository struct {
	*pg.DB
}

func NewSettingsRepository(db *pg.DB) *SettingsRepository {
	return &SettingsRepository{
		db,
	}
}

// ListAutoEnabled returns every owner that opted into automatic reminders.
func (r *SettingsRepository) ListAutoEnabled(ctx context.Context) ([]model.ReminderSettings, error) {
	var entities []*ReminderSettingsEntity
	err := r.Read(ctx).
		Where("auto_reminders = ?", true).
		Order("owner_id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	settings := make([]model.ReminderSettings, len(entities))
	for i, e := range entities {
		settings[i] = toSettingsModel(e)
	}
	return settings, nil
}

func (r *SettingsRepository) Get(ctx context.Context, ownerID string) (model.ReminderSettings, error) {
	var entity ReminderSettingsEntity
	err := r.Read(ctx).Where("owner_id = ?", ownerID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ReminderSettings{}, ErrSettingsNotFound
		}
		return model.ReminderSettings{}, err
	}
	return toSettingsModel(&entity), nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, settings model.ReminderSettings) error {
	return r.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"auto_reminders", "reminder_days", "updated_at"}),
		}).
		Create(toSettingsEntity(settings)).
		Error
}
