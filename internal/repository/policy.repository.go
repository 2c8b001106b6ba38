package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrPolicyNotFound = errors.New("policy not found")
)

type PolicyRepository struct {
	*pg.DB
}

func NewPolicyRepository(db *pg.DB) *PolicyRepository {
	return &PolicyRepository{
		db,
	}
}

// InsertMany writes the policies in one statement; either all rows land or
// none do. Generated ids are copied back onto the models.
func (r *PolicyRepository) InsertMany(ctx context.Context, policies []*model.Policy) error {
	if len(policies) == 0 {
		return nil
	}

	entities := make([]*PolicyEntity, len(policies))
	for i, p := range policies {
		entities[i] = toPolicyEntity(p)
	}

	if err := r.Write(ctx).Create(&entities).Error; err != nil {
		return err
	}

	for i, e := range entities {
		policies[i].ID = e.ID
		policies[i].CreatedAt = e.CreatedAt
		policies[i].UpdatedAt = e.UpdatedAt
	}
	return nil
}

func (r *PolicyRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.Read(ctx).
		Model(&PolicyEntity{}).
		Where("owner_id = ?", ownerID).
		Count(&count).
		Error
	return count, err
}

func (r *PolicyRepository) GetByID(ctx context.Context, id int64) (*model.Policy, error) {
	var entity PolicyEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return toPolicyModel(&entity), nil
}

// ListExpiringBetween returns the owner's policies with from <= expiry <= to,
// soonest first.
func (r *PolicyRepository) ListExpiringBetween(ctx context.Context, ownerID string, from, to time.Time) ([]*model.Policy, error) {
	var entities []*PolicyEntity
	err := r.Read(ctx).
		Where("owner_id = ? AND expiry_date >= ? AND expiry_date <= ?", ownerID, from, to).
		Order("expiry_date ASC, id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toPolicyModels(entities), nil
}

// ListNotExpired returns every policy expiring on or after day.
func (r *PolicyRepository) ListNotExpired(ctx context.Context, ownerID string, day time.Time) ([]*model.Policy, error) {
	var entities []*PolicyEntity
	err := r.Read(ctx).
		Where("owner_id = ? AND expiry_date >= ?", ownerID, day).
		Order("expiry_date ASC, id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toPolicyModels(entities), nil
}

// ListExpiredBefore returns policies whose expiry is strictly before day,
// most recently expired first.
func (r *PolicyRepository) ListExpiredBefore(ctx context.Context, ownerID string, day time.Time) ([]*model.Policy, error) {
	var entities []*PolicyEntity
	err := r.Read(ctx).
		Where("owner_id = ? AND expiry_date < ?", ownerID, day).
		Order("expiry_date DESC, id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toPolicyModels(entities), nil
}

func (r *PolicyRepository) IncrementReminderCount(ctx context.Context, policyID int64) error {
	result := r.Write(ctx).
		Model(&PolicyEntity{}).
		Where("id = ?", policyID).
		UpdateColumn("whatsapp_reminder_count", gorm.Expr("whatsapp_reminder_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}
