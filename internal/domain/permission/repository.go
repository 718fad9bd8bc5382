package permission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines the data access methods for event permissions
type Repository interface {
	Get(ctx context.Context, eventID, userID uuid.UUID) (*EventPermission, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]EventPermission, error)
	Upsert(ctx context.Context, grant *EventPermission) error
	Delete(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new permission repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, eventID, userID uuid.UUID) (*EventPermission, error) {
	var grant EventPermission
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]EventPermission, error) {
	var grants []EventPermission
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("granted_at asc").
		Find(&grants).Error
	return grants, err
}

// Upsert overwrites the level, granter and timestamp if a grant already
// exists for the (event, user) pair, keeping the single-row invariant.
func (r *repository) Upsert(ctx context.Context, grant *EventPermission) error {
	existing, err := r.Get(ctx, grant.EventID, grant.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Level = grant.Level
		existing.GrantedBy = grant.GrantedBy
		existing.UpdatedAt = time.Now()
		return r.db.WithContext(ctx).Save(existing).Error
	}
	return r.db.WithContext(ctx).Create(grant).Error
}

func (r *repository) Delete(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&EventPermission{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
