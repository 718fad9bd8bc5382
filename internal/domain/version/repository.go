package version

import (
	"context"
	"errors"

	"github.com/Allmight-456/event-management-go/internal/domain/event"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines read access to event version snapshots.
// Snapshot writes happen inside event mutations and never through this
// interface; snapshots are immutable once created.
type Repository interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]event.EventVersion, error)
	Get(ctx context.Context, eventID uuid.UUID, versionNumber int) (*event.EventVersion, error)
	Recent(ctx context.Context, eventID uuid.UUID, limit int) ([]event.EventVersion, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new version repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ListByEvent returns all snapshots of an event, descending by version
// number.
func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]event.EventVersion, error) {
	var versions []event.EventVersion
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("version_number desc").
		Find(&versions).Error
	return versions, err
}

func (r *repository) Get(ctx context.Context, eventID uuid.UUID, versionNumber int) (*event.EventVersion, error) {
	var v event.EventVersion
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND version_number = ?", eventID, versionNumber).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Recent returns the newest snapshots first, capped at limit.
func (r *repository) Recent(ctx context.Context, eventID uuid.UUID, limit int) ([]event.EventVersion, error) {
	var versions []event.EventVersion
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at desc").
		Limit(limit).
		Find(&versions).Error
	return versions, err
}
