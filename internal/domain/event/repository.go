package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface defines the data access methods for events and their
// version snapshots. The snapshot write and the event row update of a single
// mutation always travel through one Transaction; that transaction boundary
// is the only serialization point for the version counter.
type Repository interface {
	BeginTransaction(ctx context.Context) Transaction

	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, filter ListFilter) ([]Event, int64, error)
	FindOverlapping(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Event, error)
}

// Transaction represents an atomic multi-write over events and snapshots
type Transaction interface {
	Commit() error
	Rollback() error

	CreateEvent(e *Event) error
	UpdateEvent(e *Event) error
	CreateVersion(v *EventVersion) error
	FindOverlapping(ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Event, error)
}

// ListFilter defines the filtering options for listing events
type ListFilter struct {
	UserID    uuid.UUID
	OwnedOnly bool
	StartDate *time.Time
	EndDate   *time.Time
	Offset    int
	Limit     int
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new event repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetByID returns the event or nil if it does not exist or is soft-deleted.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var e Event
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Event, int64, error) {
	var events []Event
	var total int64

	query := r.db.WithContext(ctx).Model(&Event{}).Where("is_deleted = ?", false)

	if filter.OwnedOnly {
		query = query.Where("owner_id = ?", filter.UserID)
	} else {
		// Owned events plus events shared through an explicit grant.
		grantSubquery := r.db.Table("event_permissions").
			Select("event_id").
			Where("user_id = ?", filter.UserID)
		query = query.Where(
			r.db.Where("owner_id = ?", filter.UserID).Or("id IN (?)", grantSubquery),
		)
	}

	if filter.StartDate != nil {
		query = query.Where("start_time >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("end_time <= ?", filter.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	err := query.Order("start_time asc").Find(&events).Error
	return events, total, err
}

func (r *repository) FindOverlapping(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Event, error) {
	return findOverlapping(r.db.WithContext(ctx), ownerID, start, end, excludeID)
}

func (r *repository) BeginTransaction(ctx context.Context) Transaction {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil
	}
	return &transaction{tx: tx}
}

type transaction struct {
	tx *gorm.DB
}

func (t *transaction) Commit() error {
	return t.tx.Commit().Error
}

func (t *transaction) Rollback() error {
	return t.tx.Rollback().Error
}

func (t *transaction) CreateEvent(e *Event) error {
	return t.tx.Create(e).Error
}

func (t *transaction) UpdateEvent(e *Event) error {
	return t.tx.Save(e).Error
}

// CreateVersion inserts a snapshot. A version number that is already
// captured is left untouched; snapshots are immutable once written, so
// re-capturing the same version is a no-op rather than an error.
func (t *transaction) CreateVersion(v *EventVersion) error {
	return t.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}, {Name: "version_number"}},
		DoNothing: true,
	}).Create(v).Error
}

func (t *transaction) FindOverlapping(ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Event, error) {
	return findOverlapping(t.tx, ownerID, start, end, excludeID)
}

// findOverlapping implements the half-open overlap scan shared by the
// repository and its transactions: [start,end) intervals of the same owner,
// touching endpoints excluded.
func findOverlapping(db *gorm.DB, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Event, error) {
	query := db.Model(&Event{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Where("start_time < ? AND end_time > ?", end, start)

	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var e Event
	err := query.First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
