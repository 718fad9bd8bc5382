package event

import (
	"time"

	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecurrenceType enumerates the supported recurrence kinds.
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

func isValidRecurrenceType(t RecurrenceType) bool {
	switch t {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Event is the mutable aggregate under version control. Ownership never
// transfers; deletion is a soft-delete flag so the version history survives.
type Event struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	Location    *string   `json:"location,omitempty" gorm:"type:varchar(500)"`
	StartTime   time.Time `json:"start_time" gorm:"not null;index:idx_event_start"`
	EndTime     time.Time `json:"end_time" gorm:"not null;index:idx_event_end"`

	IsRecurring       bool              `json:"is_recurring" gorm:"not null;default:false"`
	RecurrenceType    RecurrenceType    `json:"recurrence_type" gorm:"type:varchar(20);not null;default:'none'"`
	RecurrencePattern datatypes.JSONMap `json:"recurrence_pattern,omitempty" gorm:"type:jsonb"`

	OwnerID uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index:idx_event_owner"`

	// Version starts at 1 and is incremented by exactly one per committed
	// update. Snapshots capture the state at each version.
	Version   int  `json:"version" gorm:"not null;default:1"`
	IsDeleted bool `json:"is_deleted" gorm:"not null;default:false;index:idx_event_deleted"`

	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// EventVersion is an immutable snapshot of the complete field state of an
// event at a given version number. For each event the version numbers form a
// contiguous ascending sequence starting at 1.
type EventVersion struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	EventID       uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_event_version_number"`
	VersionNumber int       `json:"version_number" gorm:"not null;uniqueIndex:idx_event_version_number"`

	Title             string            `json:"title" gorm:"type:varchar(200);not null"`
	Description       *string           `json:"description,omitempty" gorm:"type:text"`
	Location          *string           `json:"location,omitempty" gorm:"type:varchar(500)"`
	StartTime         time.Time         `json:"start_time" gorm:"not null"`
	EndTime           time.Time         `json:"end_time" gorm:"not null"`
	IsRecurring       bool              `json:"is_recurring" gorm:"not null;default:false"`
	RecurrenceType    RecurrenceType    `json:"recurrence_type" gorm:"type:varchar(20);not null;default:'none'"`
	RecurrencePattern datatypes.JSONMap `json:"recurrence_pattern,omitempty" gorm:"type:jsonb"`

	ChangedBy     uuid.UUID `json:"changed_by" gorm:"type:uuid;not null"`
	ChangeSummary string    `json:"change_summary" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table names for each model
func (Event) TableName() string        { return "events" }
func (EventVersion) TableName() string { return "event_versions" }

// BeforeCreate hooks for UUID generation
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (v *EventVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// SnapshotOf captures the complete current field state of an event. The
// version number equals the event's current counter; callers write the
// snapshot before advancing it.
func SnapshotOf(e *Event, actorID uuid.UUID, summary string) *EventVersion {
	return &EventVersion{
		EventID:           e.ID,
		VersionNumber:     e.Version,
		Title:             e.Title,
		Description:       e.Description,
		Location:          e.Location,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		IsRecurring:       e.IsRecurring,
		RecurrenceType:    e.RecurrenceType,
		RecurrencePattern: e.RecurrencePattern,
		ChangedBy:         actorID,
		ChangeSummary:     summary,
	}
}

// FieldMap flattens the snapshot into the generic field map consumed by the
// diff engine. Absent optional fields map to nil so the engine can classify
// added/removed transitions.
func (v *EventVersion) FieldMap() map[string]interface{} {
	fields := map[string]interface{}{
		"title":           v.Title,
		"start_time":      v.StartTime,
		"end_time":        v.EndTime,
		"is_recurring":    v.IsRecurring,
		"recurrence_type": string(v.RecurrenceType),
	}
	if v.Description != nil {
		fields["description"] = *v.Description
	} else {
		fields["description"] = nil
	}
	if v.Location != nil {
		fields["location"] = *v.Location
	} else {
		fields["location"] = nil
	}
	if v.RecurrencePattern != nil {
		fields["recurrence_pattern"] = map[string]interface{}(v.RecurrencePattern)
	} else {
		fields["recurrence_pattern"] = nil
	}
	return fields
}

// CreateEventRequest represents the payload for creating an event
type CreateEventRequest struct {
	Title             string                 `json:"title" binding:"required,max=200"`
	Description       *string                `json:"description,omitempty"`
	Location          *string                `json:"location,omitempty"`
	StartTime         time.Time              `json:"start_time" binding:"required"`
	EndTime           time.Time              `json:"end_time" binding:"required"`
	IsRecurring       bool                   `json:"is_recurring"`
	RecurrenceType    RecurrenceType         `json:"recurrence_type,omitempty"`
	RecurrencePattern map[string]interface{} `json:"recurrence_pattern,omitempty"`
}

// Validate enforces the structural preconditions before any persistence.
func (r *CreateEventRequest) Validate() error {
	if r.Title == "" {
		return apperrors.Validation("title is required")
	}
	if !r.EndTime.After(r.StartTime) {
		return apperrors.Validation("end time must be after start time")
	}
	if r.RecurrenceType == "" {
		r.RecurrenceType = RecurrenceNone
	}
	if !isValidRecurrenceType(r.RecurrenceType) {
		return apperrors.Validation("invalid recurrence type: %s", r.RecurrenceType)
	}
	return nil
}

// UpdateEventRequest represents a partial change set for an event. Nil fields
// are left untouched.
type UpdateEventRequest struct {
	Title             *string                 `json:"title,omitempty"`
	Description       *string                 `json:"description,omitempty"`
	Location          *string                 `json:"location,omitempty"`
	StartTime         *time.Time              `json:"start_time,omitempty"`
	EndTime           *time.Time              `json:"end_time,omitempty"`
	IsRecurring       *bool                   `json:"is_recurring,omitempty"`
	RecurrenceType    *RecurrenceType         `json:"recurrence_type,omitempty"`
	RecurrencePattern *map[string]interface{} `json:"recurrence_pattern,omitempty"`
}

// IsEmpty reports whether the change set touches nothing.
func (r *UpdateEventRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Location == nil &&
		r.StartTime == nil && r.EndTime == nil && r.IsRecurring == nil &&
		r.RecurrenceType == nil && r.RecurrencePattern == nil
}

// Validate checks the fields that are present.
func (r *UpdateEventRequest) Validate() error {
	if r.Title != nil && *r.Title == "" {
		return apperrors.Validation("title cannot be empty")
	}
	if r.RecurrenceType != nil && !isValidRecurrenceType(*r.RecurrenceType) {
		return apperrors.Validation("invalid recurrence type: %s", *r.RecurrenceType)
	}
	return nil
}

// EventListResponse represents the response for listing events
type EventListResponse struct {
	Events []Event `json:"events"`
	Total  int64   `json:"total"`
}
