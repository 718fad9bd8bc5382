package permission

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Level is a graded access level for a shared event.
type Level string

const (
	LevelViewer Level = "viewer"
	LevelEditor Level = "editor"
	LevelOwner  Level = "owner"
)

// levelRanks is the canonical hierarchy. Comparison goes through this table,
// never through declaration order.
var levelRanks = map[Level]int{
	LevelViewer: 1,
	LevelEditor: 2,
	LevelOwner:  3,
}

// Rank returns the numeric position of the level in the hierarchy, 0 for an
// unknown level.
func (l Level) Rank() int {
	return levelRanks[l]
}

// Valid reports whether l is one of the three known levels.
func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Meets reports whether a grant at level l satisfies the required level.
func (l Level) Meets(required Level) bool {
	return l.Rank() >= required.Rank()
}

// EventPermission is an explicit grant from the event owner (or delegated
// authority) to another user. At most one row exists per (event, grantee);
// the owner is never stored as a grantee.
type EventPermission struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_event_permission_target"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_event_permission_target"`
	Level     Level     `json:"permission_level" gorm:"type:varchar(20);not null"`
	GrantedBy uuid.UUID `json:"granted_by" gorm:"type:uuid;not null"`
	GrantedAt time.Time `json:"granted_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the EventPermission model
func (EventPermission) TableName() string {
	return "event_permissions"
}

// BeforeCreate hook for UUID generation
func (p *EventPermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.GrantedAt.IsZero() {
		p.GrantedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	return nil
}
