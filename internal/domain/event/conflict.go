package event

import (
	"context"
	"time"

	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/google/uuid"
)

// OverlapFinder is the event-lookup collaborator the conflict detector scans
// through. Repository satisfies it; tests substitute in-memory lookups.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Event, error)
}

// Detector checks whether a proposed time range collides with another event
// on the same owner's calendar. Shared events on other calendars are not
// considered.
type Detector struct {
	finder OverlapFinder
}

// NewDetector creates a new conflict detector instance
func NewDetector(finder OverlapFinder) *Detector {
	return &Detector{finder: finder}
}

// Check returns a Conflict error naming the first colliding event, or nil.
// When updating an existing event its own id is passed as excludeID.
func (d *Detector) Check(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	existing, err := d.finder.FindOverlapping(ctx, ownerID, start, end, excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.Conflict("event conflicts with existing event: %s", existing.Title)
	}
	return nil
}

// Overlaps reports whether two [start,end) intervals share any instant.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
