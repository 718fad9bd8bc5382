package event

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Allmight-456/event-management-go/internal/domain/permission"
	"github.com/Allmight-456/event-management-go/internal/infrastructure/cache"
	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Service defines the lifecycle operations over events: create, update,
// soft-delete and batch create, all with conflict detection and versioning.
type Service interface {
	Create(ctx context.Context, req CreateEventRequest, ownerID uuid.UUID) (*Event, error)
	CreateBatch(ctx context.Context, reqs []CreateEventRequest, ownerID uuid.UUID) ([]Event, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*Event, error)
	List(ctx context.Context, filter ListFilter) (*EventListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest, actorID uuid.UUID) (*Event, error)
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
}

type service struct {
	repo     Repository
	detector *Detector
	perms    *permission.Engine
	cache    *cache.RedisClient
	logger   *logger.Logger
}

// NewService creates a new event service instance
func NewService(repo Repository, detector *Detector, perms *permission.Engine, redis *cache.RedisClient, log *logger.Logger) Service {
	return &service{repo: repo, detector: detector, perms: perms, cache: redis, logger: log}
}

func (s *service) Create(ctx context.Context, req CreateEventRequest, ownerID uuid.UUID) (*Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.detector.Check(ctx, ownerID, req.StartTime, req.EndTime, nil); err != nil {
		return nil, err
	}

	e := newEventFromRequest(req, ownerID)

	tx := s.repo.BeginTransaction(ctx)
	if tx == nil {
		return nil, fmt.Errorf("failed to start transaction")
	}
	defer tx.Rollback()

	if err := tx.CreateEvent(e); err != nil {
		return nil, err
	}
	if err := tx.CreateVersion(SnapshotOf(e, ownerID, "Initial creation")); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate(ctx, e.ID, "event_created")
	s.logger.Info("event created",
		zap.String("event_id", e.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)
	return e, nil
}

// CreateBatch creates all events or none. Every item is validated and
// conflict-checked, against the store and against the other items of the
// batch, before anything is committed.
func (s *service) CreateBatch(ctx context.Context, reqs []CreateEventRequest, ownerID uuid.UUID) ([]Event, error) {
	if len(reqs) == 0 {
		return nil, apperrors.Validation("batch is empty")
	}

	tx := s.repo.BeginTransaction(ctx)
	if tx == nil {
		return nil, fmt.Errorf("failed to start transaction")
	}
	defer tx.Rollback()

	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, apperrors.BatchFailure(err)
		}
		for j := 0; j < i; j++ {
			if Overlaps(reqs[i].StartTime, reqs[i].EndTime, reqs[j].StartTime, reqs[j].EndTime) {
				return nil, apperrors.BatchFailure(
					apperrors.Conflict("event conflicts with existing event: %s", reqs[j].Title))
			}
		}
		existing, err := tx.FindOverlapping(ownerID, reqs[i].StartTime, reqs[i].EndTime, nil)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, apperrors.BatchFailure(
				apperrors.Conflict("event conflicts with existing event: %s", existing.Title))
		}
	}

	created := make([]Event, 0, len(reqs))
	for i := range reqs {
		e := newEventFromRequest(reqs[i], ownerID)
		if err := tx.CreateEvent(e); err != nil {
			return nil, apperrors.BatchFailure(err)
		}
		if err := tx.CreateVersion(SnapshotOf(e, ownerID, "Initial creation")); err != nil {
			return nil, apperrors.BatchFailure(err)
		}
		created = append(created, *e)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("batch created",
		zap.Int("count", len(created)),
		zap.String("owner_id", ownerID.String()),
	)
	return created, nil
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NotFound("event %s not found", id)
	}

	allowed, err := s.perms.Authorize(ctx, userID, e.ID, e.OwnerID, permission.LevelViewer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.PermissionDenied("insufficient permission")
	}
	return e, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*EventListResponse, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &EventListResponse{Events: events, Total: total}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest, actorID uuid.UUID) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NotFound("event %s not found", id)
	}

	allowed, err := s.perms.Authorize(ctx, actorID, e.ID, e.OwnerID, permission.LevelEditor)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.PermissionDenied("insufficient permission")
	}

	if req.IsEmpty() {
		return e, nil
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	changes := collectChanges(e, &req)
	if len(changes) == 0 {
		return e, nil
	}

	newStart, newEnd := e.StartTime, e.EndTime
	if req.StartTime != nil {
		newStart = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		newEnd = req.EndTime.UTC()
	}
	if req.StartTime != nil || req.EndTime != nil {
		if !newEnd.After(newStart) {
			return nil, apperrors.Validation("end time must be after start time")
		}
		if err := s.detector.Check(ctx, e.OwnerID, newStart, newEnd, &e.ID); err != nil {
			return nil, err
		}
	}

	tx := s.repo.BeginTransaction(ctx)
	if tx == nil {
		return nil, fmt.Errorf("failed to start transaction")
	}
	defer tx.Rollback()

	// Snapshot the pre-mutation state under the current version number, then
	// advance the counter. Both writes commit or roll back together.
	if err := tx.CreateVersion(SnapshotOf(e, actorID, changeSummary(changes))); err != nil {
		return nil, err
	}

	applyChanges(e, &req)
	e.Version++
	now := time.Now().UTC()
	e.UpdatedAt = &now

	if err := tx.UpdateEvent(e); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate(ctx, e.ID, "event_updated")
	s.logger.Info("event updated",
		zap.String("event_id", e.ID.String()),
		zap.Int("version", e.Version),
	)
	return e, nil
}

// Delete soft-deletes an event. Only the true owner may delete; an
// OWNER-level grant is not enough. The version counter is left untouched.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return apperrors.NotFound("event %s not found", id)
	}

	if e.OwnerID != actorID {
		return apperrors.PermissionDenied("insufficient permission")
	}

	tx := s.repo.BeginTransaction(ctx)
	if tx == nil {
		return fmt.Errorf("failed to start transaction")
	}
	defer tx.Rollback()

	if err := tx.CreateVersion(SnapshotOf(e, actorID, "Event deleted")); err != nil {
		return err
	}

	e.IsDeleted = true
	now := time.Now().UTC()
	e.UpdatedAt = &now

	if err := tx.UpdateEvent(e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.invalidate(ctx, e.ID, "event_deleted")
	s.logger.Info("event deleted", zap.String("event_id", e.ID.String()))
	return nil
}

func (s *service) invalidate(ctx context.Context, eventID uuid.UUID, action string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEvent(ctx, eventID, action); err != nil {
		s.logger.Error("failed to invalidate event cache", zap.Error(err))
	}
}

func newEventFromRequest(req CreateEventRequest, ownerID uuid.UUID) *Event {
	var pattern datatypes.JSONMap
	if req.RecurrencePattern != nil {
		pattern = datatypes.JSONMap(req.RecurrencePattern)
	}
	return &Event{
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		StartTime:         req.StartTime.UTC(),
		EndTime:           req.EndTime.UTC(),
		IsRecurring:       req.IsRecurring,
		RecurrenceType:    req.RecurrenceType,
		RecurrencePattern: pattern,
		OwnerID:           ownerID,
		Version:           1,
	}
}

// fieldChange records an old and new value for the update summary.
type fieldChange struct {
	old interface{}
	new interface{}
}

// collectChanges returns the fields whose requested value actually differs
// from the current state.
func collectChanges(e *Event, req *UpdateEventRequest) map[string]fieldChange {
	changes := make(map[string]fieldChange)

	if req.Title != nil && *req.Title != e.Title {
		changes["title"] = fieldChange{old: e.Title, new: *req.Title}
	}
	if req.Description != nil && !strPtrEqual(req.Description, e.Description) {
		changes["description"] = fieldChange{old: strPtrValue(e.Description), new: *req.Description}
	}
	if req.Location != nil && !strPtrEqual(req.Location, e.Location) {
		changes["location"] = fieldChange{old: strPtrValue(e.Location), new: *req.Location}
	}
	if req.StartTime != nil && !req.StartTime.UTC().Equal(e.StartTime) {
		changes["start_time"] = fieldChange{old: e.StartTime, new: req.StartTime.UTC()}
	}
	if req.EndTime != nil && !req.EndTime.UTC().Equal(e.EndTime) {
		changes["end_time"] = fieldChange{old: e.EndTime, new: req.EndTime.UTC()}
	}
	if req.IsRecurring != nil && *req.IsRecurring != e.IsRecurring {
		changes["is_recurring"] = fieldChange{old: e.IsRecurring, new: *req.IsRecurring}
	}
	if req.RecurrenceType != nil && *req.RecurrenceType != e.RecurrenceType {
		changes["recurrence_type"] = fieldChange{old: e.RecurrenceType, new: *req.RecurrenceType}
	}
	if req.RecurrencePattern != nil && !mapsEqual(*req.RecurrencePattern, e.RecurrencePattern) {
		changes["recurrence_pattern"] = fieldChange{old: map[string]interface{}(e.RecurrencePattern), new: *req.RecurrencePattern}
	}

	return changes
}

func applyChanges(e *Event, req *UpdateEventRequest) {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = req.Description
	}
	if req.Location != nil {
		e.Location = req.Location
	}
	if req.StartTime != nil {
		e.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil {
		e.EndTime = req.EndTime.UTC()
	}
	if req.IsRecurring != nil {
		e.IsRecurring = *req.IsRecurring
	}
	if req.RecurrenceType != nil {
		e.RecurrenceType = *req.RecurrenceType
	}
	if req.RecurrencePattern != nil {
		e.RecurrencePattern = datatypes.JSONMap(*req.RecurrencePattern)
	}
}

// changeSummary renders a stable, human-readable description of the change
// set, fields in sorted order.
func changeSummary(changes map[string]fieldChange) string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		c := changes[field]
		parts = append(parts, fmt.Sprintf("%s: %v -> %v", field, c.old, c.new))
	}
	return "Updated: " + strings.Join(parts, ", ")
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrValue(p *string) interface{} {
	if p == nil {
		return "<none>"
	}
	return *p
}

func mapsEqual(a map[string]interface{}, b datatypes.JSONMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || fmt.Sprintf("%v", av) != fmt.Sprintf("%v", bv) {
			return false
		}
	}
	return true
}
