package version

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Allmight-456/event-management-go/internal/domain/event"
	"github.com/Allmight-456/event-management-go/internal/domain/permission"
	"github.com/Allmight-456/event-management-go/internal/infrastructure/cache"
	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompareResult is the outcome of comparing two snapshots of one event. The
// text rendering is a projection of the same structured diff.
type CompareResult struct {
	EventID  uuid.UUID `json:"event_id"`
	Version1 int       `json:"version1"`
	Version2 int       `json:"version2"`
	Diff     *Diff     `json:"diff"`
	TextDiff string    `json:"text_diff"`
}

// ChangelogEntry is a single line of an event's chronological changelog.
type ChangelogEntry struct {
	Version       int                    `json:"version"`
	ChangedBy     uuid.UUID              `json:"changed_by"`
	ChangeSummary string                 `json:"change_summary"`
	Timestamp     time.Time              `json:"timestamp"`
	EventState    map[string]interface{} `json:"event_state"`
}

// Store provides read access to an event's version history plus rollback.
// All reads require VIEWER through the permission engine; rollback requires
// EDITOR. Snapshot writes happen only inside already-authorized event
// mutations.
type Store interface {
	History(ctx context.Context, eventID, userID uuid.UUID) ([]event.EventVersion, error)
	Get(ctx context.Context, eventID uuid.UUID, versionNumber int, userID uuid.UUID) (*event.EventVersion, error)
	Compare(ctx context.Context, eventID uuid.UUID, v1, v2 int, userID uuid.UUID) (*CompareResult, error)
	Changelog(ctx context.Context, eventID, userID uuid.UUID, limit int) ([]ChangelogEntry, error)
	Rollback(ctx context.Context, eventID uuid.UUID, versionNumber int, actorID uuid.UUID) (*event.Event, error)
}

type store struct {
	repo   Repository
	events event.Repository
	perms  *permission.Engine
	cache  *cache.RedisClient
	logger *logger.Logger
}

// NewStore creates a new version store instance
func NewStore(repo Repository, events event.Repository, perms *permission.Engine, redis *cache.RedisClient, log *logger.Logger) Store {
	return &store{repo: repo, events: events, perms: perms, cache: redis, logger: log}
}

func (s *store) History(ctx context.Context, eventID, userID uuid.UUID) ([]event.EventVersion, error) {
	if _, err := s.requireLevel(ctx, eventID, userID, permission.LevelViewer); err != nil {
		return nil, err
	}

	if s.cache != nil {
		var cached []event.EventVersion
		if err := s.cache.GetJSON(ctx, cache.HistoryKey(eventID), &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheNotFound) {
			s.logger.Warn("history cache read failed", zap.Error(err))
		}
	}

	versions, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.HistoryKey(eventID), versions); err != nil {
			s.logger.Warn("history cache write failed", zap.Error(err))
		}
	}
	return versions, nil
}

func (s *store) Get(ctx context.Context, eventID uuid.UUID, versionNumber int, userID uuid.UUID) (*event.EventVersion, error) {
	if _, err := s.requireLevel(ctx, eventID, userID, permission.LevelViewer); err != nil {
		return nil, err
	}

	v, err := s.repo.Get(ctx, eventID, versionNumber)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperrors.NotFound("version %d not found", versionNumber)
	}
	return v, nil
}

func (s *store) Compare(ctx context.Context, eventID uuid.UUID, v1, v2 int, userID uuid.UUID) (*CompareResult, error) {
	if _, err := s.requireLevel(ctx, eventID, userID, permission.LevelViewer); err != nil {
		return nil, err
	}

	snapA, err := s.repo.Get(ctx, eventID, v1)
	if err != nil {
		return nil, err
	}
	snapB, err := s.repo.Get(ctx, eventID, v2)
	if err != nil {
		return nil, err
	}
	if snapA == nil || snapB == nil {
		return nil, apperrors.NotFound("one or both versions not found")
	}

	diff := Compare(snapA.FieldMap(), snapB.FieldMap())
	return &CompareResult{
		EventID:  eventID,
		Version1: v1,
		Version2: v2,
		Diff:     diff,
		TextDiff: diff.RenderText(),
	}, nil
}

func (s *store) Changelog(ctx context.Context, eventID, userID uuid.UUID, limit int) ([]ChangelogEntry, error) {
	if _, err := s.requireLevel(ctx, eventID, userID, permission.LevelViewer); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	versions, err := s.repo.Recent(ctx, eventID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]ChangelogEntry, 0, len(versions))
	for i := range versions {
		v := &versions[i]
		entries = append(entries, ChangelogEntry{
			Version:       v.VersionNumber,
			ChangedBy:     v.ChangedBy,
			ChangeSummary: v.ChangeSummary,
			Timestamp:     v.CreatedAt,
			EventState:    v.FieldMap(),
		})
	}
	return entries, nil
}

// Rollback restores an event to the state captured at versionNumber. The
// pre-rollback state is snapshotted first, so rolling back is itself a
// versioned mutation: the counter advances by one.
func (s *store) Rollback(ctx context.Context, eventID uuid.UUID, versionNumber int, actorID uuid.UUID) (*event.Event, error) {
	e, err := s.requireLevel(ctx, eventID, actorID, permission.LevelEditor)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.Get(ctx, eventID, versionNumber)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperrors.NotFound("version %d not found", versionNumber)
	}

	tx := s.events.BeginTransaction(ctx)
	if tx == nil {
		return nil, fmt.Errorf("failed to start transaction")
	}
	defer tx.Rollback()

	summary := fmt.Sprintf("Rollback to version %d", versionNumber)
	if err := tx.CreateVersion(event.SnapshotOf(e, actorID, summary)); err != nil {
		return nil, err
	}

	e.Title = target.Title
	e.Description = target.Description
	e.Location = target.Location
	e.StartTime = target.StartTime
	e.EndTime = target.EndTime
	e.IsRecurring = target.IsRecurring
	e.RecurrenceType = target.RecurrenceType
	e.RecurrencePattern = target.RecurrencePattern
	e.Version++
	now := time.Now().UTC()
	e.UpdatedAt = &now

	if err := tx.UpdateEvent(e); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateEvent(ctx, e.ID, "event_rolled_back"); err != nil {
			s.logger.Error("failed to invalidate event cache", zap.Error(err))
		}
	}
	s.logger.Info("event rolled back",
		zap.String("event_id", e.ID.String()),
		zap.Int("target_version", versionNumber),
		zap.Int("new_version", e.Version),
	)
	return e, nil
}

// requireLevel loads the event and checks the caller's access in one step.
func (s *store) requireLevel(ctx context.Context, eventID, userID uuid.UUID, required permission.Level) (*event.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NotFound("event %s not found", eventID)
	}

	allowed, err := s.perms.Authorize(ctx, userID, e.ID, e.OwnerID, required)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.PermissionDenied("insufficient permission")
	}
	return e, nil
}
