package collaboration

import (
	"context"

	"github.com/Allmight-456/event-management-go/internal/domain/event"
	"github.com/Allmight-456/event-management-go/internal/domain/permission"
	"github.com/Allmight-456/event-management-go/internal/domain/user"
	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShareTarget names one user and the level to grant them.
type ShareTarget struct {
	UserID uuid.UUID        `json:"user_id" binding:"required"`
	Level  permission.Level `json:"permission_level" binding:"required"`
}

// ShareRequest grants access to one or more users in a single call.
type ShareRequest struct {
	Targets []ShareTarget `json:"targets" binding:"required"`
}

// Validate checks the request shape before any per-target work happens.
// Duplicate targets in one request are rejected outright rather than
// resolved by ordering.
func (r *ShareRequest) Validate() error {
	if len(r.Targets) == 0 {
		return apperrors.Validation("at least one share target is required")
	}
	seen := make(map[uuid.UUID]bool, len(r.Targets))
	for _, t := range r.Targets {
		if t.UserID == uuid.Nil {
			return apperrors.Validation("target user id is required")
		}
		if !t.Level.Valid() {
			return apperrors.Validation("invalid permission level: %s", t.Level)
		}
		if seen[t.UserID] {
			return apperrors.Validation("duplicate share target: %s", t.UserID)
		}
		seen[t.UserID] = true
	}
	return nil
}

// ShareResult reports the outcome for a single target. Sharing is not
// all-or-nothing: each target succeeds or fails on its own.
type ShareResult struct {
	UserID  uuid.UUID        `json:"user_id"`
	Level   permission.Level `json:"permission_level"`
	Granted bool             `json:"granted"`
	Reason  string           `json:"reason,omitempty"`
}

// PermissionEntry is one row of an event's effective permission list. The
// owner appears with an implicit owner entry that is never stored.
type PermissionEntry struct {
	UserID    uuid.UUID        `json:"user_id"`
	Level     permission.Level `json:"permission_level"`
	GrantedBy uuid.UUID        `json:"granted_by"`
	Implicit  bool             `json:"implicit,omitempty"`
}

// Service orchestrates sharing, revocation and permission listing for events.
type Service interface {
	Share(ctx context.Context, eventID, granterID uuid.UUID, req *ShareRequest) ([]ShareResult, error)
	Revoke(ctx context.Context, eventID, ownerID, granteeID uuid.UUID) (bool, error)
	ListPermissions(ctx context.Context, eventID, userID uuid.UUID) ([]PermissionEntry, error)
}

type service struct {
	events event.Repository
	grants permission.Repository
	users  user.Repository
	engine *permission.Engine
	logger *logger.Logger
}

// NewService creates a new collaboration service instance
func NewService(events event.Repository, grants permission.Repository, users user.Repository, engine *permission.Engine, log *logger.Logger) Service {
	return &service{events: events, grants: grants, users: users, engine: engine, logger: log}
}

func (s *service) Share(ctx context.Context, eventID, granterID uuid.UUID, req *ShareRequest) ([]ShareResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Targets))
	for _, t := range req.Targets {
		ids = append(ids, t.UserID)
	}
	existing, err := s.users.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]ShareResult, 0, len(req.Targets))
	for _, t := range req.Targets {
		res := ShareResult{UserID: t.UserID, Level: t.Level}

		switch {
		case t.UserID == e.OwnerID:
			res.Reason = "user already owns this event"
		case !existing[t.UserID]:
			res.Reason = "user not found"
		default:
			allowed, err := s.engine.MayGrant(ctx, granterID, e.ID, e.OwnerID, t.Level)
			if err != nil {
				return nil, err
			}
			if !allowed {
				res.Reason = "insufficient permission"
				break
			}
			grant := &permission.EventPermission{
				EventID:   e.ID,
				UserID:    t.UserID,
				Level:     t.Level,
				GrantedBy: granterID,
			}
			if err := s.grants.Upsert(ctx, grant); err != nil {
				return nil, err
			}
			res.Granted = true
		}
		results = append(results, res)
	}

	s.logger.Info("event shared",
		zap.String("event_id", e.ID.String()),
		zap.String("granter_id", granterID.String()),
		zap.Int("targets", len(results)),
	)
	return results, nil
}

// Revoke removes an explicit grant. Only the true owner may revoke, and the
// owner's own implicit access cannot be revoked because it was never granted.
func (s *service) Revoke(ctx context.Context, eventID, actorID, granteeID uuid.UUID) (bool, error) {
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if actorID != e.OwnerID {
		return false, apperrors.PermissionDenied("insufficient permission")
	}
	if granteeID == e.OwnerID {
		return false, apperrors.Validation("cannot revoke the owner's access")
	}

	removed, err := s.grants.Delete(ctx, eventID, granteeID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("permission revoked",
			zap.String("event_id", eventID.String()),
			zap.String("grantee_id", granteeID.String()),
		)
	}
	return removed, nil
}

func (s *service) ListPermissions(ctx context.Context, eventID, userID uuid.UUID) ([]PermissionEntry, error) {
	e, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.engine.Authorize(ctx, userID, e.ID, e.OwnerID, permission.LevelViewer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.PermissionDenied("insufficient permission")
	}

	grants, err := s.grants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	entries := make([]PermissionEntry, 0, len(grants)+1)
	entries = append(entries, PermissionEntry{
		UserID:    e.OwnerID,
		Level:     permission.LevelOwner,
		GrantedBy: e.OwnerID,
		Implicit:  true,
	})
	for _, g := range grants {
		entries = append(entries, PermissionEntry{
			UserID:    g.UserID,
			Level:     g.Level,
			GrantedBy: g.GrantedBy,
		})
	}
	return entries, nil
}

func (s *service) loadEvent(ctx context.Context, eventID uuid.UUID) (*event.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NotFound("event %s not found", eventID)
	}
	return e, nil
}
