package permission

import (
	"context"

	"github.com/google/uuid"
)

// Engine computes and enforces graded access to events. The event owner
// bypasses the permission table entirely; explicit grants are compared
// through the level rank table.
type Engine struct {
	repo Repository
}

// NewEngine creates a new permission engine instance
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Authorize reports whether userID may act on the event at the required
// level. ownerID is the event's owning user; ownership short-circuits the
// lookup so no phantom owner row is ever needed.
func (e *Engine) Authorize(ctx context.Context, userID, eventID, ownerID uuid.UUID, required Level) (bool, error) {
	if userID == ownerID {
		return true, nil
	}

	grant, err := e.repo.Get(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	if grant == nil {
		return false, nil
	}

	return grant.Level.Meets(required), nil
}

// MayGrant reports whether granterID has authority to bestow target level on
// another user for the event:
//   - the owner may grant any level, including owner;
//   - an editor may grant viewer only;
//   - anyone below editor, or without a grant row, may grant nothing.
func (e *Engine) MayGrant(ctx context.Context, granterID, eventID, ownerID uuid.UUID, target Level) (bool, error) {
	if granterID == ownerID {
		return true, nil
	}

	// Owner level is reserved for the true owner.
	if target == LevelOwner {
		return false, nil
	}

	grant, err := e.repo.Get(ctx, eventID, granterID)
	if err != nil {
		return false, err
	}
	if grant == nil || !grant.Level.Meets(LevelEditor) {
		return false, nil
	}
	if grant.Level == LevelEditor && target != LevelViewer {
		return false, nil
	}

	return true, nil
}
