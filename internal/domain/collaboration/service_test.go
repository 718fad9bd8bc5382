package collaboration

import (
	"context"
	"testing"
	"time"

	"github.com/Allmight-456/event-management-go/internal/domain/event"
	"github.com/Allmight-456/event-management-go/internal/domain/permission"
	"github.com/Allmight-456/event-management-go/internal/domain/user"
	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEventRepo struct {
	events map[uuid.UUID]*event.Event
}

func (m *mockEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	e, ok := m.events[id]
	if !ok || e.IsDeleted {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *mockEventRepo) List(ctx context.Context, filter event.ListFilter) ([]event.Event, int64, error) {
	return nil, 0, nil
}

func (m *mockEventRepo) FindOverlapping(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*event.Event, error) {
	return nil, nil
}

func (m *mockEventRepo) BeginTransaction(ctx context.Context) event.Transaction {
	return nil
}

type mockGrantRepo struct {
	grants map[uuid.UUID]map[uuid.UUID]*permission.EventPermission
}

func newMockGrantRepo() *mockGrantRepo {
	return &mockGrantRepo{grants: make(map[uuid.UUID]map[uuid.UUID]*permission.EventPermission)}
}

func (m *mockGrantRepo) Get(ctx context.Context, eventID, userID uuid.UUID) (*permission.EventPermission, error) {
	if byUser, ok := m.grants[eventID]; ok {
		if g, ok := byUser[userID]; ok {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGrantRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]permission.EventPermission, error) {
	var out []permission.EventPermission
	for _, g := range m.grants[eventID] {
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockGrantRepo) Upsert(ctx context.Context, grant *permission.EventPermission) error {
	if m.grants[grant.EventID] == nil {
		m.grants[grant.EventID] = make(map[uuid.UUID]*permission.EventPermission)
	}
	m.grants[grant.EventID][grant.UserID] = grant
	return nil
}

func (m *mockGrantRepo) Delete(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	if byUser, ok := m.grants[eventID]; ok {
		if _, ok := byUser[userID]; ok {
			delete(byUser, userID)
			return true, nil
		}
	}
	return false, nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*user.User
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error { return nil }
func (m *mockUserRepo) Update(ctx context.Context, u *user.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}

func (m *mockUserRepo) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

type fixture struct {
	service Service
	events  *mockEventRepo
	grants  *mockGrantRepo
	users   *mockUserRepo
	owner   uuid.UUID
	eventID uuid.UUID
}

func newFixture() *fixture {
	owner := uuid.New()
	eventID := uuid.New()

	events := &mockEventRepo{events: map[uuid.UUID]*event.Event{
		eventID: {
			ID:      eventID,
			Title:   "Standup",
			OwnerID: owner,
			Version: 1,
		},
	}}
	grants := newMockGrantRepo()
	users := &mockUserRepo{users: map[uuid.UUID]*user.User{
		owner: {ID: owner, Username: "owner"},
	}}

	svc := NewService(events, grants, users, permission.NewEngine(grants), logger.NewLogger("error"))
	return &fixture{service: svc, events: events, grants: grants, users: users, owner: owner, eventID: eventID}
}

func (f *fixture) addUser(id uuid.UUID) {
	f.users.users[id] = &user.User{ID: id}
}

func TestShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	f.addUser(alice)
	f.addUser(bob)

	results, err := f.service.Share(ctx, f.eventID, f.owner, &ShareRequest{Targets: []ShareTarget{
		{UserID: alice, Level: permission.LevelEditor},
		{UserID: bob, Level: permission.LevelViewer},
	}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Granted)
	assert.True(t, results[1].Granted)

	grant, err := f.grants.Get(ctx, f.eventID, alice)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, permission.LevelEditor, grant.Level)
	assert.Equal(t, f.owner, grant.GrantedBy)
}

func TestSharePartialResults(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	ghost := uuid.New()
	f.addUser(alice)

	results, err := f.service.Share(ctx, f.eventID, f.owner, &ShareRequest{Targets: []ShareTarget{
		{UserID: alice, Level: permission.LevelViewer},
		{UserID: ghost, Level: permission.LevelViewer},
		{UserID: f.owner, Level: permission.LevelViewer},
	}})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Granted)
	assert.False(t, results[1].Granted)
	assert.Equal(t, "user not found", results[1].Reason)
	assert.False(t, results[2].Granted)
	assert.Equal(t, "user already owns this event", results[2].Reason)
}

func TestShareValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	f.addUser(alice)

	tests := []struct {
		name string
		req  *ShareRequest
	}{
		{"no targets", &ShareRequest{}},
		{"nil user id", &ShareRequest{Targets: []ShareTarget{{Level: permission.LevelViewer}}}},
		{"unknown level", &ShareRequest{Targets: []ShareTarget{{UserID: alice, Level: permission.Level("admin")}}}},
		{"duplicate target", &ShareRequest{Targets: []ShareTarget{
			{UserID: alice, Level: permission.LevelViewer},
			{UserID: alice, Level: permission.LevelEditor},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Share(ctx, f.eventID, f.owner, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		})
	}
}

func TestShareGrantAuthority(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	editor := uuid.New()
	viewer := uuid.New()
	target := uuid.New()
	f.addUser(editor)
	f.addUser(viewer)
	f.addUser(target)

	_, err := f.service.Share(ctx, f.eventID, f.owner, &ShareRequest{Targets: []ShareTarget{
		{UserID: editor, Level: permission.LevelEditor},
		{UserID: viewer, Level: permission.LevelViewer},
	}})
	require.NoError(t, err)

	t.Run("editor may grant viewer", func(t *testing.T) {
		results, err := f.service.Share(ctx, f.eventID, editor, &ShareRequest{Targets: []ShareTarget{
			{UserID: target, Level: permission.LevelViewer},
		}})
		require.NoError(t, err)
		assert.True(t, results[0].Granted)
	})

	t.Run("editor may not escalate to editor", func(t *testing.T) {
		results, err := f.service.Share(ctx, f.eventID, editor, &ShareRequest{Targets: []ShareTarget{
			{UserID: target, Level: permission.LevelEditor},
		}})
		require.NoError(t, err)
		assert.False(t, results[0].Granted)
		assert.Equal(t, "insufficient permission", results[0].Reason)
	})

	t.Run("viewer may grant nothing", func(t *testing.T) {
		results, err := f.service.Share(ctx, f.eventID, viewer, &ShareRequest{Targets: []ShareTarget{
			{UserID: target, Level: permission.LevelViewer},
		}})
		require.NoError(t, err)
		assert.False(t, results[0].Granted)
	})

	t.Run("owner level cannot be granted to others", func(t *testing.T) {
		results, err := f.service.Share(ctx, f.eventID, editor, &ShareRequest{Targets: []ShareTarget{
			{UserID: target, Level: permission.LevelOwner},
		}})
		require.NoError(t, err)
		assert.False(t, results[0].Granted)
	})
}

func TestShareUpsertsSingleRow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	f.addUser(alice)

	for _, level := range []permission.Level{permission.LevelViewer, permission.LevelEditor} {
		_, err := f.service.Share(ctx, f.eventID, f.owner, &ShareRequest{Targets: []ShareTarget{
			{UserID: alice, Level: level},
		}})
		require.NoError(t, err)
	}

	rows, err := f.grants.ListByEvent(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, rows, 1, "re-sharing overwrites the existing grant")
	assert.Equal(t, permission.LevelEditor, rows[0].Level)
}

func TestRevoke(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	editor := uuid.New()
	f.addUser(alice)
	f.addUser(editor)

	_, err := f.service.Share(ctx, f.eventID, f.owner, &ShareRequest{Targets: []ShareTarget{
		{UserID: alice, Level: permission.LevelViewer},
		{UserID: editor, Level: permission.LevelEditor},
	}})
	require.NoError(t, err)

	t.Run("only the true owner revokes", func(t *testing.T) {
		_, err := f.service.Revoke(ctx, f.eventID, editor, alice)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
	})

	t.Run("owner's implicit access cannot be revoked", func(t *testing.T) {
		_, err := f.service.Revoke(ctx, f.eventID, f.owner, f.owner)
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("revoking removes the grant", func(t *testing.T) {
		removed, err := f.service.Revoke(ctx, f.eventID, f.owner, alice)
		require.NoError(t, err)
		assert.True(t, removed)

		grant, err := f.grants.Get(ctx, f.eventID, alice)
		require.NoError(t, err)
		assert.Nil(t, grant)
	})

	t.Run("revoking a missing grant reports nothing removed", func(t *testing.T) {
		removed, err := f.service.Revoke(ctx, f.eventID, f.owner, alice)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestListPermissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	stranger := uuid.New()
	f.addUser(alice)

	_, err := f.service.Share(ctx, f.eventID, f.owner, &ShareRequest{Targets: []ShareTarget{
		{UserID: alice, Level: permission.LevelEditor},
	}})
	require.NoError(t, err)

	entries, err := f.service.ListPermissions(ctx, f.eventID, f.owner)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The owner leads with an implicit entry that is never stored.
	assert.Equal(t, f.owner, entries[0].UserID)
	assert.Equal(t, permission.LevelOwner, entries[0].Level)
	assert.True(t, entries[0].Implicit)
	assert.Equal(t, alice, entries[1].UserID)
	assert.False(t, entries[1].Implicit)

	rows, err := f.grants.ListByEvent(ctx, f.eventID)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "no owner row may be persisted")

	_, err = f.service.ListPermissions(ctx, f.eventID, stranger)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}

func TestShareMissingEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := uuid.New()
	f.addUser(alice)

	_, err := f.service.Share(ctx, uuid.New(), f.owner, &ShareRequest{Targets: []ShareTarget{
		{UserID: alice, Level: permission.LevelViewer},
	}})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
