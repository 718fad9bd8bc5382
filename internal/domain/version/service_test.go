package version

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/Allmight-456/event-management-go/internal/domain/event"
	"github.com/Allmight-456/event-management-go/internal/domain/permission"
	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBackend holds events and snapshots in memory and implements both the
// event repository and the snapshot reader over the same state.
type mockBackend struct {
	events   map[uuid.UUID]*event.Event
	versions map[uuid.UUID][]event.EventVersion
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		events:   make(map[uuid.UUID]*event.Event),
		versions: make(map[uuid.UUID][]event.EventVersion),
	}
}

func (m *mockBackend) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]event.EventVersion, error) {
	out := append([]event.EventVersion(nil), m.versions[eventID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (m *mockBackend) Get(ctx context.Context, eventID uuid.UUID, versionNumber int) (*event.EventVersion, error) {
	for i := range m.versions[eventID] {
		if m.versions[eventID][i].VersionNumber == versionNumber {
			copied := m.versions[eventID][i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockBackend) Recent(ctx context.Context, eventID uuid.UUID, limit int) ([]event.EventVersion, error) {
	out, _ := m.ListByEvent(ctx, eventID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockBackend) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	e, ok := m.events[id]
	if !ok || e.IsDeleted {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *mockBackend) List(ctx context.Context, filter event.ListFilter) ([]event.Event, int64, error) {
	return nil, 0, nil
}

func (m *mockBackend) FindOverlapping(ctx context.Context, ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*event.Event, error) {
	return nil, nil
}

func (m *mockBackend) BeginTransaction(ctx context.Context) event.Transaction {
	return &mockTx{backend: m}
}

type mockTx struct {
	backend  *mockBackend
	updates  []*event.Event
	versions []*event.EventVersion
	done     bool
}

func (t *mockTx) Commit() error {
	for _, e := range t.updates {
		copied := *e
		t.backend.events[e.ID] = &copied
	}
	for _, v := range t.versions {
		exists := false
		for _, existing := range t.backend.versions[v.EventID] {
			if existing.VersionNumber == v.VersionNumber {
				exists = true
				break
			}
		}
		if !exists {
			t.backend.versions[v.EventID] = append(t.backend.versions[v.EventID], *v)
		}
	}
	t.done = true
	return nil
}

func (t *mockTx) Rollback() error {
	if !t.done {
		t.updates = nil
		t.versions = nil
	}
	return nil
}

func (t *mockTx) CreateEvent(e *event.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	copied := *e
	t.backend.events[e.ID] = &copied
	return nil
}

func (t *mockTx) UpdateEvent(e *event.Event) error {
	t.updates = append(t.updates, e)
	return nil
}

func (t *mockTx) CreateVersion(v *event.EventVersion) error {
	t.versions = append(t.versions, v)
	return nil
}

func (t *mockTx) FindOverlapping(ownerID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*event.Event, error) {
	return nil, nil
}

type mockGrantRepo struct {
	grants map[uuid.UUID]*permission.EventPermission
}

func (m *mockGrantRepo) Get(ctx context.Context, eventID, userID uuid.UUID) (*permission.EventPermission, error) {
	if g, ok := m.grants[userID]; ok && g.EventID == eventID {
		return g, nil
	}
	return nil, nil
}

func (m *mockGrantRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]permission.EventPermission, error) {
	return nil, nil
}

func (m *mockGrantRepo) Upsert(ctx context.Context, grant *permission.EventPermission) error {
	m.grants[grant.UserID] = grant
	return nil
}

func (m *mockGrantRepo) Delete(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	delete(m.grants, userID)
	return true, nil
}

type storeFixture struct {
	store   Store
	backend *mockBackend
	grants  *mockGrantRepo
	owner   uuid.UUID
	eventID uuid.UUID
}

// newStoreFixture seeds one event that went through two title changes:
// versions 1..3 exist as snapshots, the live row is at version 3.
func newStoreFixture() *storeFixture {
	backend := newMockBackend()
	grants := &mockGrantRepo{grants: make(map[uuid.UUID]*permission.EventPermission)}
	owner := uuid.New()
	eventID := uuid.New()

	start := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	backend.events[eventID] = &event.Event{
		ID:        eventID,
		Title:     "Standup v3",
		StartTime: start,
		EndTime:   end,
		OwnerID:   owner,
		Version:   3,
	}
	titles := []string{"Standup", "Standup v2", "Standup v3"}
	summaries := []string{"Initial creation", "Updated: title: Standup -> Standup v2", "Updated: title: Standup v2 -> Standup v3"}
	for i := 0; i < 3; i++ {
		backend.versions[eventID] = append(backend.versions[eventID], event.EventVersion{
			ID:            uuid.New(),
			EventID:       eventID,
			VersionNumber: i + 1,
			Title:         titles[i],
			StartTime:     start,
			EndTime:       end,
			ChangedBy:     owner,
			ChangeSummary: summaries[i],
			CreatedAt:     start.Add(time.Duration(i) * time.Hour),
		})
	}

	store := NewStore(backend, backend, permission.NewEngine(grants), nil, logger.NewLogger("error"))
	return &storeFixture{store: store, backend: backend, grants: grants, owner: owner, eventID: eventID}
}

func (f *storeFixture) grant(userID uuid.UUID, level permission.Level) {
	f.grants.grants[userID] = &permission.EventPermission{
		EventID: f.eventID,
		UserID:  userID,
		Level:   level,
	}
}

func TestHistory(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	versions, err := f.store.History(ctx, f.eventID, f.owner)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	// Descending by version number.
	assert.Equal(t, 3, versions[0].VersionNumber)
	assert.Equal(t, 2, versions[1].VersionNumber)
	assert.Equal(t, 1, versions[2].VersionNumber)

	// Reading history twice yields identical results.
	again, err := f.store.History(ctx, f.eventID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, versions, again)
}

func TestHistoryRequiresViewer(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()
	stranger := uuid.New()
	viewer := uuid.New()
	f.grant(viewer, permission.LevelViewer)

	_, err := f.store.History(ctx, f.eventID, stranger)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	_, err = f.store.History(ctx, f.eventID, viewer)
	assert.NoError(t, err)
}

func TestGetVersion(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	v, err := f.store.Get(ctx, f.eventID, 2, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "Standup v2", v.Title)

	_, err = f.store.Get(ctx, f.eventID, 99, f.owner)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = f.store.Get(ctx, uuid.New(), 1, f.owner)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCompareVersions(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	result, err := f.store.Compare(ctx, f.eventID, 1, 3, f.owner)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Version1)
	assert.Equal(t, 3, result.Version2)

	change, ok := result.Diff.Fields["title"]
	require.True(t, ok)
	assert.Equal(t, "Standup", change.Old)
	assert.Equal(t, "Standup v3", change.New)

	assert.Contains(t, result.TextDiff, "-title: Standup")
	assert.Contains(t, result.TextDiff, "+title: Standup v3")

	_, err = f.store.Compare(ctx, f.eventID, 1, 99, f.owner)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestChangelog(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	entries, err := f.store.Changelog(ctx, f.eventID, f.owner, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 3, entries[0].Version)
	assert.Equal(t, 2, entries[1].Version)
	assert.Equal(t, "Updated: title: Standup v2 -> Standup v3", entries[0].ChangeSummary)
	assert.Equal(t, "Standup v3", entries[0].EventState["title"])
}

func TestRollback(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	e, err := f.store.Rollback(ctx, f.eventID, 1, f.owner)
	require.NoError(t, err)

	assert.Equal(t, "Standup", e.Title, "state reverts to the target snapshot")
	assert.Equal(t, 4, e.Version, "rollback is itself a versioned mutation")
	require.NotNil(t, e.UpdatedAt)

	// The pre-rollback state was snapshotted before the revert.
	stored := f.backend.versions[f.eventID]
	var numbers []int
	for _, v := range stored {
		numbers = append(numbers, v.VersionNumber)
		if v.VersionNumber == 3 {
			assert.Equal(t, "Standup v3", v.Title)
		}
	}
	sort.Ints(numbers)
	assert.Equal(t, []int{1, 2, 3}, numbers)
}

func TestRollbackSnapshotsPreRollbackState(t *testing.T) {
	// An event whose latest state is not yet snapshotted: rollbacks capture
	// it under the current version number before reverting.
	f := newStoreFixture()
	ctx := context.Background()

	// Move the live row one version past the latest snapshot.
	f.backend.events[f.eventID].Title = "Standup v4"
	f.backend.events[f.eventID].Version = 4

	e, err := f.store.Rollback(ctx, f.eventID, 2, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "Standup v2", e.Title)
	assert.Equal(t, 5, e.Version)

	snap, err := f.store.Get(ctx, f.eventID, 4, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "Standup v4", snap.Title)
	assert.Equal(t, "Rollback to version 2", snap.ChangeSummary)
}

func TestRollbackPermissions(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()
	viewer := uuid.New()
	editor := uuid.New()
	f.grant(viewer, permission.LevelViewer)
	f.grant(editor, permission.LevelEditor)

	_, err := f.store.Rollback(ctx, f.eventID, 1, viewer)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	_, err = f.store.Rollback(ctx, f.eventID, 1, editor)
	assert.NoError(t, err)
}

func TestRollbackMissingVersion(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	_, err := f.store.Rollback(ctx, f.eventID, 42, f.owner)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
