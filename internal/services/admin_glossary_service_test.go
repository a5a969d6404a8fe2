package services

import (
	"context"
	"testing"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminPrincipal = auth.Principal{UserID: "admin_1", Role: auth.RoleAdmin}
	userPrincipal  = auth.Principal{UserID: "user_1", Role: auth.RoleUser}
	otherPrincipal = auth.Principal{UserID: "user_2", Role: auth.RoleUser}
)

func newGlossaryFixture() (*AdminGlossaryService, *memTermStore) {
	store := newMemTermStore()
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			switch id {
			case "admin_1":
				return NewTestAdmin("admin_1", "admin", "admin@example.com"), nil
			case "user_1":
				return NewTestUser("user_1", "alice", "alice@example.com"), nil
			case "user_2":
				return NewTestUser("user_2", "bob", "bob@example.com"), nil
			}
			return nil, models.ErrNotFound
		},
		UsernamesFunc: func(ctx context.Context) (map[string]string, error) {
			return map[string]string{
				"admin_1": "admin",
				"user_1":  "alice",
				"user_2":  "bob",
			}, nil
		},
	}
	svc := NewAdminGlossaryService(store, users, newTestLogger(), newTestAuditLogger())
	return svc, store
}

func TestCreate_StartsAsDraftVersionOne(t *testing.T) {
	svc, store := newGlossaryFixture()

	created, err := svc.Create(context.Background(), userPrincipal, "  Alpha ", " def1 ")

	require.NoError(t, err)
	assert.Equal(t, "Alpha", created.Term)
	assert.Equal(t, "def1", created.Definition)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, int(models.StatusDraft), created.Status)
	assert.NotEmpty(t, created.StableID)

	stored, err := store.GetActiveByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CreatedByID)
	assert.Equal(t, "user_1", *stored.CreatedByID)
}

func TestCreate_UnknownPrincipalRejected(t *testing.T) {
	svc, _ := newGlossaryFixture()

	_, err := svc.Create(context.Background(), auth.Principal{UserID: "ghost", Role: auth.RoleAdmin}, "Alpha", "def1")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUpdate_ArchivesOutgoingContentExactlyOnce(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha2", "def2"))

	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1, "exactly one snapshot of the outgoing content")
	assert.Equal(t, "Alpha", snapshots[0].Term)
	assert.Equal(t, "def1", snapshots[0].Definition)
	assert.Equal(t, "Updated", snapshots[0].ChangeSummary)
	assert.Equal(t, 2, snapshots[0].Version, "snapshot takes the next version number")

	active, err := store.GetActiveByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha2", active.Term)
	assert.Equal(t, "def2", active.Definition)
	assert.Equal(t, models.StatusPublished, active.Status)
}

func TestUpdate_SkipsArchiveWhenIdenticalSnapshotExists(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	// Edit away and back again: the second edit away must not duplicate
	// the "Alpha/def1" snapshot
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha2", "def2"))
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha", "def1"))
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha3", "def3"))

	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)

	count := 0
	for _, snap := range snapshots {
		if snap.Term == "Alpha" && snap.Definition == "def1" {
			count++
		}
	}
	assert.Equal(t, 1, count, "identical content archived only once")
}

func TestUpdate_OwnershipEnforced(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Update(ctx, otherPrincipal, created.ID, "Hijack", "nope"), models.ErrForbidden)
	assert.NoError(t, svc.Update(ctx, adminPrincipal, created.ID, "Alpha2", "def2"), "admins manage everything")
}

func TestPublish_FlipsDraftInPlace(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	require.NoError(t, svc.Publish(ctx, userPrincipal, created.ID))

	active, err := store.GetActiveByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, active.Status)
	assert.Equal(t, 1, active.Version, "publish has no version side effects")

	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	assert.Empty(t, snapshots, "publish has no archive side effects")
}

func TestPublish_MissingTermNotFound(t *testing.T) {
	svc, _ := newGlossaryFixture()

	assert.ErrorIs(t, svc.Publish(context.Background(), adminPrincipal, "missing"), models.ErrNotFound)
}

func TestArchive_SnapshotsAndRemovesActive(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, userPrincipal, created.ID))

	_, err = store.GetActiveByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Manual archive", snapshots[0].ChangeSummary)
	assert.Equal(t, 2, snapshots[0].Version)
	assert.Equal(t, "Alpha", snapshots[0].Term)
	require.NotNil(t, snapshots[0].CreatedByID)
	assert.Equal(t, "user_1", *snapshots[0].CreatedByID, "creator carried over")
	require.NotNil(t, snapshots[0].ArchivedByID)
	assert.Equal(t, "user_1", *snapshots[0].ArchivedByID)
}

func TestRestore_UnknownVersionNotFound(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	_, err = svc.Restore(ctx, userPrincipal, created.StableID, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRestore_IdenticalContentIsNoOp(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha2", "def2"))
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha", "def1"))

	// Snapshot v2 holds "Alpha/def1", which is exactly what is active now
	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	archivedBefore := len(snapshots)

	result, err := svc.Restore(ctx, userPrincipal, created.StableID, 2)

	require.NoError(t, err)
	assert.False(t, result.Restored)

	snapshots, err = store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	assert.Len(t, snapshots, archivedBefore, "no-op restore adds no rows")

	source, err := store.GetArchivedVersion(ctx, created.StableID, 2)
	require.NoError(t, err)
	assert.Nil(t, source.RestoredAt, "no-op restore stamps nothing")
}

func TestRestore_FullFlow(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha2", "def2"))
	// Snapshot v2 = Alpha/def1, active = Alpha2/def2

	result, err := svc.Restore(ctx, userPrincipal, created.StableID, 2)

	require.NoError(t, err)
	assert.True(t, result.Restored)
	assert.Equal(t, created.StableID, result.StableID)

	// The outgoing active content was auto-archived
	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "Auto-archived before restore", snapshots[0].ChangeSummary)
	assert.Equal(t, 3, snapshots[0].Version)
	assert.Equal(t, "Alpha2", snapshots[0].Term)

	// The restore source carries provenance
	source, err := store.GetArchivedVersion(ctx, created.StableID, 2)
	require.NoError(t, err)
	require.NotNil(t, source.RestoredAt)
	require.NotNil(t, source.RestoredByID)
	assert.Equal(t, "user_1", *source.RestoredByID)

	// A new published active row holds the snapshot's content and creator
	active, err := store.GetActiveByStableID(ctx, created.StableID)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, active.ID)
	assert.Equal(t, "Alpha", active.Term)
	assert.Equal(t, "def1", active.Definition)
	assert.Equal(t, models.StatusPublished, active.Status)
	assert.Equal(t, 4, active.Version)
	require.NotNil(t, active.CreatedByID)
	assert.Equal(t, "user_1", *active.CreatedByID)
}

func TestRestore_WithoutActiveRow(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, userPrincipal, created.ID))

	result, err := svc.Restore(ctx, userPrincipal, created.StableID, 2)

	require.NoError(t, err)
	assert.True(t, result.Restored)

	active, err := store.GetActiveByStableID(ctx, created.StableID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", active.Term)
	assert.Equal(t, 3, active.Version)

	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1, "no auto-archive when nothing was active")
}

func TestDelete_RemovesWithoutArchiving(t *testing.T) {
	svc, store := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, userPrincipal, created.ID))

	_, err = store.GetActiveByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	snapshots, err := store.GetArchivedByStableID(ctx, created.StableID)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

// The end-to-end lifecycle: create, update, restore, checked through the
// history view after each step.
func TestHistory_LifecycleWalk(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, userPrincipal, created.ID))
	require.NoError(t, svc.Update(ctx, userPrincipal, created.ID, "Alpha2", "def2"))

	history, err := svc.History(ctx, userPrincipal, created.StableID)
	require.NoError(t, err)
	require.Len(t, history.Versions, 2)

	// Newest version first: the v2 snapshot (old content, restorable),
	// then the active row (new content, not restorable)
	snapshot := history.Versions[0]
	assert.Equal(t, 2, snapshot.Version)
	assert.Equal(t, "Alpha", snapshot.Term)
	assert.Equal(t, int(models.StatusArchived), snapshot.Status)
	assert.True(t, snapshot.CanRestore)
	assert.Equal(t, "alice", snapshot.CreatedByName)

	active := history.Versions[1]
	assert.Equal(t, 1, active.Version)
	assert.Equal(t, "Alpha2", active.Term)
	assert.Equal(t, int(models.StatusPublished), active.Status)
	assert.False(t, active.CanRestore)
	assert.True(t, active.HasHistory)

	_, err = svc.Restore(ctx, userPrincipal, created.StableID, 2)
	require.NoError(t, err)

	history, err = svc.History(ctx, userPrincipal, created.StableID)
	require.NoError(t, err)
	require.Len(t, history.Versions, 3)

	// v4 active (Alpha/def1), v3 auto-archive (Alpha2/def2, restorable),
	// v2 restore source (Alpha/def1, identical to active so not restorable)
	assert.Equal(t, 4, history.Versions[0].Version)
	assert.Equal(t, "Alpha", history.Versions[0].Term)
	assert.False(t, history.Versions[0].CanRestore)

	assert.Equal(t, 3, history.Versions[1].Version)
	assert.Equal(t, "Alpha2", history.Versions[1].Term)
	assert.True(t, history.Versions[1].CanRestore)

	assert.Equal(t, 2, history.Versions[2].Version)
	assert.Equal(t, "Alpha", history.Versions[2].Term)
	assert.False(t, history.Versions[2].CanRestore, "identical to active content")
	assert.NotNil(t, history.Versions[2].RestoredAt)
	require.NotNil(t, history.Versions[2].RestoredByName)
	assert.Equal(t, "alice", *history.Versions[2].RestoredByName)
}

func TestHistory_EmptyLineageNotFound(t *testing.T) {
	svc, _ := newGlossaryFixture()

	_, err := svc.History(context.Background(), adminPrincipal, "no-such-stable-id")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHistory_NonOwnerForbidden(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, userPrincipal, "Alpha", "def1")
	require.NoError(t, err)

	_, err = svc.History(ctx, otherPrincipal, created.StableID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.History(ctx, adminPrincipal, created.StableID)
	assert.NoError(t, err)
}

func TestList_SearchAndSort(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, userPrincipal, "Banana", "yellow fruit")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userPrincipal, "Apple", "red fruit")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userPrincipal, "Carrot", "orange vegetable")
	require.NoError(t, err)

	result, err := svc.List(ctx, userPrincipal, AdminTermQuery{Search: "FRUIT", Sort: "az", Limit: 50})

	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "Apple", result.Data[0].Term)
	assert.Equal(t, "Banana", result.Data[1].Term)
	assert.Equal(t, 2, result.Meta.Total)
	assert.False(t, result.Meta.HasMore)
}

func TestList_TabFilter(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	draft, err := svc.Create(ctx, userPrincipal, "Draft term", "kept as draft")
	require.NoError(t, err)
	published, err := svc.Create(ctx, userPrincipal, "Published term", "goes live")
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, userPrincipal, published.ID))
	gone, err := svc.Create(ctx, userPrincipal, "Archived term", "retired")
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, userPrincipal, gone.ID))

	drafts, err := svc.List(ctx, userPrincipal, AdminTermQuery{Tab: "draft", Limit: 50})
	require.NoError(t, err)
	require.Len(t, drafts.Data, 1)
	assert.Equal(t, draft.ID, drafts.Data[0].ID)

	archived, err := svc.List(ctx, userPrincipal, AdminTermQuery{Tab: "archived", Limit: 50})
	require.NoError(t, err)
	require.Len(t, archived.Data, 1)
	assert.Equal(t, "Archived term", archived.Data[0].Term)
	assert.True(t, archived.Data[0].CanRestore)
}

func TestList_OwnershipFilter(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, userPrincipal, "Mine", "owned by alice")
	require.NoError(t, err)
	_, err = svc.Create(ctx, otherPrincipal, "Theirs", "owned by bob")
	require.NoError(t, err)

	mine, err := svc.List(ctx, userPrincipal, AdminTermQuery{Limit: 50})
	require.NoError(t, err)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, "Mine", mine.Data[0].Term)

	all, err := svc.List(ctx, adminPrincipal, AdminTermQuery{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, all.Data, 2)
}

func TestList_Pagination(t *testing.T) {
	svc, _ := newGlossaryFixture()
	ctx := context.Background()

	for _, term := range []string{"A", "B", "C", "D", "E"} {
		_, err := svc.Create(ctx, userPrincipal, term, "definition of "+term)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, userPrincipal, AdminTermQuery{Sort: "az", Offset: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "A", page.Data[0].Term)
	assert.Equal(t, 5, page.Meta.Total)
	assert.True(t, page.Meta.HasMore)

	last, err := svc.List(ctx, userPrincipal, AdminTermQuery{Sort: "az", Offset: 4, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last.Data, 1)
	assert.Equal(t, "E", last.Data[0].Term)
	assert.False(t, last.Meta.HasMore)

	empty, err := svc.List(ctx, userPrincipal, AdminTermQuery{Sort: "az", Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, empty.Data)
}
