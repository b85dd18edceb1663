package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*UserRepository, *MediaItemRepository, *AlbumRepository, *OptionRepository, uint) {
	t.Helper()

	db, err := OpenInMemory()
	require.NoError(t, err)

	users := NewUserRepository(db)
	user, err := users.GetOrCreateByEmail("test@example.com")
	require.NoError(t, err)

	return users, NewMediaItemRepository(db), NewAlbumRepository(db), NewOptionRepository(db), user.ID
}

func TestGetOrCreateByEmailIsStable(t *testing.T) {
	users, _, _, _, userID := newTestDB(t)

	again, err := users.GetOrCreateByEmail("test@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, again.ID)
	assert.NotEmpty(t, again.UID)

	other, err := users.GetOrCreateByEmail("other@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, userID, other.ID)
	assert.NotEqual(t, again.UID, other.UID)

	byID, err := users.GetByID(userID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "test@example.com", byID.Email)

	gone, err := users.GetByID(9999)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestOptionRoundTrip(t *testing.T) {
	_, _, _, options, userID := newTestDB(t)

	assert.Equal(t, "fallback", options.GetString(userID, "page_token", "fallback"))

	require.NoError(t, options.Set(userID, "page_token", "abc123"))
	assert.Equal(t, "abc123", options.GetString(userID, "page_token", "fallback"))

	require.NoError(t, options.Set(userID, "cycle", int64(7)))
	assert.Equal(t, int64(7), options.GetInt64(userID, "cycle", 0))

	// null deletes the entry
	require.NoError(t, options.Set(userID, "page_token", nil))
	assert.Equal(t, "fallback", options.GetString(userID, "page_token", "fallback"))
}

func TestOptionCorruptValueYieldsDefault(t *testing.T) {
	_, _, _, options, userID := newTestDB(t)

	// write garbage straight into the table, bypassing Set
	opt := Option{UserID: userID, Key: "stage", Value: "{not json"}
	require.NoError(t, options.DB.Create(&opt).Error)

	assert.Equal(t, "mediaItem", options.GetString(userID, "stage", "mediaItem"))

	// a type mismatch is treated the same way
	require.NoError(t, options.Set(userID, "count", "not-a-number"))
	assert.Equal(t, int64(42), options.GetInt64(userID, "count", 42))
}

func TestOptionsAreScopedPerUser(t *testing.T) {
	users, _, _, options, userID := newTestDB(t)

	other, err := users.GetOrCreateByEmail("other@example.com")
	require.NoError(t, err)

	require.NoError(t, options.Set(userID, "cycle", int64(3)))
	assert.Equal(t, int64(0), options.GetInt64(other.ID, "cycle", 0))
}

func TestMediaItemLifecycle(t *testing.T) {
	_, items, _, _, userID := newTestDB(t)

	missing, err := items.GetByRemoteID(userID, "remote-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	item := &MediaItem{
		UserID:       userID,
		RemoteID:     "remote-1",
		MimeType:     "video/mp4",
		CreationTime: "2023-04-01T10:00:00Z",
	}
	require.NoError(t, items.Create(item))

	got, err := items.GetByRemoteID(userID, "remote-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Filename)

	require.NoError(t, items.AssignPaths(got.ID, "2023/04/clip.mp4", "2023/04/clip.mp4.jpg"))

	got, err = items.GetByRemoteID(userID, "remote-1")
	require.NoError(t, err)
	require.NotNil(t, got.Filename)
	assert.Equal(t, "2023/04/clip.mp4", *got.Filename)
	require.NotNil(t, got.Thumbnail)
	assert.Equal(t, "2023/04/clip.mp4.jpg", *got.Thumbnail)

	claimed, err := items.FilenameClaimed(userID, "2023/04/clip.mp4")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = items.FilenameClaimed(userID, "2023/04/other.mp4")
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, items.Touch(got.ID, 5))
	got, err = items.GetByRemoteID(userID, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.LastSeen)
}

func TestAlbumUpsertAndOrdering(t *testing.T) {
	_, _, albums, _, userID := newTestDB(t)

	first, err := albums.First(userID)
	require.NoError(t, err)
	assert.Nil(t, first)

	a, created, err := albums.Upsert(userID, "album-a", "Holiday", "https://p/a", "cover-1", 1)
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := albums.Upsert(userID, "album-b", "Pets", "https://p/b", "cover-2", 1)
	require.NoError(t, err)
	assert.True(t, created)

	// re-listing refreshes, never duplicates
	a2, created, err := albums.Upsert(userID, "album-a", "Holiday 2023", "https://p/a", "cover-1", 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, a2.ID)
	assert.Equal(t, "Holiday 2023", a2.Title)
	assert.Equal(t, int64(2), a2.LastSeen)

	first, err = albums.First(userID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, a.ID, first.ID)

	next, err := albums.NextAfter(userID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, b.ID, next.ID)

	next, err = albums.NextAfter(userID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestMembershipIsIdempotent(t *testing.T) {
	_, items, albums, _, userID := newTestDB(t)

	require.NoError(t, items.Create(&MediaItem{
		UserID: userID, RemoteID: "remote-1", MimeType: "image/jpeg", CreationTime: "2023-04-01T10:00:00Z",
	}))
	_, _, err := albums.Upsert(userID, "album-a", "Holiday", "", "", 1)
	require.NoError(t, err)

	require.NoError(t, albums.EnsureMembership(userID, "album-a", "remote-1", 1))
	require.NoError(t, albums.EnsureMembership(userID, "album-a", "remote-1", 1))
	require.NoError(t, albums.EnsureMembership(userID, "album-a", "remote-1", 2))

	got, err := albums.ListAlbumItems(userID, "album-a", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "remote-1", got[0].RemoteID)
}
