package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoback/internal/store"
	"photoback/pkg/photos"
)

type testStore struct {
	userID  uint
	items   *store.MediaItemRepository
	albums  *store.AlbumRepository
	options *store.OptionRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := store.OpenInMemory()
	require.NoError(t, err)

	user, err := store.NewUserRepository(db).GetOrCreateByEmail("test@example.com")
	require.NoError(t, err)

	return &testStore{
		userID:  user.ID,
		items:   store.NewMediaItemRepository(db),
		albums:  store.NewAlbumRepository(db),
		options: store.NewOptionRepository(db),
	}
}

func photoItem(id, filename, creation string) *photos.MediaItem {
	return &photos.MediaItem{
		ID:       id,
		BaseURL:  "https://cdn/" + id,
		MimeType: "image/jpeg",
		Filename: filename,
		MediaMetadata: photos.MediaMetadata{
			CreationTime: creation,
			Width:        "4000",
			Height:       "3000",
			Photo:        &photos.PhotoMetadata{},
		},
	}
}

func videoItem(id, filename, creation, status string) *photos.MediaItem {
	return &photos.MediaItem{
		ID:       id,
		BaseURL:  "https://cdn/" + id,
		MimeType: "video/mp4",
		Filename: filename,
		MediaMetadata: photos.MediaMetadata{
			CreationTime: creation,
			Video:        &photos.VideoMetadata{Status: status},
		},
	}
}

func TestClassifyNewItemAllocatesDatedPath(t *testing.T) {
	ts := newTestStore(t)
	c := NewClassifier(ts.items, t.TempDir(), t.TempDir(), NewBus(), nil)

	result, err := c.Classify(ts.userID, 1, photoItem("p1", "beach.jpg", "2023-04-01T10:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, StatusDownloadBoth, result.Status)
	assert.Equal(t, "2023/04/beach.jpg", result.Job.Filename)
	assert.Equal(t, "2023/04/beach.jpg", result.Job.Thumbnail)
	assert.True(t, result.Job.FetchItem)
	assert.True(t, result.Job.FetchThumbnail)

	record, err := ts.items.GetByRemoteID(ts.userID, "p1")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotNil(t, record.Filename)
	assert.Equal(t, "2023/04/beach.jpg", *record.Filename)
	require.NotNil(t, record.Width)
	assert.Equal(t, 4000, *record.Width)
	assert.Equal(t, int64(1), record.LastSeen)
}

func TestClassifyUnparseableTimestampFallsBackToOther(t *testing.T) {
	ts := newTestStore(t)
	c := NewClassifier(ts.items, t.TempDir(), t.TempDir(), NewBus(), nil)

	result, err := c.Classify(ts.userID, 1, photoItem("p1", "scan.jpg", "not-a-date"))
	require.NoError(t, err)
	assert.Equal(t, "other/scan.jpg", result.Job.Filename)
}

func TestClassifyFilenameCollisionsGetNumberedSuffixes(t *testing.T) {
	ts := newTestStore(t)
	c := NewClassifier(ts.items, t.TempDir(), t.TempDir(), NewBus(), nil)

	// three distinct items, same original name, same month
	first, err := c.Classify(ts.userID, 1, photoItem("p1", "IMG_0001.jpg", "2023-04-01T10:00:00Z"))
	require.NoError(t, err)
	second, err := c.Classify(ts.userID, 1, photoItem("p2", "IMG_0001.jpg", "2023-04-02T10:00:00Z"))
	require.NoError(t, err)
	third, err := c.Classify(ts.userID, 1, photoItem("p3", "IMG_0001.jpg", "2023-04-03T10:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, "2023/04/IMG_0001.jpg", first.Job.Filename)
	assert.Equal(t, "2023/04/IMG_0001-2.jpg", second.Job.Filename)
	assert.Equal(t, "2023/04/IMG_0001-3.jpg", third.Job.Filename)
}

func TestClassifyCollisionWithFileOnDisk(t *testing.T) {
	ts := newTestStore(t)
	root := t.TempDir()
	c := NewClassifier(ts.items, root, t.TempDir(), NewBus(), nil)

	// a file nothing in the database claims
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2023", "04"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2023", "04", "IMG_0001.jpg"), []byte("x"), 0644))

	result, err := c.Classify(ts.userID, 1, photoItem("p1", "IMG_0001.jpg", "2023-04-01T10:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, "2023/04/IMG_0001-2.jpg", result.Job.Filename)
}

func TestClassifyNotReadyVideoCreatesNoRecord(t *testing.T) {
	ts := newTestStore(t)
	bus := NewBus()
	c := NewClassifier(ts.items, t.TempDir(), t.TempDir(), bus, nil)

	result, err := c.Classify(ts.userID, 1, videoItem("v1", "clip.mp4", "2023-04-01T10:00:00Z", "PROCESSING"))
	require.NoError(t, err)
	assert.Equal(t, StatusNotReady, result.Status)

	record, err := ts.items.GetByRemoteID(ts.userID, "v1")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NotEmpty(t, bus.Drain())
}

func TestClassifyNotReadyThenReadyAssignsPathOnce(t *testing.T) {
	ts := newTestStore(t)
	c := NewClassifier(ts.items, t.TempDir(), t.TempDir(), NewBus(), nil)

	_, err := c.Classify(ts.userID, 1, videoItem("v1", "clip.mp4", "2023-04-01T10:00:00Z", "PROCESSING"))
	require.NoError(t, err)

	result, err := c.Classify(ts.userID, 2, videoItem("v1", "clip.mp4", "2023-04-01T10:00:00Z", photos.VideoReady))
	require.NoError(t, err)
	assert.Equal(t, StatusDownloadBoth, result.Status)
	assert.Equal(t, "2023/04/clip.mp4", result.Job.Filename)
	assert.Equal(t, "2023/04/clip.mp4.jpg", result.Job.Thumbnail, "video thumbnails are static images")
}

func TestClassifyAlreadyDownloadedSchedulesNothing(t *testing.T) {
	ts := newTestStore(t)
	root, thumbRoot := t.TempDir(), t.TempDir()
	c := NewClassifier(ts.items, root, thumbRoot, NewBus(), nil)

	item := photoItem("p1", "beach.jpg", "2023-04-01T10:00:00Z")
	result, err := c.Classify(ts.userID, 1, item)
	require.NoError(t, err)
	require.Equal(t, StatusDownloadBoth, result.Status)

	writeRel(t, root, result.Job.Filename)
	writeRel(t, thumbRoot, result.Job.Thumbnail)

	again, err := c.Classify(ts.userID, 2, item)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, again.Status)

	record, err := ts.items.GetByRemoteID(ts.userID, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), record.LastSeen, "re-sighting must bump the cycle")
}

func TestClassifyMissingThumbnailIsThumbnailOnly(t *testing.T) {
	ts := newTestStore(t)
	root, thumbRoot := t.TempDir(), t.TempDir()
	c := NewClassifier(ts.items, root, thumbRoot, NewBus(), nil)

	item := photoItem("p1", "beach.jpg", "2023-04-01T10:00:00Z")
	result, err := c.Classify(ts.userID, 1, item)
	require.NoError(t, err)

	writeRel(t, root, result.Job.Filename)

	again, err := c.Classify(ts.userID, 1, item)
	require.NoError(t, err)
	assert.Equal(t, StatusThumbnailOnly, again.Status)
	assert.False(t, again.Job.FetchItem)
	assert.True(t, again.Job.FetchThumbnail)
}

func TestClassifyMissingBytesForcesRedownload(t *testing.T) {
	ts := newTestStore(t)
	root, thumbRoot := t.TempDir(), t.TempDir()
	c := NewClassifier(ts.items, root, thumbRoot, NewBus(), nil)

	item := photoItem("p1", "beach.jpg", "2023-04-01T10:00:00Z")
	result, err := c.Classify(ts.userID, 1, item)
	require.NoError(t, err)

	// only the thumbnail made it to disk
	writeRel(t, thumbRoot, result.Job.Thumbnail)

	again, err := c.Classify(ts.userID, 1, item)
	require.NoError(t, err)
	assert.Equal(t, StatusDownloadBoth, again.Status)
	assert.True(t, again.Job.FetchItem)
	assert.False(t, again.Job.FetchThumbnail, "intact thumbnail is not fetched again")

	// the assigned name must survive the re-download unchanged
	assert.Equal(t, result.Job.Filename, again.Job.Filename)
}

func writeRel(t *testing.T, root, rel string) {
	t.Helper()
	dest := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, os.WriteFile(dest, []byte("bytes"), 0644))
}
