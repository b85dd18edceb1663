package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoback/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.MediaItemRepository, *store.AlbumRepository, uint) {
	t.Helper()

	db, err := store.OpenInMemory()
	require.NoError(t, err)

	users := store.NewUserRepository(db)
	user, err := users.GetOrCreateByEmail("test@example.com")
	require.NoError(t, err)

	items := store.NewMediaItemRepository(db)
	albums := store.NewAlbumRepository(db)

	return New(nil, users, items, albums, user.ID, nil), items, albums, user.ID
}

func strPtr(s string) *string { return &s }

func TestHealthz(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccount(t *testing.T) {
	srv, items, _, userID := newTestServer(t)

	require.NoError(t, items.Create(&store.MediaItem{
		UserID: userID, RemoteID: "p1", MimeType: "image/jpeg", CreationTime: "2023-04-01T10:00:00Z",
	}))

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/account")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Email      string `json:"email"`
		UID        string `json:"uid"`
		MediaItems int64  `json:"mediaItems"`
		Albums     int64  `json:"albums"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "test@example.com", body.Email)
	assert.Len(t, body.UID, 32)
	assert.Equal(t, int64(1), body.MediaItems)
	assert.Equal(t, int64(0), body.Albums)
}

func TestListMediaItems(t *testing.T) {
	srv, items, _, userID := newTestServer(t)

	require.NoError(t, items.Create(&store.MediaItem{
		UserID:       userID,
		RemoteID:     "p1",
		MimeType:     "image/jpeg",
		CreationTime: "2023-04-01T10:00:00Z",
		Filename:     strPtr("2023/04/beach.jpg"),
		Thumbnail:    strPtr("2023/04/beach.jpg"),
	}))

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/mediaitems")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Total      int64 `json:"total"`
		MediaItems []struct {
			ID       string  `json:"id"`
			Filename *string `json:"filename"`
		} `json:"mediaItems"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.MediaItems, 1)
	assert.Equal(t, "p1", body.MediaItems[0].ID)
	require.NotNil(t, body.MediaItems[0].Filename)
	assert.Equal(t, "2023/04/beach.jpg", *body.MediaItems[0].Filename)
}

func TestListAlbumsAndAlbumItems(t *testing.T) {
	srv, items, albums, userID := newTestServer(t)

	require.NoError(t, items.Create(&store.MediaItem{
		UserID: userID, RemoteID: "p1", MimeType: "image/jpeg", CreationTime: "2023-04-01T10:00:00Z",
	}))
	_, _, err := albums.Upsert(userID, "album-a", "Holiday", "https://p/a", "p1", 1)
	require.NoError(t, err)
	require.NoError(t, albums.EnsureMembership(userID, "album-a", "p1", 1))

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/albums")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var albumsBody struct {
		Total  int64 `json:"total"`
		Albums []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"albums"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&albumsBody))
	assert.Equal(t, int64(1), albumsBody.Total)
	require.Len(t, albumsBody.Albums, 1)
	assert.Equal(t, "Holiday", albumsBody.Albums[0].Title)

	resp2, err := http.Get(ts.URL + "/api/albums/album-a/mediaitems")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var itemsBody struct {
		MediaItems []struct {
			ID string `json:"id"`
		} `json:"mediaItems"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&itemsBody))
	require.Len(t, itemsBody.MediaItems, 1)
	assert.Equal(t, "p1", itemsBody.MediaItems[0].ID)
}

func TestUnknownAlbumIs404(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/albums/nope/mediaitems")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
