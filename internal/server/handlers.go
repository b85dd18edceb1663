package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"photoback/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

// pageParams reads limit/offset query parameters with sane bounds
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// handleBackupStream starts or joins a backup run and streams its
// progress as plain-text lines. The client keeping the connection open
// is what keeps the run's lease alive; disconnecting lets the run wind
// down at its next page boundary.
func (s *Server) handleBackupStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for line := range s.service.Run(r.Context()) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleAccount returns the served account with its archive totals
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(s.userID)
	if err != nil || user == nil {
		s.logger.WithError(err).Error("failed to look up account")
		writeError(w, http.StatusInternalServerError, "failed to look up account")
		return
	}
	itemTotal, err := s.items.Count(s.userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to count media items")
		writeError(w, http.StatusInternalServerError, "failed to count media items")
		return
	}
	albumTotal, err := s.albums.Count(s.userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to count albums")
		writeError(w, http.StatusInternalServerError, "failed to count albums")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":      user.Email,
		"uid":        user.UID,
		"mediaItems": itemTotal,
		"albums":     albumTotal,
	})
}

type mediaItemResponse struct {
	RemoteID     string  `json:"id"`
	MimeType     string  `json:"mimeType"`
	ProductURL   string  `json:"productUrl"`
	CreationTime string  `json:"creationTime"`
	Filename     *string `json:"filename"`
	Thumbnail    *string `json:"thumbnail"`
	Width        *int    `json:"width"`
	Height       *int    `json:"height"`
}

type albumResponse struct {
	RemoteID         string `json:"id"`
	Title            string `json:"title"`
	ProductURL       string `json:"productUrl"`
	CoverMediaItemID string `json:"coverMediaItemId"`
}

func (s *Server) handleListMediaItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	items, err := s.items.List(s.userID, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list media items")
		writeError(w, http.StatusInternalServerError, "failed to list media items")
		return
	}
	total, err := s.items.Count(s.userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to count media items")
		writeError(w, http.StatusInternalServerError, "failed to count media items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":      total,
		"mediaItems": mediaItemResponses(items),
	})
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	albums, err := s.albums.List(s.userID, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list albums")
		writeError(w, http.StatusInternalServerError, "failed to list albums")
		return
	}
	total, err := s.albums.Count(s.userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to count albums")
		writeError(w, http.StatusInternalServerError, "failed to count albums")
		return
	}

	out := make([]albumResponse, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumResponse{
			RemoteID:         a.RemoteID,
			Title:            a.Title,
			ProductURL:       a.ProductURL,
			CoverMediaItemID: a.CoverMediaItemID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"albums": out,
	})
}

func (s *Server) handleListAlbumItems(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumID")
	limit, offset := pageParams(r)

	album, err := s.albums.GetByRemoteID(s.userID, albumID)
	if err != nil {
		s.logger.WithError(err).Error("failed to look up album")
		writeError(w, http.StatusInternalServerError, "failed to look up album")
		return
	}
	if album == nil {
		writeError(w, http.StatusNotFound, "album not found")
		return
	}

	items, err := s.albums.ListAlbumItems(s.userID, albumID, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list album items")
		writeError(w, http.StatusInternalServerError, "failed to list album items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"album":      albumResponse{RemoteID: album.RemoteID, Title: album.Title, ProductURL: album.ProductURL, CoverMediaItemID: album.CoverMediaItemID},
		"mediaItems": mediaItemResponses(items),
	})
}

func mediaItemResponses(items []store.MediaItem) []mediaItemResponse {
	out := make([]mediaItemResponse, 0, len(items))
	for _, m := range items {
		out = append(out, mediaItemResponse{
			RemoteID:     m.RemoteID,
			MimeType:     m.MimeType,
			ProductURL:   m.ProductURL,
			CreationTime: m.CreationTime,
			Filename:     m.Filename,
			Thumbnail:    m.Thumbnail,
			Width:        m.Width,
			Height:       m.Height,
		})
	}
	return out
}
