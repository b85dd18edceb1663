// Package server exposes the backup engine and the archived library
// over HTTP: a line-streamed backup endpoint and JSON listings of the
// stored records.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"photoback/internal/store"
	"photoback/pkg/backup"
	"photoback/pkg/logger"
)

// Server holds the HTTP layer's collaborators
type Server struct {
	service *backup.Service
	users   *store.UserRepository
	items   *store.MediaItemRepository
	albums  *store.AlbumRepository
	userID  uint
	logger  logger.Logger
}

// New creates the HTTP server bound to one library account
func New(service *backup.Service, users *store.UserRepository, items *store.MediaItemRepository, albums *store.AlbumRepository, userID uint, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		service: service,
		users:   users,
		items:   items,
		albums:  albums,
		userID:  userID,
		logger:  log,
	}
}

// Router builds the chi router with all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/backup/stream", s.handleBackupStream)

	r.Route("/api", func(r chi.Router) {
		r.Get("/account", s.handleAccount)
		r.Get("/mediaitems", s.handleListMediaItems)
		r.Get("/albums", s.handleListAlbums)
		r.Get("/albums/{albumID}/mediaitems", s.handleListAlbumItems)
	})

	return r
}

// ListenAndServe runs the server on addr until it fails. Write timeout
// stays unset because the backup stream is long-lived.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.InfoWithFields("http server listening", map[string]interface{}{
		"addr": addr,
	})
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
