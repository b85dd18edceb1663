package main

import (
	"fmt"
	"path/filepath"
	"time"

	"photoback/internal/downloader"
	"photoback/internal/server"
	"photoback/internal/store"
	"photoback/pkg/auth"
	"photoback/pkg/backup"
	"photoback/pkg/config"
	"photoback/pkg/logger"
	"photoback/pkg/photos"
	"photoback/pkg/ratelimit"
)

// app wires the full backup stack for the serve and run commands
type app struct {
	cfg     *config.Config
	log     logger.Logger
	user    *store.User
	manager *auth.Manager
	creds   *auth.Credentials
	service *backup.Service
	server  *server.Server
}

// buildApp loads configuration, opens the database and credential
// store, and assembles the crawl service and HTTP server
func buildApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	if cfg.Account.Email == "" {
		return nil, fmt.Errorf("no account configured: set account.email or PHOTOBACK_ACCOUNT_EMAIL")
	}

	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	users := store.NewUserRepository(db)
	items := store.NewMediaItemRepository(db)
	albums := store.NewAlbumRepository(db)
	options := store.NewOptionRepository(db)

	user, err := users.GetOrCreateByEmail(cfg.Account.Email)
	if err != nil {
		return nil, err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	creds, err := manager.Retrieve(user.Email)
	if err != nil {
		return nil, fmt.Errorf("no credentials for %s: run `photoback auth set %s` first: %w", user.Email, user.Email, err)
	}

	// per-account layout: <root>/<uid>/library and <root>/<uid>/thumbnails
	archiveRoot := filepath.Join(cfg.Storage.Root, user.UID, "library")
	thumbRoot := filepath.Join(cfg.Storage.Root, user.UID, "thumbnails")

	limiter := ratelimit.NewTokenBucket(cfg.API.RequestsPerMinute, time.Minute)
	client := photos.NewClient(cfg.API.BaseURL, cfg.API.ConnectTimeout, creds, limiter, log)

	bus := backup.NewBus()
	lease := backup.NewLease(cfg.Backup.LeaseTTL)
	classifier := backup.NewClassifier(items, archiveRoot, thumbRoot, bus, log)
	executor := downloader.NewExecutor(
		client, archiveRoot, thumbRoot,
		cfg.Backup.ConcurrentDownloads,
		cfg.Backup.ThumbnailWidth, cfg.Backup.ThumbnailHeight,
		bus, log,
	)

	engine := backup.NewEngine(backup.EngineParams{
		Client:     client,
		Classifier: classifier,
		Executor:   executor,
		Options:    options,
		Albums:     albums,
		Lease:      lease,
		Bus:        bus,
		UserID:     user.ID,
		PageSize:   cfg.Backup.PageSize,
		Cooldown:   cfg.Backup.CycleCooldown,
		PersistCredentials: func() error {
			return manager.Store(user.Email, creds)
		},
		Logger: log,
	})

	service := backup.NewService(engine, lease, bus, cfg.Backup.PollInterval, cfg.Backup.WaitInterval, log)
	httpServer := server.New(service, users, items, albums, user.ID, log)

	return &app{
		cfg:     cfg,
		log:     log,
		user:    user,
		manager: manager,
		creds:   creds,
		service: service,
		server:  httpServer,
	}, nil
}
