// Package backup implements the resumable crawl over a remote media
// library: the stage state machine, the item classifier, and the
// single-flight lease and progress bus that expose a running crawl to
// callers.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photoback/internal/downloader"
	"photoback/internal/store"
	"photoback/pkg/logger"
	"photoback/pkg/photos"
)

// Option store keys. One continuation token suffices because stages
// run strictly one after another.
const (
	optNextPageToken = "next-page-token"
	optStage         = "backup-stage"
	optStageAlbum    = "backup-stage-album"
	optCycle         = "current-cycle"
)

// ErrInvalidResponse means a listing response arrived without its
// expected collection field, which leaves the crawl with nothing safe
// to do but stop.
var ErrInvalidResponse = errors.New("listing response missing its collection field")

// LibraryClient is the slice of the remote API the engine consumes
type LibraryClient interface {
	ListMediaItems(ctx context.Context, pageSize int, pageToken string) (*photos.MediaItemsResponse, error)
	SearchAlbumMediaItems(ctx context.Context, albumID string, pageSize int, pageToken string) (*photos.MediaItemsResponse, error)
	ListAlbums(ctx context.Context, pageSize int, pageToken string) (*photos.AlbumsResponse, error)
}

// PageRunner executes one page's transfer jobs and blocks until they
// have all finished or one fatally failed
type PageRunner interface {
	Run(ctx context.Context, jobs []downloader.Job) error
}

// EngineParams collects the engine's collaborators
type EngineParams struct {
	Client     LibraryClient
	Classifier *Classifier
	Executor   PageRunner
	Options    *store.OptionRepository
	Albums     *store.AlbumRepository
	Lease      *Lease
	Bus        *Bus
	UserID     uint
	PageSize   int

	// Cooldown is an optional pause after each completed cycle before
	// the traversal restarts
	Cooldown time.Duration

	// PersistCredentials is invoked after every successful page fetch
	// so a token refreshed mid-crawl survives a restart
	PersistCredentials func() error

	Logger logger.Logger
}

// Engine drives the three-stage traversal: the whole library, the
// album listing, then each album's items. All progress is persisted
// through the option store after every page, so an interrupted run
// resumes mid-stage and mid-page.
type Engine struct {
	client       LibraryClient
	classifier   *Classifier
	executor     PageRunner
	options      *store.OptionRepository
	albums       *store.AlbumRepository
	lease        *Lease
	bus          *Bus
	userID       uint
	pageSize     int
	cooldown     time.Duration
	persistCreds func() error
	logger       logger.Logger
}

// NewEngine creates a crawl engine
func NewEngine(p EngineParams) *Engine {
	log := p.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		client:       p.Client,
		classifier:   p.Classifier,
		executor:     p.Executor,
		options:      p.Options,
		albums:       p.Albums,
		lease:        p.Lease,
		bus:          p.Bus,
		userID:       p.UserID,
		pageSize:     p.PageSize,
		cooldown:     p.Cooldown,
		persistCreds: p.PersistCredentials,
		logger:       log,
	}
}

// Crawl runs the traversal loop under the given lease generation until
// the lease lapses or a fatal error occurs. The lease is released on
// every exit path.
func (e *Engine) Crawl(ctx context.Context, gen uint64) {
	defer e.lease.Release(gen)

	e.logger.InfoWithFields("crawl loop starting", map[string]interface{}{
		"user_id": e.userID,
	})

	for {
		if ctx.Err() != nil {
			e.logger.Info("crawl loop stopping: context canceled")
			return
		}
		if e.lease.Expired(gen) {
			e.logger.Info("crawl loop stopping: no active consumer")
			return
		}

		if err := e.step(ctx); err != nil {
			e.bus.Publish(fmt.Sprintf("backup aborted: %v", err))
			e.logger.ErrorWithFields("crawl loop aborting", map[string]interface{}{
				"user_id": e.userID,
				"error":   err.Error(),
			})
			return
		}
	}
}

// step performs exactly one page operation in the current stage and
// persists the resulting position
func (e *Engine) step(ctx context.Context) error {
	stage, err := e.loadStage()
	if err != nil {
		return err
	}

	switch s := stage.(type) {
	case StageMediaItem:
		exhausted, err := e.processMediaItemPage(ctx)
		if err != nil {
			return err
		}
		if exhausted {
			e.bus.Publish("library listing complete, moving to albums")
			return e.saveStage(StageAlbum{})
		}
		return nil

	case StageAlbum:
		exhausted, err := e.processAlbumPage(ctx)
		if err != nil {
			return err
		}
		if !exhausted {
			return nil
		}
		first, err := e.albums.First(e.userID)
		if err != nil {
			return err
		}
		if first == nil {
			return e.endCycle(ctx)
		}
		return e.saveStage(StageAlbumItem{AlbumID: first.ID})

	case StageAlbumItem:
		album, err := e.resolveAlbum(s.AlbumID)
		if err != nil {
			return err
		}
		if album == nil {
			return e.endCycle(ctx)
		}
		if album.ID != s.AlbumID {
			// the stored album vanished; its token is meaningless now
			if err := e.setPageToken(""); err != nil {
				return err
			}
			if err := e.saveStage(StageAlbumItem{AlbumID: album.ID}); err != nil {
				return err
			}
		}

		exhausted, err := e.processAlbumItemPage(ctx, album)
		if err != nil {
			return err
		}
		if !exhausted {
			return nil
		}
		next, err := e.albums.NextAfter(e.userID, album.ID)
		if err != nil {
			return err
		}
		if next == nil {
			return e.endCycle(ctx)
		}
		return e.saveStage(StageAlbumItem{AlbumID: next.ID})

	default:
		return fmt.Errorf("%w: %T", ErrUnknownStage, stage)
	}
}

// resolveAlbum returns the album for the persisted stage argument,
// falling back to the next album by internal id when the stored one no
// longer exists
func (e *Engine) resolveAlbum(albumID uint) (*store.Album, error) {
	album, err := e.albums.GetByInternalID(e.userID, albumID)
	if err != nil {
		return nil, err
	}
	if album != nil {
		return album, nil
	}
	return e.albums.NextAfter(e.userID, albumID)
}

// processMediaItemPage handles one page of the whole-library listing
func (e *Engine) processMediaItemPage(ctx context.Context) (exhausted bool, err error) {
	resp, err := e.client.ListMediaItems(ctx, e.pageSize, e.pageToken())
	if err != nil {
		return false, err
	}
	if resp.MediaItems == nil {
		return false, ErrInvalidResponse
	}
	e.saveCredentials()

	if err := e.processItems(ctx, resp.MediaItems, nil); err != nil {
		return false, err
	}
	return e.finishPage(resp.NextPageToken)
}

// processAlbumPage handles one page of the album listing
func (e *Engine) processAlbumPage(ctx context.Context) (exhausted bool, err error) {
	resp, err := e.client.ListAlbums(ctx, e.pageSize, e.pageToken())
	if err != nil {
		return false, err
	}
	if resp.Albums == nil {
		return false, ErrInvalidResponse
	}
	e.saveCredentials()

	cycle := e.cycle()
	for i := range resp.Albums {
		remote := &resp.Albums[i]
		_, created, err := e.albums.Upsert(e.userID, remote.ID, remote.Title, remote.ProductURL, remote.CoverPhotoMediaItemID, cycle)
		if err != nil {
			return false, err
		}
		if created {
			e.bus.Publish(fmt.Sprintf("new album %q", remote.Title))
		} else {
			e.bus.Publish(fmt.Sprintf("album %q updated", remote.Title))
		}
	}
	return e.finishPage(resp.NextPageToken)
}

// processAlbumItemPage handles one page of a single album's items
func (e *Engine) processAlbumItemPage(ctx context.Context, album *store.Album) (exhausted bool, err error) {
	resp, err := e.client.SearchAlbumMediaItems(ctx, album.RemoteID, e.pageSize, e.pageToken())
	if err != nil {
		return false, err
	}
	if resp.MediaItems == nil {
		return false, ErrInvalidResponse
	}
	e.saveCredentials()

	if err := e.processItems(ctx, resp.MediaItems, album); err != nil {
		return false, err
	}
	return e.finishPage(resp.NextPageToken)
}

// processItems classifies one page's items, records album memberships
// when paging inside an album, and runs the downloadable set to
// completion
func (e *Engine) processItems(ctx context.Context, items []photos.MediaItem, album *store.Album) error {
	cycle := e.cycle()
	var jobs []downloader.Job

	for i := range items {
		item := &items[i]
		result, err := e.classifier.Classify(e.userID, cycle, item)
		if err != nil {
			return err
		}
		if result.Status == StatusNotReady {
			continue
		}
		if album != nil {
			if err := e.albums.EnsureMembership(e.userID, album.RemoteID, item.ID, cycle); err != nil {
				return err
			}
		}
		if result.Status == StatusDownloadBoth || result.Status == StatusThumbnailOnly {
			jobs = append(jobs, result.Job)
		}
	}

	return e.executor.Run(ctx, jobs)
}

// finishPage persists the page outcome: the next continuation token,
// or its removal when the listing is exhausted. It runs only after the
// page's downloads have fully joined, so a crash can at worst repeat a
// page, never skip one.
func (e *Engine) finishPage(nextToken string) (exhausted bool, err error) {
	if err := e.setPageToken(nextToken); err != nil {
		return false, err
	}
	return nextToken == "", nil
}

// endCycle closes the traversal: back to the first stage, stage
// argument cleared, cycle counter bumped
func (e *Engine) endCycle(ctx context.Context) error {
	if err := e.saveStage(StageMediaItem{}); err != nil {
		return err
	}
	// a token left behind by a vanished album must not leak into the
	// next cycle's first listing
	if err := e.setPageToken(""); err != nil {
		return err
	}
	cycle := e.cycle() + 1
	if err := e.options.Set(e.userID, optCycle, cycle); err != nil {
		return err
	}
	e.bus.Publish(fmt.Sprintf("backup cycle %d complete", cycle))

	if e.cooldown > 0 {
		select {
		case <-time.After(e.cooldown):
		case <-ctx.Done():
		}
	}
	return nil
}

// loadStage reconstructs the persisted traversal position. The default
// for a fresh user is the first stage.
func (e *Engine) loadStage() (Stage, error) {
	name := e.options.GetString(e.userID, optStage, stageNameMediaItem)
	albumID := e.options.GetInt64(e.userID, optStageAlbum, 0)
	return parseStage(name, uint(albumID))
}

// saveStage persists the traversal position as its two option entries
func (e *Engine) saveStage(stage Stage) error {
	if err := e.options.Set(e.userID, optStage, stage.name()); err != nil {
		return err
	}
	if s, ok := stage.(StageAlbumItem); ok {
		return e.options.Set(e.userID, optStageAlbum, int64(s.AlbumID))
	}
	return e.options.Set(e.userID, optStageAlbum, nil)
}

func (e *Engine) pageToken() string {
	return e.options.GetString(e.userID, optNextPageToken, "")
}

func (e *Engine) setPageToken(token string) error {
	if token == "" {
		return e.options.Set(e.userID, optNextPageToken, nil)
	}
	return e.options.Set(e.userID, optNextPageToken, token)
}

func (e *Engine) cycle() int64 {
	return e.options.GetInt64(e.userID, optCycle, 0)
}

// saveCredentials re-persists possibly refreshed credentials after a
// successful page fetch. Failure to save is logged but never kills the
// crawl.
func (e *Engine) saveCredentials() {
	if e.persistCreds == nil {
		return
	}
	if err := e.persistCreds(); err != nil {
		e.logger.WarnWithFields("failed to persist credentials", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
