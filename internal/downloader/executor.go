// Package downloader fetches media bytes and thumbnails for one page
// of classified items with bounded concurrency.
package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"photoback/pkg/logger"
	"photoback/pkg/photos"
)

// DefaultWorkers is the concurrent transfer limit within one page
const DefaultWorkers = 5

// Job is one item's worth of transfer work. Filename and Thumbnail are
// relative to the executor's root; FetchItem/FetchThumbnail say which
// of the two transfers are still needed.
type Job struct {
	RemoteID         string
	BaseURL          string
	IsVideo          bool
	Filename         string
	Thumbnail        string
	CreationTime     time.Time
	FetchItem        bool
	FetchThumbnail   bool
	OriginalFilename string
}

// ByteSource streams the response body for a media URL. The caller
// owns the returned reader.
type ByteSource interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Reporter receives human-readable progress lines
type Reporter interface {
	Publish(line string)
}

// Executor runs one page's downloads on a bounded worker group. A 404
// on any single item is logged and skipped; a 429 or any other failure
// aborts the whole page and surfaces as the group error.
type Executor struct {
	source      ByteSource
	root        string
	thumbRoot   string
	workers     int
	thumbWidth  int
	thumbHeight int
	reporter    Reporter
	logger      logger.Logger
}

// NewExecutor creates a download executor. Media bytes land under
// root, thumbnails under thumbRoot, both mirroring the items' relative
// paths.
func NewExecutor(source ByteSource, root, thumbRoot string, workers, thumbWidth, thumbHeight int, reporter Reporter, log logger.Logger) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Executor{
		source:      source,
		root:        root,
		thumbRoot:   thumbRoot,
		workers:     workers,
		thumbWidth:  thumbWidth,
		thumbHeight: thumbHeight,
		reporter:    reporter,
		logger:      log,
	}
}

// Run executes all jobs and blocks until every transfer has finished
// or one has fatally failed. The returned error, if any, aborts the
// crawl run.
func (e *Executor) Run(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return e.process(ctx, job)
		})
	}

	return g.Wait()
}

// process transfers one job's bytes and/or thumbnail
func (e *Executor) process(ctx context.Context, job Job) error {
	if job.FetchItem {
		url := photos.DownloadURL(job.BaseURL, job.IsVideo)
		if skip, err := e.fetch(ctx, url, e.root, job.Filename, job.CreationTime); err != nil {
			return err
		} else if skip {
			e.publish(fmt.Sprintf("skipped %s: gone from remote", job.OriginalFilename))
			return nil
		}
		e.publish(fmt.Sprintf("downloaded %s", job.Filename))
	}

	if job.FetchThumbnail && job.Thumbnail != "" {
		url := photos.ThumbnailURL(job.BaseURL, e.thumbWidth, e.thumbHeight, job.IsVideo)
		if skip, err := e.fetch(ctx, url, e.thumbRoot, job.Thumbnail, job.CreationTime); err != nil {
			return err
		} else if skip {
			e.publish(fmt.Sprintf("skipped thumbnail for %s: gone from remote", job.OriginalFilename))
			return nil
		}
		if !job.FetchItem {
			e.publish(fmt.Sprintf("downloaded thumbnail %s", job.Thumbnail))
		}
	}

	return nil
}

// fetch streams url into the file at relPath. The skip return is true
// for a remote 404, which is permanent for that item and must not kill
// the page.
func (e *Executor) fetch(ctx context.Context, url, root, relPath string, mtime time.Time) (skip bool, err error) {
	body, err := e.source.Download(ctx, url)
	if err != nil {
		if photos.IsNotFound(err) {
			e.logger.WarnWithFields("media gone from remote", map[string]interface{}{
				"path": relPath,
			})
			return true, nil
		}
		if photos.IsRateLimited(err) {
			return false, fmt.Errorf("rate limited by remote: %w", err)
		}
		return false, fmt.Errorf("download of %s failed: %w", relPath, err)
	}
	defer body.Close()

	if err := e.writeFile(root, relPath, body, mtime); err != nil {
		return false, err
	}
	return false, nil
}

// writeFile streams r into the destination, creating parents as
// needed. A partial file left by any failure is removed before the
// error is returned, so a later classification pass never mistakes it
// for a completed download.
func (e *Executor) writeFile(root, relPath string, r io.Reader, mtime time.Time) error {
	dest := filepath.Join(root, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", relPath, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", relPath, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close %s: %w", relPath, err)
	}

	if !mtime.IsZero() {
		if err := os.Chtimes(dest, mtime, mtime); err != nil {
			e.logger.WarnWithFields("failed to set file mtime", map[string]interface{}{
				"path":  relPath,
				"error": err.Error(),
			})
		}
	}

	return nil
}

func (e *Executor) publish(line string) {
	if e.reporter != nil {
		e.reporter.Publish(line)
	}
}
