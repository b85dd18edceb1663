package backup

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"photoback/internal/downloader"
	"photoback/internal/store"
	"photoback/pkg/logger"
	"photoback/pkg/photos"
)

// DownloadStatus is the outcome of classifying one remote item
type DownloadStatus int

const (
	// StatusNotReady marks a video the remote side is still processing;
	// no record is created and nothing is fetched
	StatusNotReady DownloadStatus = iota
	// StatusDownloadBoth means both the media bytes and the thumbnail
	// must be fetched
	StatusDownloadBoth
	// StatusThumbnailOnly means the media bytes are on disk and only
	// the thumbnail is missing
	StatusThumbnailOnly
	// StatusDone means nothing needs fetching
	StatusDone
)

// Classification pairs a status with the transfer job that carries it
// out. Job is meaningful only for the two downloading statuses.
type Classification struct {
	Status DownloadStatus
	Job    downloader.Job
}

// Classifier decides, for one remote item, what local action is needed
// and assigns collision-free storage paths. Classification is
// idempotent: re-running it over an unchanged library schedules no
// transfers.
type Classifier struct {
	items     *store.MediaItemRepository
	root      string
	thumbRoot string
	reporter  downloader.Reporter
	logger    logger.Logger
}

// NewClassifier creates a classifier over the given media item
// repository and storage roots
func NewClassifier(items *store.MediaItemRepository, root, thumbRoot string, reporter downloader.Reporter, log logger.Logger) *Classifier {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Classifier{
		items:     items,
		root:      root,
		thumbRoot: thumbRoot,
		reporter:  reporter,
		logger:    log,
	}
}

// Classify maps one remote item onto a local action, creating or
// updating its record as a side effect
func (c *Classifier) Classify(userID uint, cycle int64, item *photos.MediaItem) (Classification, error) {
	if item.IsVideo() && (item.MediaMetadata.Video == nil || item.MediaMetadata.Video.Status != photos.VideoReady) {
		c.logger.DebugWithFields("video not ready, skipping", map[string]interface{}{
			"remote_id": item.ID,
			"filename":  item.Filename,
		})
		c.publish(fmt.Sprintf("skipping %s: video still processing", item.Filename))
		return Classification{Status: StatusNotReady}, nil
	}

	record, err := c.items.GetByRemoteID(userID, item.ID)
	if err != nil {
		return Classification{}, err
	}

	switch {
	case record == nil:
		filename, err := c.allocatePath(userID, item)
		if err != nil {
			return Classification{}, err
		}
		thumbnail := thumbnailPath(filename, item.IsVideo())

		record = &store.MediaItem{
			UserID:       userID,
			RemoteID:     item.ID,
			MimeType:     item.MimeType,
			ProductURL:   item.ProductURL,
			CreationTime: item.MediaMetadata.CreationTime,
			Filename:     &filename,
			Thumbnail:    &thumbnail,
			Width:        parseDimension(item.MediaMetadata.Width),
			Height:       parseDimension(item.MediaMetadata.Height),
			LastSeen:     cycle,
		}
		if err := c.items.Create(record); err != nil {
			return Classification{}, err
		}
		c.publish(fmt.Sprintf("new %s %s", item.Type(), filename))
		return Classification{
			Status: StatusDownloadBoth,
			Job:    c.job(item, filename, thumbnail, true, true),
		}, nil

	case record.Filename == nil:
		// previously listed while not ready; assign its path now
		filename, err := c.allocatePath(userID, item)
		if err != nil {
			return Classification{}, err
		}
		thumbnail := thumbnailPath(filename, item.IsVideo())
		if err := c.items.AssignPaths(record.ID, filename, thumbnail); err != nil {
			return Classification{}, err
		}
		if err := c.items.Touch(record.ID, cycle); err != nil {
			return Classification{}, err
		}
		c.publish(fmt.Sprintf("now ready %s", filename))
		return Classification{
			Status: StatusDownloadBoth,
			Job:    c.job(item, filename, thumbnail, true, true),
		}, nil

	default:
		filename := *record.Filename
		var thumbnail string
		if record.Thumbnail != nil {
			thumbnail = *record.Thumbnail
		} else {
			thumbnail = thumbnailPath(filename, item.IsVideo())
			if err := c.items.SetThumbnail(record.ID, thumbnail); err != nil {
				return Classification{}, err
			}
		}
		if err := c.items.Touch(record.ID, cycle); err != nil {
			return Classification{}, err
		}

		haveBytes := fileExists(filepath.Join(c.root, filepath.FromSlash(filename)))
		haveThumb := fileExists(filepath.Join(c.thumbRoot, filepath.FromSlash(thumbnail)))

		switch {
		case !haveBytes:
			c.publish(fmt.Sprintf("missing on disk, re-downloading %s", filename))
			return Classification{
				Status: StatusDownloadBoth,
				Job:    c.job(item, filename, thumbnail, true, !haveThumb),
			}, nil
		case !haveThumb:
			return Classification{
				Status: StatusThumbnailOnly,
				Job:    c.job(item, filename, thumbnail, false, true),
			}, nil
		default:
			return Classification{Status: StatusDone}, nil
		}
	}
}

func (c *Classifier) job(item *photos.MediaItem, filename, thumbnail string, fetchItem, fetchThumb bool) downloader.Job {
	var created time.Time
	if t, err := time.Parse(time.RFC3339, item.MediaMetadata.CreationTime); err == nil {
		created = t
	}
	return downloader.Job{
		RemoteID:         item.ID,
		BaseURL:          item.BaseURL,
		IsVideo:          item.IsVideo(),
		Filename:         filename,
		Thumbnail:        thumbnail,
		CreationTime:     created,
		FetchItem:        fetchItem,
		FetchThumbnail:   fetchThumb,
		OriginalFilename: item.Filename,
	}
}

// allocatePath picks a relative destination path that no file on disk
// and no existing record claims. Suffixes -2, -3, ... go immediately
// before the extension, so two same-named items in the same month end
// up as name.ext and name-2.ext.
func (c *Classifier) allocatePath(userID uint, item *photos.MediaItem) (string, error) {
	folder := "other"
	if t, err := time.Parse(time.RFC3339, item.MediaMetadata.CreationTime); err == nil {
		folder = fmt.Sprintf("%04d/%02d", t.Year(), int(t.Month()))
	}

	base := item.Filename
	if base == "" {
		base = item.ID
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for n := 2; ; n++ {
		rel := path.Join(folder, candidate)
		taken, err := c.pathTaken(userID, rel)
		if err != nil {
			return "", err
		}
		if !taken {
			return rel, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
}

func (c *Classifier) pathTaken(userID uint, rel string) (bool, error) {
	if fileExists(filepath.Join(c.root, filepath.FromSlash(rel))) {
		return true, nil
	}
	return c.items.FilenameClaimed(userID, rel)
}

func (c *Classifier) publish(line string) {
	if c.reporter != nil {
		c.reporter.Publish(line)
	}
}

// thumbnailPath derives the thumbnail's relative path. Thumbnails are
// always static images, so a video's thumbnail gets a .jpg suffix on
// top of the media filename.
func thumbnailPath(filename string, isVideo bool) string {
	if isVideo {
		return filename + ".jpg"
	}
	return filename
}

func parseDimension(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
