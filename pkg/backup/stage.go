package backup

import (
	"errors"
	"fmt"
)

// Stage option values as persisted in the option store
const (
	stageNameMediaItem = "mediaItem"
	stageNameAlbum     = "album"
	stageNameAlbumItem = "albumItem"
)

// ErrUnknownStage means the persisted stage value is not one this
// build understands. That is a configuration fault, not something the
// loop can recover from.
var ErrUnknownStage = errors.New("unknown backup stage")

// Stage is the crawl's traversal position. The album-item stage
// carries the internal id of the album being paged, so an invalid
// stage/argument pairing cannot be represented.
type Stage interface {
	name() string
}

// StageMediaItem pages through the user's whole library
type StageMediaItem struct{}

// StageAlbum pages through the user's album listing
type StageAlbum struct{}

// StageAlbumItem pages through the items of one album
type StageAlbumItem struct {
	AlbumID uint
}

func (StageMediaItem) name() string { return stageNameMediaItem }
func (StageAlbum) name() string     { return stageNameAlbum }
func (StageAlbumItem) name() string { return stageNameAlbumItem }

// parseStage reconstructs a Stage from its persisted parts
func parseStage(name string, albumID uint) (Stage, error) {
	switch name {
	case stageNameMediaItem:
		return StageMediaItem{}, nil
	case stageNameAlbum:
		return StageAlbum{}, nil
	case stageNameAlbumItem:
		return StageAlbumItem{AlbumID: albumID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
}
