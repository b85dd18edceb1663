package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// AlbumRepository handles database operations for Album records and
// album membership pairs
type AlbumRepository struct {
	DB *gorm.DB
}

// NewAlbumRepository creates a new instance of AlbumRepository
func NewAlbumRepository(db *gorm.DB) *AlbumRepository {
	return &AlbumRepository{DB: db}
}

// Upsert creates or refreshes the user's record for a remote album and
// reports whether the record is new
func (r *AlbumRepository) Upsert(userID uint, remoteID, title, productURL, coverMediaItemID string, cycle int64) (*Album, bool, error) {
	var album Album
	err := r.DB.Where("user_id = ? AND remote_id = ?", userID, remoteID).First(&album).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"title":               title,
			"product_url":         productURL,
			"cover_media_item_id": coverMediaItemID,
			"last_seen":           cycle,
		}
		if err := r.DB.Model(&Album{}).Where("id = ?", album.ID).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update album %s: %w", remoteID, err)
		}
		album.Title = title
		album.ProductURL = productURL
		album.CoverMediaItemID = coverMediaItemID
		album.LastSeen = cycle
		return &album, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		album = Album{
			UserID:           userID,
			RemoteID:         remoteID,
			Title:            title,
			ProductURL:       productURL,
			CoverMediaItemID: coverMediaItemID,
			LastSeen:         cycle,
		}
		if err := r.DB.Create(&album).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create album %s: %w", remoteID, err)
		}
		return &album, true, nil
	default:
		return nil, false, fmt.Errorf("failed to look up album %s: %w", remoteID, err)
	}
}

// GetByInternalID returns the album row with the given internal id, or
// nil when it no longer exists
func (r *AlbumRepository) GetByInternalID(userID, id uint) (*Album, error) {
	var album Album
	err := r.DB.Where("user_id = ? AND id = ?", userID, id).First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get album %d: %w", id, err)
	}
	return &album, nil
}

// GetByRemoteID returns the user's record for a remote album uid, or nil
func (r *AlbumRepository) GetByRemoteID(userID uint, remoteID string) (*Album, error) {
	var album Album
	err := r.DB.Where("user_id = ? AND remote_id = ?", userID, remoteID).First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get album %s: %w", remoteID, err)
	}
	return &album, nil
}

// First returns the user's album with the lowest internal id, or nil
// when the user has no albums
func (r *AlbumRepository) First(userID uint) (*Album, error) {
	var album Album
	err := r.DB.Where("user_id = ?", userID).Order("id ASC").First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first album: %w", err)
	}
	return &album, nil
}

// NextAfter returns the user's album with the smallest internal id
// strictly greater than id, or nil when none remain
func (r *AlbumRepository) NextAfter(userID, id uint) (*Album, error) {
	var album Album
	err := r.DB.Where("user_id = ? AND id > ?", userID, id).Order("id ASC").First(&album).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get album after %d: %w", id, err)
	}
	return &album, nil
}

// List returns a page of the user's albums ordered by title
func (r *AlbumRepository) List(userID uint, limit, offset int) ([]Album, error) {
	var albums []Album
	err := r.DB.Where("user_id = ?", userID).
		Order("title ASC").
		Limit(limit).Offset(offset).
		Find(&albums).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	return albums, nil
}

// Count returns the user's total album count
func (r *AlbumRepository) Count(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&Album{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}

// EnsureMembership records that a media item belongs to an album.
// Idempotent: an existing pair only has its last-seen cycle bumped.
func (r *AlbumRepository) EnsureMembership(userID uint, albumRemoteID, itemRemoteID string, cycle int64) error {
	var membership AlbumMembership
	err := r.DB.Where(
		"user_id = ? AND album_remote_id = ? AND media_item_remote_id = ?",
		userID, albumRemoteID, itemRemoteID,
	).First(&membership).Error
	switch {
	case err == nil:
		if membership.LastSeen == cycle {
			return nil
		}
		result := r.DB.Model(&AlbumMembership{}).Where("id = ?", membership.ID).Update("last_seen", cycle)
		if result.Error != nil {
			return fmt.Errorf("failed to touch membership: %w", result.Error)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		membership = AlbumMembership{
			UserID:            userID,
			AlbumRemoteID:     albumRemoteID,
			MediaItemRemoteID: itemRemoteID,
			LastSeen:          cycle,
		}
		if err := r.DB.Create(&membership).Error; err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to look up membership: %w", err)
	}
}

// ListAlbumItems returns a page of the media items belonging to an
// album, newest creation first
func (r *AlbumRepository) ListAlbumItems(userID uint, albumRemoteID string, limit, offset int) ([]MediaItem, error) {
	var items []MediaItem
	err := r.DB.
		Joins("JOIN album_memberships ON album_memberships.media_item_remote_id = media_items.remote_id AND album_memberships.user_id = media_items.user_id").
		Where("media_items.user_id = ? AND album_memberships.album_remote_id = ?", userID, albumRemoteID).
		Order("media_items.creation_time DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list album items: %w", err)
	}
	return items, nil
}
