package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// MediaItemRepository handles database operations for MediaItem records
type MediaItemRepository struct {
	DB *gorm.DB
}

// NewMediaItemRepository creates a new instance of MediaItemRepository
func NewMediaItemRepository(db *gorm.DB) *MediaItemRepository {
	return &MediaItemRepository{DB: db}
}

// Create inserts a new media item record
func (r *MediaItemRepository) Create(item *MediaItem) error {
	if err := r.DB.Create(item).Error; err != nil {
		return fmt.Errorf("failed to create media item %s: %w", item.RemoteID, err)
	}
	return nil
}

// GetByRemoteID returns the user's record for a remote item uid, or
// nil when the item has never been seen
func (r *MediaItemRepository) GetByRemoteID(userID uint, remoteID string) (*MediaItem, error) {
	var item MediaItem
	err := r.DB.Where("user_id = ? AND remote_id = ?", userID, remoteID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get media item %s: %w", remoteID, err)
	}
	return &item, nil
}

// FilenameClaimed reports whether any of the user's records already
// holds the given relative path
func (r *MediaItemRepository) FilenameClaimed(userID uint, filename string) (bool, error) {
	var count int64
	err := r.DB.Model(&MediaItem{}).
		Where("user_id = ? AND filename = ?", userID, filename).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check filename %s: %w", filename, err)
	}
	return count > 0, nil
}

// AssignPaths sets the item's local path and thumbnail path. Used when
// a previously not-ready item becomes downloadable.
func (r *MediaItemRepository) AssignPaths(itemID uint, filename, thumbnail string) error {
	result := r.DB.Model(&MediaItem{}).Where("id = ?", itemID).Updates(map[string]interface{}{
		"filename":  filename,
		"thumbnail": thumbnail,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to assign paths for item %d: %w", itemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetThumbnail fills in a missing thumbnail path on an existing record
func (r *MediaItemRepository) SetThumbnail(itemID uint, thumbnail string) error {
	result := r.DB.Model(&MediaItem{}).Where("id = ?", itemID).Update("thumbnail", thumbnail)
	if result.Error != nil {
		return fmt.Errorf("failed to set thumbnail for item %d: %w", itemID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Touch updates the record's last-seen cycle
func (r *MediaItemRepository) Touch(itemID uint, cycle int64) error {
	result := r.DB.Model(&MediaItem{}).Where("id = ?", itemID).Update("last_seen", cycle)
	if result.Error != nil {
		return fmt.Errorf("failed to touch item %d: %w", itemID, result.Error)
	}
	return nil
}

// List returns a page of the user's media items, newest creation first
func (r *MediaItemRepository) List(userID uint, limit, offset int) ([]MediaItem, error) {
	var items []MediaItem
	err := r.DB.Where("user_id = ?", userID).
		Order("creation_time DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media items: %w", err)
	}
	return items, nil
}

// Count returns the user's total media item count
func (r *MediaItemRepository) Count(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&MediaItem{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count media items: %w", err)
	}
	return count, nil
}
