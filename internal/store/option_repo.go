package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// OptionRepository handles the per-user key/value state used for crawl
// cursors and counters. Reads never fail: an absent or corrupt value
// behaves exactly like an absent one and leaves the caller's default
// in place.
type OptionRepository struct {
	DB *gorm.DB
}

// NewOptionRepository creates a new instance of OptionRepository
func NewOptionRepository(db *gorm.DB) *OptionRepository {
	return &OptionRepository{DB: db}
}

// Get unmarshals the stored value for key into out and reports whether
// a usable value was found. On false, out is left untouched.
func (r *OptionRepository) Get(userID uint, key string, out interface{}) bool {
	var opt Option
	err := r.DB.Where("user_id = ? AND key = ?", userID, key).First(&opt).Error
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(opt.Value), out); err != nil {
		return false
	}
	return true
}

// GetString returns the stored string for key, or def
func (r *OptionRepository) GetString(userID uint, key, def string) string {
	v := def
	r.Get(userID, key, &v)
	return v
}

// GetInt64 returns the stored integer for key, or def
func (r *OptionRepository) GetInt64(userID uint, key string, def int64) int64 {
	v := def
	r.Get(userID, key, &v)
	return v
}

// Set stores value under key as JSON. A nil value deletes the entry.
func (r *OptionRepository) Set(userID uint, key string, value interface{}) error {
	if value == nil {
		err := r.DB.Where("user_id = ? AND key = ?", userID, key).Delete(&Option{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete option %s: %w", key, err)
		}
		return nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode option %s: %w", key, err)
	}

	var opt Option
	err = r.DB.Where("user_id = ? AND key = ?", userID, key).First(&opt).Error
	switch {
	case err == nil:
		result := r.DB.Model(&Option{}).Where("id = ?", opt.ID).Update("value", string(encoded))
		if result.Error != nil {
			return fmt.Errorf("failed to update option %s: %w", key, result.Error)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		opt = Option{UserID: userID, Key: key, Value: string(encoded)}
		if err := r.DB.Create(&opt).Error; err != nil {
			return fmt.Errorf("failed to create option %s: %w", key, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to look up option %s: %w", key, err)
	}
}
