package store

import "time"

// User is one library account known to this installation. UID is a
// stable random identifier used in storage paths so renaming the
// account email never moves files on disk.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	UID       string `gorm:"uniqueIndex;size:32"`
	Email     string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaItem is one remote photo or video tracked for a user. Filename
// and Thumbnail stay nil until the item is ready and a local path has
// been assigned; once set they are never reassigned. LastSeen is the
// crawl cycle that most recently listed the item.
type MediaItem struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"uniqueIndex:idx_media_user_remote;index"`
	RemoteID     string `gorm:"uniqueIndex:idx_media_user_remote;size:128"`
	MimeType     string
	ProductURL   string
	CreationTime string
	Filename     *string `gorm:"index"`
	Thumbnail    *string
	Width        *int
	Height       *int
	LastSeen     int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Album is one remote album for a user, refreshed on every listing
type Album struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           uint   `gorm:"uniqueIndex:idx_album_user_remote;index"`
	RemoteID         string `gorm:"uniqueIndex:idx_album_user_remote;size:128"`
	Title            string
	ProductURL       string
	CoverMediaItemID string
	LastSeen         int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AlbumMembership records that a media item belongs to an album. The
// pair is unique per user; re-inserting an existing pair only bumps
// LastSeen.
type AlbumMembership struct {
	ID                uint   `gorm:"primaryKey"`
	UserID            uint   `gorm:"uniqueIndex:idx_membership;index"`
	AlbumRemoteID     string `gorm:"uniqueIndex:idx_membership;size:128"`
	MediaItemRemoteID string `gorm:"uniqueIndex:idx_membership;size:128"`
	LastSeen          int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Option is one durable key/value entry scoped to a user. Value holds
// JSON; deleting the row is how a null write is represented.
type Option struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_option_user_key;index"`
	Key       string `gorm:"uniqueIndex:idx_option_user_key;size:64"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
