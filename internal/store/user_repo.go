package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// UserRepository handles database operations for User entities
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// GetOrCreateByEmail returns the user for email, creating the record
// with a fresh storage UID on first sight
func (r *UserRepository) GetOrCreateByEmail(email string) (*User, error) {
	if email == "" {
		return nil, errors.New("email must not be empty")
	}

	var user User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user %s: %w", email, err)
	}

	uid, err := newUID()
	if err != nil {
		return nil, err
	}
	user = User{UID: uid, Email: email}
	if err := r.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	return &user, nil
}

// GetByID returns the user for the internal id, or nil when absent
func (r *UserRepository) GetByID(id uint) (*User, error) {
	var user User
	if err := r.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user %d: %w", id, err)
	}
	return &user, nil
}

func newUID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate uid: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
