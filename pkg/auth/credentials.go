package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrCredentialsNotFound is returned when no credentials are stored
	// for the requested account
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrInvalidCredentials is returned when credentials are malformed
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Credentials is the OAuth credential bundle for one library account.
// The field layout mirrors what the authorization flow hands out; this
// package only stores and serves it, it never mints tokens.
type Credentials struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	LastModified time.Time `json:"last_modified"`
}

// Token returns the bearer token for API requests. Implements the API
// client's TokenSource.
func (c *Credentials) Token() (string, error) {
	if c == nil || c.AccessToken == "" {
		return "", ErrCredentialsNotFound
	}
	return c.AccessToken, nil
}

// Store is the interface for persisting credentials per account
type Store interface {
	// Store saves credentials for a given account
	Store(email string, creds *Credentials) error

	// Retrieve gets credentials for a specific account
	Retrieve(email string) (*Credentials, error)

	// Delete removes credentials for a specific account
	Delete(email string) error

	// Exists checks if credentials exist for an account
	Exists(email string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []Store
}

// NewManager creates a new credential manager. The system keychain is
// tried first; an encrypted file under the config directory is the
// fallback when no keychain is available.
func NewManager() (*Manager, error) {
	var stores []Store

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err == nil {
		stores = append(stores, encryptedStore)
	}

	if len(stores) == 0 {
		return nil, errors.New("no credential storage backend available")
	}

	return &Manager{stores: stores}, nil
}

// Store saves credentials in the first available backend
func (m *Manager) Store(email string, creds *Credentials) error {
	if creds == nil || email == "" {
		return ErrInvalidCredentials
	}
	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(email, creds); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("all credential stores failed: %w", lastErr)
}

// Retrieve returns credentials from the first backend that has them
func (m *Manager) Retrieve(email string) (*Credentials, error) {
	for _, store := range m.stores {
		creds, err := store.Retrieve(email)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, ErrCredentialsNotFound) {
			return nil, err
		}
	}
	return nil, ErrCredentialsNotFound
}

// Delete removes credentials from every backend holding them
func (m *Manager) Delete(email string) error {
	found := false
	for _, store := range m.stores {
		if !store.Exists(email) {
			continue
		}
		if err := store.Delete(email); err != nil {
			return err
		}
		found = true
	}
	if !found {
		return ErrCredentialsNotFound
	}
	return nil
}

// getConfigDir returns the directory for on-disk credential storage
func getConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "photoback"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "photoback"), nil
}
