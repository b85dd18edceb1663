package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the backup service
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Account being archived
	Account AccountConfig `yaml:"account" json:"account"`

	// Local archive layout
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Remote library API settings
	API APIConfig `yaml:"api" json:"api"`

	// Crawl engine settings
	Backup BackupConfig `yaml:"backup" json:"backup"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// AccountConfig identifies the library owner
type AccountConfig struct {
	Email string `yaml:"email" json:"email"`
}

// StorageConfig holds archive directory and database configuration
type StorageConfig struct {
	Root         string `yaml:"root" json:"root"`
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// APIConfig holds remote library API configuration
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// BackupConfig holds crawl engine configuration
type BackupConfig struct {
	PageSize            int           `yaml:"page_size" json:"page_size"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	ThumbnailWidth      int           `yaml:"thumbnail_width" json:"thumbnail_width"`
	ThumbnailHeight     int           `yaml:"thumbnail_height" json:"thumbnail_height"`
	LeaseTTL            time.Duration `yaml:"lease_ttl" json:"lease_ttl"`
	PollInterval        time.Duration `yaml:"poll_interval" json:"poll_interval"`
	WaitInterval        time.Duration `yaml:"wait_interval" json:"wait_interval"`
	CycleCooldown       time.Duration `yaml:"cycle_cooldown" json:"cycle_cooldown"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
		Storage: StorageConfig{
			Root:         "./archive",
			DatabasePath: "./archive/db.sqlite3",
		},
		API: APIConfig{
			BaseURL:           "https://photoslibrary.googleapis.com",
			ConnectTimeout:    5 * time.Second,
			RequestsPerMinute: 60,
		},
		Backup: BackupConfig{
			PageSize:            10,
			ConcurrentDownloads: 5,
			ThumbnailWidth:      256,
			ThumbnailHeight:     256,
			LeaseTTL:            10 * time.Second,
			PollInterval:        time.Second,
			WaitInterval:        3 * time.Second,
			CycleCooldown:       0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if addr := os.Getenv("PHOTOBACK_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if email := os.Getenv("PHOTOBACK_ACCOUNT_EMAIL"); email != "" {
		c.Account.Email = email
	}
	if root := os.Getenv("PHOTOBACK_STORAGE_ROOT"); root != "" {
		c.Storage.Root = root
	}
	if dbPath := os.Getenv("PHOTOBACK_DATABASE_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if baseURL := os.Getenv("PHOTOBACK_API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if pageSize := os.Getenv("PHOTOBACK_PAGE_SIZE"); pageSize != "" {
		var val int
		fmt.Sscanf(pageSize, "%d", &val)
		if val > 0 {
			c.Backup.PageSize = val
		}
	}
	if concurrent := os.Getenv("PHOTOBACK_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Backup.ConcurrentDownloads = val
		}
	}
	if rpm := os.Getenv("PHOTOBACK_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.API.RequestsPerMinute = val
		}
	}
	if logLevel := os.Getenv("PHOTOBACK_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".photoback.yaml",
		".photoback.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "photoback", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "photoback", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".photoback.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Storage.Root == "" {
		errs = append(errs, errors.New("storage root is required"))
	}
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	}

	if c.Backup.PageSize <= 0 || c.Backup.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}
	if c.Backup.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Backup.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Backup.ThumbnailWidth <= 0 || c.Backup.ThumbnailHeight <= 0 {
		errs = append(errs, errors.New("thumbnail dimensions must be positive"))
	}
	if c.Backup.LeaseTTL <= 0 {
		errs = append(errs, errors.New("lease TTL must be positive"))
	}
	if c.Backup.PollInterval <= 0 || c.Backup.PollInterval >= c.Backup.LeaseTTL {
		errs = append(errs, errors.New("poll interval must be positive and shorter than the lease TTL"))
	}
	if c.Backup.WaitInterval <= 0 {
		errs = append(errs, errors.New("wait interval must be positive"))
	}
	if c.Backup.CycleCooldown < 0 {
		errs = append(errs, errors.New("cycle cooldown cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".photoback.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
