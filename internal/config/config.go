// Package config provides configuration loading and management for the leaderboard server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gdgc-dbit/leaderboard-sync/internal/telemetry"
)

// EnvPrefix is the prefix for environment variables read through viper
const EnvPrefix = "LEADERBOARD"

const (
	// SourceTypeFile reads the snapshot from a local file
	SourceTypeFile = "file"

	// SourceTypeHTTP downloads the snapshot from a URL
	SourceTypeHTTP = "http"

	// SourceTypeS3 reads the snapshot from an S3 compatible bucket (AWS S3, Cloudflare R2, MinIO)
	SourceTypeS3 = "s3"
)

const (
	// SourceFormatAuto detects the format from the file extension or content
	SourceFormatAuto = "auto"

	// SourceFormatXLSX is an Excel workbook
	SourceFormatXLSX = "xlsx"

	// SourceFormatCSV is comma separated text with a header row
	SourceFormatCSV = "csv"
)

// StorageType selects the persisted state backend
type StorageType string

const (
	// StorageTypeFile keeps records in a single JSON document
	StorageTypeFile StorageType = "file"

	// StorageTypeSQLite keeps records in a SQLite database
	StorageTypeSQLite StorageType = "sqlite"

	// StorageTypeDatabase keeps records in PostgreSQL
	StorageTypeDatabase StorageType = "database"
)

const (
	// ViolationCheckExemptLocked skips locked participants in the ordering check
	ViolationCheckExemptLocked = "exemptLocked"

	// ViolationCheckStrict checks every pair of positions
	ViolationCheckStrict = "strict"
)

const (
	defaultDataDir        = "./data"
	defaultRecordsFile    = "leaderboard.json"
	defaultSQLiteFile     = "leaderboard.db"
	defaultSSLMode        = "require"
	databasePasswordEnv   = EnvPrefix + "_DATABASE_PASSWORD"
	defaultRunTimeout     = 2 * time.Minute
	defaultAdminTokenEnv  = EnvPrefix + "_ADMIN_TOKEN"
	defaultS3Region       = "auto"
	defaultMaxSnapshotMiB = 32
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Source describes where the spreadsheet snapshot comes from
	Source SourceConfig `yaml:"source"`

	// Storage selects the persisted state backend, file by default
	Storage *StorageConfig `yaml:"storage,omitempty"`

	// Database is required when storage.type is database
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// SyncPolicy controls periodic reconciliation; without it only the
	// initial run and admin triggers reconcile
	SyncPolicy *SyncPolicyConfig `yaml:"syncPolicy,omitempty"`

	Reconcile *ReconcileConfig  `yaml:"reconcile,omitempty"`
	Admin     *AdminConfig      `yaml:"admin,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourceConfig defines the snapshot source
type SourceConfig struct {
	// Type is one of file, http or s3
	Type string `yaml:"type"`

	// Format is auto, xlsx or csv
	Format string `yaml:"format,omitempty"`

	// Sheet is the workbook sheet to read; the first sheet when empty
	Sheet string `yaml:"sheet,omitempty"`

	// MaxSizeMiB bounds the downloaded snapshot size
	MaxSizeMiB int64 `yaml:"maxSizeMiB,omitempty"`

	File *FileConfig `yaml:"file,omitempty"`
	HTTP *HTTPConfig `yaml:"http,omitempty"`
	S3   *S3Config   `yaml:"s3,omitempty"`
}

// FileConfig defines local file source configuration
type FileConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig defines URL source configuration
type HTTPConfig struct {
	URL string `yaml:"url"`

	// Timeout for the whole download, e.g. "30s"
	Timeout string `yaml:"timeout,omitempty"`
}

// S3Config defines object storage source configuration
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`

	// Region defaults to "auto", which is what R2 expects
	Region string `yaml:"region,omitempty"`

	// Endpoint overrides the service endpoint, e.g. https://<account>.r2.cloudflarestorage.com
	Endpoint string `yaml:"endpoint,omitempty"`

	// UsePathStyle is needed by most S3 compatible services
	UsePathStyle bool `yaml:"usePathStyle,omitempty"`

	// AccessKeyID and SecretAccessKey are optional; the default AWS credential
	// chain is used when they are empty
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
}

// StorageConfig defines where persisted leaderboard records live
type StorageConfig struct {
	Type StorageType `yaml:"type"`

	// DataDir holds the file store, the SQLite database, lock files and status.json
	DataDir string `yaml:"dataDir,omitempty"`

	// Path overrides the file or SQLite location inside DataDir
	Path string `yaml:"path,omitempty"`
}

// SyncPolicyConfig defines synchronization settings
type SyncPolicyConfig struct {
	// Interval between periodic runs, e.g. "15m"
	Interval string `yaml:"interval"`

	// OnlyOnChange skips periodic runs when the snapshot hash is unchanged
	OnlyOnChange bool `yaml:"onlyOnChange,omitempty"`

	// RunTimeout bounds one reconciliation run
	RunTimeout string `yaml:"runTimeout,omitempty"`
}

// ReconcileConfig tunes the ranking engine
type ReconcileConfig struct {
	// ViolationCheck is exemptLocked (default) or strict
	ViolationCheck string `yaml:"violationCheck,omitempty"`
}

// AdminConfig protects the admin trigger endpoint
type AdminConfig struct {
	// TokenFile is read first; then the LEADERBOARD_ADMIN_TOKEN environment variable
	TokenFile string `yaml:"tokenFile,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the minimum number of idle connections kept in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from LEADERBOARD_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(databasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", databasePasswordEnv,
	)
}

// GetSSLMode returns the configured SSL mode, "require" by default
func (d *DatabaseConfig) GetSSLMode() string {
	if d.SSLMode == "" {
		return defaultSSLMode
	}
	return d.SSLMode
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		d.GetSSLMode(),
	), nil
}

// GetConnMaxLifetime parses ConnMaxLifetime, returning zero when unset
func (d *DatabaseConfig) GetConnMaxLifetime() (time.Duration, error) {
	if d.ConnMaxLifetime == "" {
		return 0, nil
	}
	return time.ParseDuration(d.ConnMaxLifetime)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetStorageType returns the storage backend, file by default
func (c *Config) GetStorageType() StorageType {
	if c.Storage == nil || c.Storage.Type == "" {
		return StorageTypeFile
	}
	return c.Storage.Type
}

// GetDataDir returns the directory for local state, "./data" by default
func (c *Config) GetDataDir() string {
	if c.Storage == nil || c.Storage.DataDir == "" {
		return defaultDataDir
	}
	return c.Storage.DataDir
}

// GetStoragePath returns the file or SQLite database path for local backends
func (c *Config) GetStoragePath() string {
	if c.Storage != nil && c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.GetStorageType() == StorageTypeSQLite {
		return filepath.Join(c.GetDataDir(), defaultSQLiteFile)
	}
	return filepath.Join(c.GetDataDir(), defaultRecordsFile)
}

// GetStatusPath returns the path of the run status file
func (c *Config) GetStatusPath() string {
	return filepath.Join(c.GetDataDir(), "status.json")
}

// GetSyncInterval returns the periodic interval, zero when periodic runs are disabled
func (c *Config) GetSyncInterval() time.Duration {
	if c.SyncPolicy == nil || c.SyncPolicy.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.SyncPolicy.Interval)
	if err != nil {
		return 0
	}
	return d
}

// GetRunTimeout returns the timeout applied to one reconciliation run
func (c *Config) GetRunTimeout() time.Duration {
	if c.SyncPolicy == nil || c.SyncPolicy.RunTimeout == "" {
		return defaultRunTimeout
	}
	d, err := time.ParseDuration(c.SyncPolicy.RunTimeout)
	if err != nil {
		return defaultRunTimeout
	}
	return d
}

// GetViolationCheck returns the violation policy name
func (c *Config) GetViolationCheck() string {
	if c.Reconcile == nil || c.Reconcile.ViolationCheck == "" {
		return ViolationCheckExemptLocked
	}
	return c.Reconcile.ViolationCheck
}

// GetAdminToken returns the bearer token guarding the admin trigger.
// An empty token disables the HTTP admin trigger.
func (c *Config) GetAdminToken() (string, error) {
	if c.Admin != nil && c.Admin.TokenFile != "" {
		data, err := os.ReadFile(filepath.Clean(c.Admin.TokenFile))
		if err != nil {
			return "", fmt.Errorf("failed to read admin token from file %s: %w", c.Admin.TokenFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return os.Getenv(defaultAdminTokenEnv), nil
}

// GetFormat returns the snapshot format, auto by default
func (s *SourceConfig) GetFormat() string {
	if s.Format == "" {
		return SourceFormatAuto
	}
	return s.Format
}

// GetMaxSize returns the maximum snapshot size in bytes
func (s *SourceConfig) GetMaxSize() int64 {
	mib := s.MaxSizeMiB
	if mib <= 0 {
		mib = defaultMaxSnapshotMiB
	}
	return mib << 20
}

// GetLocation returns a human readable location of the snapshot
func (s *SourceConfig) GetLocation() string {
	switch {
	case s.File != nil:
		return s.File.Path
	case s.HTTP != nil:
		return s.HTTP.URL
	case s.S3 != nil:
		return fmt.Sprintf("s3://%s/%s", s.S3.Bucket, s.S3.Key)
	default:
		return ""
	}
}

// GetRegion returns the configured region, "auto" by default
func (s *S3Config) GetRegion() string {
	if s.Region == "" {
		return defaultS3Region
	}
	return s.Region
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateSource(&c.Source); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := validateSyncPolicy(c.SyncPolicy); err != nil {
		return err
	}

	switch c.GetViolationCheck() {
	case ViolationCheckExemptLocked, ViolationCheckStrict:
	default:
		return fmt.Errorf("reconcile.violationCheck must be %s or %s, got %s",
			ViolationCheckExemptLocked, ViolationCheckStrict, c.GetViolationCheck())
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// validateSource ensures exactly one source is configured and matches the type
func validateSource(src *SourceConfig) error {
	prefix := "source"

	configCount := 0
	if src.File != nil {
		configCount++
	}
	if src.HTTP != nil {
		configCount++
	}
	if src.S3 != nil {
		configCount++
	}
	if configCount == 0 {
		return fmt.Errorf("%s: one of file, http, or s3 configuration must be specified", prefix)
	}
	if configCount > 1 {
		return fmt.Errorf("%s: only one of file, http, or s3 configuration may be specified", prefix)
	}

	switch src.GetFormat() {
	case SourceFormatAuto, SourceFormatXLSX, SourceFormatCSV:
	default:
		return fmt.Errorf("%s: format must be one of auto, xlsx, csv, got %s", prefix, src.Format)
	}

	switch src.Type {
	case SourceTypeFile:
		if src.File == nil || src.File.Path == "" {
			return fmt.Errorf("%s: file.path is required", prefix)
		}
	case SourceTypeHTTP:
		if src.HTTP == nil || src.HTTP.URL == "" {
			return fmt.Errorf("%s: http.url is required", prefix)
		}
		u, err := url.Parse(src.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%s: http.url must be an http(s) URL", prefix)
		}
		if src.HTTP.Timeout != "" {
			if _, err := time.ParseDuration(src.HTTP.Timeout); err != nil {
				return fmt.Errorf("%s: http.timeout must be a valid duration: %w", prefix, err)
			}
		}
	case SourceTypeS3:
		if src.S3 == nil || src.S3.Bucket == "" || src.S3.Key == "" {
			return fmt.Errorf("%s: s3.bucket and s3.key are required", prefix)
		}
		if (src.S3.AccessKeyID == "") != (src.S3.SecretAccessKey == "") {
			return fmt.Errorf("%s: s3.accessKeyId and s3.secretAccessKey must be set together", prefix)
		}
	case "":
		return fmt.Errorf("%s: type is required", prefix)
	default:
		return fmt.Errorf("%s: unsupported type %s", prefix, src.Type)
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeFile, StorageTypeSQLite:
		return nil
	case StorageTypeDatabase:
		if c.Database == nil {
			return fmt.Errorf("storage: database configuration is required for storage type %s", StorageTypeDatabase)
		}
		if c.Database.Host == "" || c.Database.Port == 0 || c.Database.User == "" || c.Database.Database == "" {
			return fmt.Errorf("database: host, port, user and database are required")
		}
		if _, err := c.Database.GetConnMaxLifetime(); err != nil {
			return fmt.Errorf("database: invalid connMaxLifetime: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("storage: unknown type %s", c.GetStorageType())
	}
}

// validateSyncPolicy validates the optional sync policy configuration
func validateSyncPolicy(policy *SyncPolicyConfig) error {
	if policy == nil {
		return nil
	}

	if policy.Interval != "" {
		d, err := time.ParseDuration(policy.Interval)
		if err != nil {
			return fmt.Errorf("syncPolicy.interval must be a valid duration (e.g., '30m', '1h'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("syncPolicy.interval must be positive")
		}
	}

	if policy.RunTimeout != "" {
		if _, err := time.ParseDuration(policy.RunTimeout); err != nil {
			return fmt.Errorf("syncPolicy.runTimeout must be a valid duration: %w", err)
		}
	}

	return nil
}
