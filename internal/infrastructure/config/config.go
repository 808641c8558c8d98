package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends selectable through store.backend.
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMongoDB   = "mongodb"
	BackendMemory    = "memory"
)

// envPrefix is prepended to every environment override.
const envPrefix = "SHODAIEV_"

// Config is the root configuration structure for the ShodaiEV site service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Firestore FirestoreConfig `yaml:"firestore"`
	MongoDB   MongoDBConfig   `yaml:"mongodb"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	Upload    UploadConfig    `yaml:"upload"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Name string `yaml:"name"`
	// URL is the public origin used for absolute links in the sitemap.
	URL string `yaml:"url"`
}

// StoreConfig selects and tunes the site-config document store.
type StoreConfig struct {
	Backend    string          `yaml:"backend"`
	Timeout    int             `yaml:"timeout"`      // seconds per backend call
	CacheTTLMS int             `yaml:"cache_ttl_ms"` // 0 = default, negative = disabled
	File       FileStoreConfig `yaml:"file"`
}

// FileStoreConfig contains settings for the JSON file backend.
type FileStoreConfig struct {
	Path string `yaml:"path"`
	// Watch invalidates the read cache when the file is edited outside the service.
	Watch bool `yaml:"watch"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// FirestoreConfig contains Cloud Firestore backend settings.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	DatabaseID      string `yaml:"database_id"`
	Collection      string `yaml:"collection"`
	DocumentID      string `yaml:"document_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// MongoDBConfig contains MongoDB backend settings.
type MongoDBConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	Collection     string `yaml:"collection"`
	DocumentID     string `yaml:"document_id"`
	ConnectTimeout int    `yaml:"connect_timeout"` // seconds
}

// MQTTConfig contains MQTT broker connection settings.
// When enabled, every site-config write is announced on the broker.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	TLS          TLSConfig        `yaml:"tls"`
	Timeouts     APITimeoutConfig `yaml:"timeouts"`
	CORS         CORSConfig       `yaml:"cors"`
	MaxBodyBytes int64            `yaml:"max_body_bytes"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// UploadConfig contains image upload settings.
type UploadConfig struct {
	Dir          string `yaml:"dir"`
	PublicPrefix string `yaml:"public_prefix"`
	MaxBytes     int64  `yaml:"max_bytes"`
	Concurrency  int    `yaml:"concurrency"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains admin access settings.
type SecurityConfig struct {
	Admin   AdminConfig   `yaml:"admin"`
	Session SessionConfig `yaml:"session"`
}

// AdminConfig holds the single admin credential pair.
// PasswordHash, an Argon2id PHC string, takes precedence over Password.
type AdminConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// SessionConfig contains admin session token settings.
type SessionConfig struct {
	Secret         string `yaml:"secret"`
	TTL            int    `yaml:"ttl"` // minutes
	SecureCookie   bool   `yaml:"secure_cookie"`
	RevocationSize int    `yaml:"revocation_size"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults); a missing file is not an error
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SHODAIEV_SECTION_KEY
// For example: SHODAIEV_STORE_BACKEND, SHODAIEV_API_PORT.
// The variable names of the legacy Node deployment (ADMIN_USER, ADMIN_PASS,
// MONGODB_URI, MONGODB_DB, NEXT_PUBLIC_SITE_URL) are honoured as fallbacks.
//
// Parameters:
//   - path: Path to the YAML configuration file (may be empty)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults plus environment only.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name: "ShodaiEV",
			URL:  "https://shodaiev.com",
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Timeout: 5,
			File: FileStoreConfig{
				Path:  "./data/site-config.json",
				Watch: true,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/shodaiev.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Firestore: FirestoreConfig{
			DatabaseID: "(default)",
			Collection: "siteConfig",
			DocumentID: "main",
		},
		MongoDB: MongoDBConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "shodaievv",
			Collection:     "siteConfig",
			DocumentID:     "main",
			ConnectTimeout: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "shodaiev-site",
			},
			QoS:         1,
			TopicPrefix: "shodaiev",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  120,
			},
			MaxBodyBytes: 1 << 20,
		},
		Upload: UploadConfig{
			Dir:          "./public/uploads",
			PublicPrefix: "/uploads",
			MaxBytes:     10 << 20,
			Concurrency:  4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			Admin: AdminConfig{
				Username: "admin",
			},
			Session: SessionConfig{
				TTL:            480,
				RevocationSize: 1024,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	setStr := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	setStr(&cfg.Site.URL, envPrefix+"SITE_URL", "NEXT_PUBLIC_SITE_URL")

	setStr(&cfg.Store.Backend, envPrefix+"STORE_BACKEND")
	setStr(&cfg.Store.File.Path, envPrefix+"STORE_FILE_PATH")

	setStr(&cfg.Database.Path, envPrefix+"DATABASE_PATH")

	setStr(&cfg.Firestore.ProjectID, envPrefix+"FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	setStr(&cfg.Firestore.DatabaseID, envPrefix+"FIRESTORE_DATABASE_ID")
	setStr(&cfg.Firestore.CredentialsFile, envPrefix+"FIRESTORE_CREDENTIALS_FILE")

	setStr(&cfg.MongoDB.URI, envPrefix+"MONGODB_URI", "MONGODB_URI")
	setStr(&cfg.MongoDB.Database, envPrefix+"MONGODB_DATABASE", "MONGODB_DB")

	setStr(&cfg.MQTT.Broker.Host, envPrefix+"MQTT_HOST")
	setStr(&cfg.MQTT.Auth.Username, envPrefix+"MQTT_USERNAME")
	setStr(&cfg.MQTT.Auth.Password, envPrefix+"MQTT_PASSWORD")
	if v, err := strconv.ParseBool(os.Getenv(envPrefix + "MQTT_ENABLED")); err == nil {
		cfg.MQTT.Enabled = v
	}

	setStr(&cfg.API.Host, envPrefix+"API_HOST")
	if v, err := strconv.Atoi(os.Getenv(envPrefix + "API_PORT")); err == nil {
		cfg.API.Port = v
	}

	setStr(&cfg.Upload.Dir, envPrefix+"UPLOAD_DIR")

	setStr(&cfg.Logging.Level, envPrefix+"LOG_LEVEL")

	// Credentials should always come from the environment in production.
	setStr(&cfg.Security.Admin.Username, envPrefix+"ADMIN_USERNAME", "ADMIN_USER")
	setStr(&cfg.Security.Admin.Password, envPrefix+"ADMIN_PASSWORD", "ADMIN_PASS")
	setStr(&cfg.Security.Admin.PasswordHash, envPrefix+"ADMIN_PASSWORD_HASH")
	setStr(&cfg.Security.Session.Secret, envPrefix+"SESSION_SECRET")
	if v, err := strconv.ParseBool(os.Getenv(envPrefix + "SECURE_COOKIE")); err == nil {
		cfg.Security.Session.SecureCookie = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent checks
	var errs []string

	if c.Site.URL == "" {
		errs = append(errs, "site.url is required")
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.File.Path == "" {
			errs = append(errs, "store.file.path is required for the file backend")
		}
	case BackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			errs = append(errs, "firestore.project_id is required for the firestore backend")
		}
		if c.Firestore.Collection == "" || c.Firestore.DocumentID == "" {
			errs = append(errs, "firestore.collection and firestore.document_id are required")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			errs = append(errs, "mongodb.uri is required for the mongodb backend")
		}
		if c.MongoDB.Database == "" || c.MongoDB.Collection == "" {
			errs = append(errs, "mongodb.database and mongodb.collection are required")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("store.backend %q is not one of file, sqlite, firestore, mongodb, memory", c.Store.Backend))
	}
	if c.Store.Timeout < 1 {
		errs = append(errs, "store.timeout must be at least 1 second")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Upload.Dir == "" {
		errs = append(errs, "upload.dir is required")
	}
	if c.Upload.Concurrency < 1 {
		errs = append(errs, "upload.concurrency must be at least 1")
	}

	if c.Security.Admin.Username == "" {
		errs = append(errs, "security.admin.username is required")
	}
	if c.Security.Admin.Password == "" && c.Security.Admin.PasswordHash == "" {
		errs = append(errs, "security.admin.password or security.admin.password_hash is required (set SHODAIEV_ADMIN_PASSWORD)")
	}

	// Session tokens are HMAC-signed; a short secret makes them forgeable.
	const minSessionSecretLength = 32
	if c.Security.Session.Secret == "" {
		errs = append(errs, "security.session.secret is required (set SHODAIEV_SESSION_SECRET environment variable)")
	} else if len(c.Security.Session.Secret) < minSessionSecretLength {
		errs = append(errs, "security.session.secret must be at least 32 characters")
	}
	if c.Security.Session.TTL < 1 {
		errs = append(errs, "security.session.ttl must be at least 1 minute")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetStoreTimeout returns the per-call storage timeout.
func (c *Config) GetStoreTimeout() time.Duration {
	return time.Duration(c.Store.Timeout) * time.Second
}

// GetCacheTTL returns the store read-cache TTL. Zero selects the store default.
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Store.CacheTTLMS) * time.Millisecond
}

// GetSessionTTL returns the admin session lifetime.
func (c *Config) GetSessionTTL() time.Duration {
	return time.Duration(c.Security.Session.TTL) * time.Minute
}

// GetMongoConnectTimeout returns the MongoDB connect timeout.
func (c *Config) GetMongoConnectTimeout() time.Duration {
	return time.Duration(c.MongoDB.ConnectTimeout) * time.Second
}
