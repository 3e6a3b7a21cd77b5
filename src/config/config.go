// Package config loads the API configuration: built-in defaults, an optional
// YAML file with ${VAR} expansion, then environment overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "LOSTNFOUND_CONFIG"

// Config is the full API configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	AllowedOrigins string `yaml:"allowed_origins"`
	MaxUploadMB    int    `yaml:"max_upload_mb"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	// Driver is "mongo" or "memory".
	Driver         string        `yaml:"driver"`
	URI            string        `yaml:"uri"`
	Name           string        `yaml:"name"`
	ConnectTimeout time.Duration `yaml:"-"`

	ConnectTimeoutRaw string `yaml:"connect_timeout"`
}

// AuthConfig configures password hashing and tokens.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	BcryptCost int           `yaml:"bcrypt_cost"`
	TokenTTL   time.Duration `yaml:"-"`

	TokenTTLRaw string `yaml:"token_ttl"`
}

// StorageConfig selects the image store.
type StorageConfig struct {
	// Driver is "disk" or "s3".
	Driver string     `yaml:"driver"`
	Disk   DiskConfig `yaml:"disk"`
	S3     S3Config   `yaml:"s3"`
}

// DiskConfig configures the local image directory.
type DiskConfig struct {
	Dir string `yaml:"dir"`
}

// S3Config configures an S3 compatible image bucket.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

// NotificationsConfig sizes the notification workers.
type NotificationsConfig struct {
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"-"`

	BackoffRaw string `yaml:"backoff"`
}

// LoggingConfig sets the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the development configuration.
// The JWT secret is a placeholder and must be overridden outside development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":4000",
			AllowedOrigins: "*",
			MaxUploadMB:    5,
		},
		Database: DatabaseConfig{
			Driver:            "mongo",
			URI:               "mongodb://localhost:27017",
			Name:              "lostnfound",
			ConnectTimeoutRaw: "10s",
		},
		Auth: AuthConfig{
			JWTSecret:   "your-secret-key-change-in-production",
			Issuer:      "lostnfound",
			BcryptCost:  10,
			TokenTTLRaw: "7d",
		},
		Storage: StorageConfig{
			Driver: "disk",
			Disk:   DiskConfig{Dir: "./uploads"},
			S3:     S3Config{Region: "us-east-1"},
		},
		Notifications: NotificationsConfig{
			Workers:    2,
			QueueSize:  256,
			MaxRetries: 3,
			BackoffRaw: "200ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or "" when unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Database.URI = v
	}
	if v := os.Getenv("MONGODB_DB"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		cfg.Auth.TokenTTLRaw = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		cfg.Storage.Disk.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// normalize lowercases the enumerated settings so they match in any case.
func normalize(cfg *Config) {
	for _, v := range []*string{
		&cfg.Database.Driver,
		&cfg.Storage.Driver,
		&cfg.Logging.Level,
		&cfg.Logging.Format,
	} {
		*v = strings.ToLower(strings.TrimSpace(*v))
	}
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Database.ConnectTimeout, err = ParseDuration(cfg.Database.ConnectTimeoutRaw); err != nil {
		return fmt.Errorf("parsing connect_timeout %q: %w", cfg.Database.ConnectTimeoutRaw, err)
	}
	if cfg.Auth.TokenTTL, err = ParseDuration(cfg.Auth.TokenTTLRaw); err != nil {
		return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
	}
	if cfg.Notifications.Backoff, err = ParseDuration(cfg.Notifications.BackoffRaw); err != nil {
		return fmt.Errorf("parsing backoff %q: %w", cfg.Notifications.BackoffRaw, err)
	}

	return nil
}

// ParseDuration extends time.ParseDuration with a whole-day suffix, e.g. "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Addr, validation.Required),
		validation.Field(&c.Server.MaxUploadMB, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.Required, validation.In("mongo", "memory")),
		validation.Field(&c.Database.Name, validation.Required),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Database.Driver == "mongo" {
		if err := validation.Validate(c.Database.URI, validation.Required); err != nil {
			return fmt.Errorf("database: uri: %w", err)
		}
	}

	if err := validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.JWTSecret, validation.Required),
		validation.Field(&c.Auth.BcryptCost, validation.Min(4), validation.Max(31)),
		validation.Field(&c.Auth.TokenTTL, validation.Required),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if err := validation.Validate(c.Storage.Driver, validation.Required, validation.In("disk", "s3")); err != nil {
		return fmt.Errorf("storage: driver: %w", err)
	}
	switch c.Storage.Driver {
	case "disk":
		if err := validation.Validate(c.Storage.Disk.Dir, validation.Required); err != nil {
			return fmt.Errorf("storage: disk.dir: %w", err)
		}
	case "s3":
		s3 := &c.Storage.S3
		if err := validation.ValidateStruct(s3,
			validation.Field(&s3.Bucket, validation.Required),
			validation.Field(&s3.Region, validation.Required),
			validation.Field(&s3.Endpoint, is.URL),
			validation.Field(&s3.PublicURL, validation.Required, is.URL),
		); err != nil {
			return fmt.Errorf("storage: s3: %w", err)
		}
	}

	if err := validation.ValidateStruct(&c.Notifications,
		validation.Field(&c.Notifications.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.Notifications.QueueSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Notifications.MaxRetries, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}

	if err := validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Logging.Format, validation.In("text", "json")),
	); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}
