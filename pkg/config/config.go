// Package config loads the junitoor configuration file.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ethpandaops/junitoor/pkg/fsutil"
	"github.com/ethpandaops/junitoor/pkg/selection"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable override, e.g.
	// JUNITOOR_REPORT_OUTPUT.
	EnvPrefix = "JUNITOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultReportOutput is the default report destination.
	DefaultReportOutput = "junit.xml"

	// DefaultS3Region is used when no region is configured.
	DefaultS3Region = "us-east-1"

	// DefaultS3Prefix is the key prefix uploaded reports are stored under.
	DefaultS3Prefix = "reports"

	// DefaultUploadTimeout bounds a single report upload.
	DefaultUploadTimeout = 5 * time.Minute

	// DefaultDatabaseDriver is the default index database driver.
	DefaultDatabaseDriver = "sqlite"

	// DefaultSQLitePath is the default index database file.
	DefaultSQLitePath = "junitoor.db"

	// DefaultAPIListen is the default API listen address.
	DefaultAPIListen = ":9090"

	// DefaultRequestsPerMinute is the default per-IP rate limit.
	DefaultRequestsPerMinute = 120

	// DefaultShutdownTimeout bounds the API server shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the root configuration for junitoor.
type Config struct {
	Global    GlobalConfig       `yaml:"global" mapstructure:"global"`
	Report    ReportConfig       `yaml:"report" mapstructure:"report"`
	Selection selection.Criteria `yaml:"selection" mapstructure:"selection"`
	Upload    UploadConfig       `yaml:"upload" mapstructure:"upload"`
	Index     IndexConfig        `yaml:"index" mapstructure:"index"`
	API       APIConfig          `yaml:"api" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ReportConfig controls where the report is written.
type ReportConfig struct {
	Output string `yaml:"output" mapstructure:"output"`
	// Owner is an optional "UID:GID" applied to the report file and any
	// directories created for it.
	Owner string `yaml:"owner,omitempty" mapstructure:"owner"`
}

// UploadConfig contains report upload settings.
type UploadConfig struct {
	S3 S3UploadConfig `yaml:"s3" mapstructure:"s3"`
}

// S3UploadConfig configures uploading reports to S3-compatible storage.
type S3UploadConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string        `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string        `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string        `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string        `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string        `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool          `yaml:"force_path_style" mapstructure:"force_path_style"`
	StorageClass    string        `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string        `yaml:"acl,omitempty" mapstructure:"acl"`
	Timeout         time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// IndexConfig configures the report index database.
type IndexConfig struct {
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// APIConfig contains the report API server settings.
type APIConfig struct {
	Listen          string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins     []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit       RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
	Auth            APIAuthConfig   `yaml:"auth,omitempty" mapstructure:"auth"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout,omitempty" mapstructure:"shutdown_timeout"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// APIAuthConfig contains authentication settings.
type APIAuthConfig struct {
	Basic BasicAuthConfig `yaml:"basic,omitempty" mapstructure:"basic"`
}

// BasicAuthConfig configures username/password authentication.
type BasicAuthConfig struct {
	Enabled bool            `yaml:"enabled" mapstructure:"enabled"`
	Users   []BasicAuthUser `yaml:"users,omitempty" mapstructure:"users"`
}

// BasicAuthUser defines a basic auth user. Password holds a bcrypt hash.
type BasicAuthUser struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Load reads the configuration file at path and applies environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvs(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// bindEnvs registers every leaf key of t so environment variables apply
// even when the key is absent from the file.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := range t.NumField() {
		field := t.Field(i)

		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			continue
		}

		key := prefix + name

		if field.Type.Kind() == reflect.Struct {
			if err := bindEnvs(v, field.Type, key+"."); err != nil {
				return err
			}

			continue
		}

		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	return nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Report.Output == "" {
		c.Report.Output = DefaultReportOutput
	}

	if c.Upload.S3.Region == "" {
		c.Upload.S3.Region = DefaultS3Region
	}

	if c.Upload.S3.Prefix == "" {
		c.Upload.S3.Prefix = DefaultS3Prefix
	}

	if c.Upload.S3.Timeout == 0 {
		c.Upload.S3.Timeout = DefaultUploadTimeout
	}

	if c.Index.Database.Driver == "" {
		c.Index.Database.Driver = DefaultDatabaseDriver
	}

	if c.Index.Database.Driver == "sqlite" && c.Index.Database.SQLite.Path == "" {
		c.Index.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Index.Database.Postgres.Port == 0 {
		c.Index.Database.Postgres.Port = 5432
	}

	if c.API.Listen == "" {
		c.API.Listen = DefaultAPIListen
	}

	if c.API.RateLimit.RequestsPerMinute == 0 {
		c.API.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}

	if c.API.ShutdownTimeout == 0 {
		c.API.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks the settings used by report generation.
func (c *Config) Validate() error {
	if c.Report.Output == "" {
		return fmt.Errorf("report.output is required")
	}

	if _, err := fsutil.ParseOwner(c.Report.Owner); err != nil {
		return fmt.Errorf("report.owner: %w", err)
	}

	if c.Upload.S3.Enabled {
		if err := c.Upload.S3.Validate(); err != nil {
			return fmt.Errorf("upload.s3: %w", err)
		}
	}

	if c.Index.Enabled {
		if err := c.Index.Database.Validate(); err != nil {
			return fmt.Errorf("index.database: %w", err)
		}
	}

	return nil
}

// Validate checks the S3 upload settings.
func (c *S3UploadConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}

	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	return nil
}

// Validate checks the database settings for the configured driver.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required")
		}
	case "postgres":
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres.host is required")
		}

		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}

	return nil
}
