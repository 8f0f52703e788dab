package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, `
global:
  log_level: info
report:
  output: ./original/junit.xml
  owner: "1000:1000"
selection:
  ids: [1, 2]
  scenario_tags: [smoke]
upload:
  s3:
    enabled: false
    bucket: original-bucket
index:
  enabled: true
  database:
    driver: sqlite
    sqlite:
      path: ./original.db
api:
  listen: ":8080"
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "./original/junit.xml", cfg.Report.Output)
				assert.Equal(t, "1000:1000", cfg.Report.Owner)
				assert.Equal(t, []int{1, 2}, cfg.Selection.IDs)
				assert.Equal(t, []string{"smoke"}, cfg.Selection.ScenarioTags)
				assert.Equal(t, "original-bucket", cfg.Upload.S3.Bucket)
				assert.Equal(t, "./original.db", cfg.Index.Database.SQLite.Path)
				assert.Equal(t, ":8080", cfg.API.Listen)
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"JUNITOOR_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "string override - report output",
			envVars: map[string]string{
				"JUNITOOR_REPORT_OUTPUT": "/tmp/out.xml",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/tmp/out.xml", cfg.Report.Output)
			},
		},
		{
			name: "boolean override - upload enabled",
			envVars: map[string]string{
				"JUNITOOR_UPLOAD_S3_ENABLED": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Upload.S3.Enabled)
			},
		},
		{
			name: "slice override - suite tags",
			envVars: map[string]string{
				"JUNITOOR_SELECTION_SUITE_TAGS": "auth,billing",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"auth", "billing"}, cfg.Selection.SuiteTags)
			},
		},
		{
			name: "int slice override - ids",
			envVars: map[string]string{
				"JUNITOOR_SELECTION_IDS": "7,8,9",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []int{7, 8, 9}, cfg.Selection.IDs)
			},
		},
		{
			name: "duration override - upload timeout",
			envVars: map[string]string{
				"JUNITOOR_UPLOAD_S3_TIMEOUT": "30s",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*time.Second, cfg.Upload.S3.Timeout)
			},
		},
		{
			name: "nested field override - postgres host",
			envVars: map[string]string{
				"JUNITOOR_INDEX_DATABASE_DRIVER":        "postgres",
				"JUNITOOR_INDEX_DATABASE_POSTGRES_HOST": "db.internal",
				"JUNITOOR_INDEX_DATABASE_POSTGRES_PORT": "6543",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres", cfg.Index.Database.Driver)
				assert.Equal(t, "db.internal", cfg.Index.Database.Postgres.Host)
				assert.Equal(t, 6543, cfg.Index.Database.Postgres.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsAppliedWhenEmpty(t *testing.T) {
	configPath := writeConfig(t, "global: {}\n")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultReportOutput, cfg.Report.Output)
	assert.Equal(t, DefaultS3Region, cfg.Upload.S3.Region)
	assert.Equal(t, DefaultS3Prefix, cfg.Upload.S3.Prefix)
	assert.Equal(t, DefaultUploadTimeout, cfg.Upload.S3.Timeout)
	assert.Equal(t, DefaultDatabaseDriver, cfg.Index.Database.Driver)
	assert.Equal(t, DefaultSQLitePath, cfg.Index.Database.SQLite.Path)
	assert.Equal(t, DefaultAPIListen, cfg.API.Listen)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.API.RateLimit.RequestsPerMinute)
	assert.Equal(t, DefaultShutdownTimeout, cfg.API.ShutdownTimeout)
	assert.True(t, cfg.Selection.IsEmpty())
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("JUNITOOR_REPORT_OUTPUT", "env.xml")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.xml", cfg.Report.Output)
	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
}

func TestLoad_EnvVarOverridesDefaults(t *testing.T) {
	configPath := writeConfig(t, "report:\n  owner: \"\"\n")

	t.Setenv("JUNITOOR_GLOBAL_LOG_LEVEL", "warn")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Global.LogLevel)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "global: [unterminated\n")

	_, err := Load(configPath)
	require.Error(t, err)
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid owner",
			mutate:  func(cfg *Config) { cfg.Report.Owner = "root" },
			wantErr: "report.owner",
		},
		{
			name:    "s3 enabled without bucket",
			mutate:  func(cfg *Config) { cfg.Upload.S3.Enabled = true },
			wantErr: "bucket is required",
		},
		{
			name: "s3 half credentials",
			mutate: func(cfg *Config) {
				cfg.Upload.S3.Enabled = true
				cfg.Upload.S3.Bucket = "reports"
				cfg.Upload.S3.AccessKeyID = "key"
			},
			wantErr: "must be set together",
		},
		{
			name: "s3 disabled ignores missing bucket",
			mutate: func(cfg *Config) {
				cfg.Upload.S3.Bucket = ""
			},
		},
		{
			name: "index unknown driver",
			mutate: func(cfg *Config) {
				cfg.Index.Enabled = true
				cfg.Index.Database.Driver = "mysql"
			},
			wantErr: `unsupported driver "mysql"`,
		},
		{
			name: "index postgres without host",
			mutate: func(cfg *Config) {
				cfg.Index.Enabled = true
				cfg.Index.Database.Driver = "postgres"
				cfg.Index.Database.Postgres.Database = "junitoor"
			},
			wantErr: "postgres.host is required",
		},
		{
			name: "index postgres complete",
			mutate: func(cfg *Config) {
				cfg.Index.Enabled = true
				cfg.Index.Database.Driver = "postgres"
				cfg.Index.Database.Postgres.Host = "localhost"
				cfg.Index.Database.Postgres.Database = "junitoor"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateAPI(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "rate limit without budget",
			mutate: func(cfg *Config) {
				cfg.API.RateLimit.Enabled = true
				cfg.API.RateLimit.RequestsPerMinute = -1
			},
			wantErr: "requests_per_minute",
		},
		{
			name:    "basic auth without users",
			mutate:  func(cfg *Config) { cfg.API.Auth.Basic.Enabled = true },
			wantErr: "at least one user",
		},
		{
			name: "basic auth plaintext password",
			mutate: func(cfg *Config) {
				cfg.API.Auth.Basic.Enabled = true
				cfg.API.Auth.Basic.Users = []BasicAuthUser{{Username: "ci", Password: "secret"}}
			},
			wantErr: "bcrypt hash",
		},
		{
			name: "basic auth duplicate user",
			mutate: func(cfg *Config) {
				cfg.API.Auth.Basic.Enabled = true
				cfg.API.Auth.Basic.Users = []BasicAuthUser{
					{Username: "ci", Password: string(hash)},
					{Username: "ci", Password: string(hash)},
				}
			},
			wantErr: "duplicate username",
		},
		{
			name: "basic auth valid",
			mutate: func(cfg *Config) {
				cfg.API.Auth.Basic.Enabled = true
				cfg.API.Auth.Basic.Users = []BasicAuthUser{{Username: "ci", Password: string(hash)}}
			},
		},
		{
			name:    "unknown database driver",
			mutate:  func(cfg *Config) { cfg.Index.Database.Driver = "oracle" },
			wantErr: "index.database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPI()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
