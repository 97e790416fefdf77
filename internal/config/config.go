package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kevingruber/turbo-cache/internal/storage"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

type StorageConfig struct {
	Provider    string      `mapstructure:"provider"`
	Bucket      string      `mapstructure:"bucket"`
	FSCachePath string      `mapstructure:"fs_cache_path"`
	S3          S3Config    `mapstructure:"s3"`
	GCS         GCSConfig   `mapstructure:"gcs"`
	Azure       AzureConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureConfig struct {
	AccountURL         string `mapstructure:"account_url"`
	ConnectionString   string `mapstructure:"connection_string"`
	UseManagedIdentity bool   `mapstructure:"use_managed_identity"`
}

type CacheConfig struct {
	MaxEntrySizeMB int64 `mapstructure:"max_entry_size_mb"`
}

// AuthConfig lists the bearer tokens accepted on artifact endpoints.
type AuthConfig struct {
	Tokens []string `mapstructure:"tokens"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SentryConfig struct {
	Dsn     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "/etc/certs/tls.crt")
	v.SetDefault("server.tls.key_file", "/etc/certs/tls.key")

	v.SetDefault("storage.provider", string(storage.ProviderMemory))
	v.SetDefault("storage.bucket", "turbo-cache")
	v.SetDefault("storage.fs_cache_path", os.TempDir())
	v.SetDefault("storage.s3.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.gcs.credentials_file", "")
	v.SetDefault("storage.azure.account_url", "")
	v.SetDefault("storage.azure.connection_string", "")
	v.SetDefault("storage.azure.use_managed_identity", false)

	v.SetDefault("cache.max_entry_size_mb", 100)

	v.SetDefault("auth.tokens", []string{})

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("sentry.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Enable environment variable overrides
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Environment names understood by Turborepo cache deployments
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.tokens", "TURBO_TOKEN", "TURBO_TOKENS")
	v.BindEnv("storage.provider", "STORAGE_PROVIDER")
	v.BindEnv("storage.bucket", "BUCKET_NAME")
	v.BindEnv("storage.fs_cache_path", "FS_PATH")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT", "AWS_ENDPOINT")
	v.BindEnv("storage.s3.region", "AWS_REGION", "AWS_DEFAULT_REGION")
	v.BindEnv("storage.s3.access_key", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("storage.gcs.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	v.BindEnv("storage.azure.account_url", "AZURE_STORAGE_ACCOUNT_URL")
	v.BindEnv("storage.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("sentry.dsn", "SENTRY_DSN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Auth.Tokens = normalizeTokens(cfg.Auth.Tokens)

	return &cfg, nil
}

// normalizeTokens trims whitespace and drops empty entries, so that
// TURBO_TOKEN="a, b," yields exactly two tokens.
func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	provider, err := storage.ParseProvider(c.Storage.Provider)
	if err != nil {
		return fmt.Errorf("storage.provider: %w", err)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	switch provider {
	case storage.ProviderFile:
		if c.Storage.FSCachePath == "" {
			return fmt.Errorf("storage.fs_cache_path is required for the file provider")
		}
	case storage.ProviderS3:
		if c.Storage.S3.Endpoint == "" {
			return fmt.Errorf("storage.s3.endpoint is required for the s3 provider")
		}
	case storage.ProviderAzure:
		if c.Storage.Azure.AccountURL == "" && c.Storage.Azure.ConnectionString == "" {
			return fmt.Errorf("storage.azure.account_url or storage.azure.connection_string is required for the azure provider")
		}
	}
	if c.Cache.MaxEntrySizeMB <= 0 {
		return fmt.Errorf("cache.max_entry_size_mb must be positive")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if c.Sentry.Enabled && c.Sentry.Dsn == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}

func (c *Config) MaxEntrySizeBytes() int64 {
	return c.Cache.MaxEntrySizeMB * 1024 * 1024
}

// StorageOptions translates the storage section into options for storage.New.
// Validate must have succeeded first.
func (c *Config) StorageOptions() storage.Options {
	provider, _ := storage.ParseProvider(c.Storage.Provider)
	return storage.Options{
		Provider:    provider,
		Bucket:      c.Storage.Bucket,
		FSCachePath: c.Storage.FSCachePath,
		S3: storage.S3Config{
			Endpoint:  c.Storage.S3.Endpoint,
			Region:    c.Storage.S3.Region,
			AccessKey: c.Storage.S3.AccessKey,
			SecretKey: c.Storage.S3.SecretKey,
			UseSSL:    c.Storage.S3.UseSSL,
		},
		GCS: storage.GCSConfig{
			CredentialsFile: c.Storage.GCS.CredentialsFile,
		},
		Azure: storage.AzureConfig{
			AccountURL:         c.Storage.Azure.AccountURL,
			ConnectionString:   c.Storage.Azure.ConnectionString,
			UseManagedIdentity: c.Storage.Azure.UseManagedIdentity,
		},
	}
}
