package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	MongoURI     string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"vaultdrive"`

	JWTSecret string `env:"JWT_SECRET,required"`

	// Primary S3-compatible provider.
	S3PrimaryEndpoint     string        `env:"S3_PRIMARY_ENDPOINT"`
	S3PrimaryRegion       string        `env:"S3_PRIMARY_REGION" envDefault:"us-east-1"`
	S3PrimaryBucket       string        `env:"S3_PRIMARY_BUCKET"`
	S3PrimaryAccessKey    string        `env:"S3_PRIMARY_ACCESS_KEY"`
	S3PrimarySecretKey    string        `env:"S3_PRIMARY_SECRET_KEY"`
	S3PrimaryPathStyle    bool          `env:"S3_PRIMARY_PATH_STYLE" envDefault:"false"`
	S3PrimaryMaxSignedTTL time.Duration `env:"S3_PRIMARY_MAX_SIGNED_TTL" envDefault:"168h"`

	// Secondary S3-compatible provider, optional.
	S3SecondaryEndpoint     string        `env:"S3_SECONDARY_ENDPOINT"`
	S3SecondaryRegion       string        `env:"S3_SECONDARY_REGION" envDefault:"us-east-1"`
	S3SecondaryBucket       string        `env:"S3_SECONDARY_BUCKET"`
	S3SecondaryAccessKey    string        `env:"S3_SECONDARY_ACCESS_KEY"`
	S3SecondarySecretKey    string        `env:"S3_SECONDARY_SECRET_KEY"`
	S3SecondaryPathStyle    bool          `env:"S3_SECONDARY_PATH_STYLE" envDefault:"true"`
	S3SecondaryMaxSignedTTL time.Duration `env:"S3_SECONDARY_MAX_SIGNED_TTL" envDefault:"168h"`

	// Backblaze B2 native API, optional fallback store.
	B2ApplicationKeyID string `env:"B2_APPLICATION_KEY_ID"`
	B2ApplicationKey   string `env:"B2_APPLICATION_KEY"`
	B2BucketName       string `env:"B2_BUCKET_NAME"`

	PreferredBackend string `env:"PREFERRED_BACKEND" envDefault:"s3-primary"`
	FallbackBackend  string `env:"FALLBACK_BACKEND"`

	StorageRetryAttempts  int           `env:"STORAGE_RETRY_ATTEMPTS" envDefault:"3"`
	StorageRetryBaseDelay time.Duration `env:"STORAGE_RETRY_BASE_DELAY" envDefault:"200ms"`
	StorageProbeTimeout   time.Duration `env:"STORAGE_PROBE_TIMEOUT" envDefault:"5s"`

	MaxFileSize    int64 `env:"MAX_FILE_SIZE" envDefault:"104857600"`
	MaxUserStorage int64 `env:"MAX_USER_STORAGE" envDefault:"2147483648"`

	TrashRetention     time.Duration `env:"TRASH_RETENTION" envDefault:"720h"`
	TrashSweepInterval time.Duration `env:"TRASH_SWEEP_INTERVAL" envDefault:"24h"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.S3PrimaryBucket == "" && c.B2BucketName == "" {
		return fmt.Errorf("at least one storage backend must be configured")
	}
	if c.TrashRetention <= 0 {
		return fmt.Errorf("TRASH_RETENTION must be positive")
	}
	return nil
}

// HasSecondaryS3 reports whether the optional second S3 provider is set up.
func (c *Config) HasSecondaryS3() bool {
	return c.S3SecondaryBucket != ""
}

// HasB2 reports whether the native B2 fallback is set up.
func (c *Config) HasB2() bool {
	return c.B2ApplicationKeyID != "" && c.B2ApplicationKey != "" && c.B2BucketName != ""
}

// LogSummary prints the effective configuration with secrets masked.
func (c *Config) LogSummary(logger *zap.SugaredLogger) {
	logger.Infow("configuration loaded",
		"port", c.Port,
		"env", c.Env,
		"database", c.DatabaseName,
		"mongo_uri", maskConnectionString(c.MongoURI),
		"jwt_secret", maskSecret(c.JWTSecret),
		"preferred_backend", c.PreferredBackend,
		"fallback_backend", c.FallbackBackend,
		"s3_primary_bucket", c.S3PrimaryBucket,
		"s3_secondary_bucket", c.S3SecondaryBucket,
		"b2_bucket", c.B2BucketName,
		"b2_key_id", maskSecret(c.B2ApplicationKeyID),
		"max_file_size", c.MaxFileSize,
		"max_user_storage", c.MaxUserStorage,
		"trash_retention", c.TrashRetention,
		"trash_sweep_interval", c.TrashSweepInterval,
	)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	if len(secret) <= 8 {
		return "[HIDDEN]"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func maskConnectionString(uri string) string {
	if uri == "" {
		return "[NOT SET]"
	}
	if idx := strings.LastIndex(uri, "@"); idx >= 0 {
		return "[CREDENTIALS_HIDDEN]@" + uri[idx+1:]
	}
	return uri
}
