package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Scanning     ScanningConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENUETIX_APP_ENV" required:"true"`
	Port         string `envconfig:"VENUETIX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENUETIX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENUETIX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENUETIX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENUETIX_DB_DSN"`
	Driver string `envconfig:"VENUETIX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENUETIX_DB_HOST"`
	LegacyPort     int    `envconfig:"VENUETIX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENUETIX_DB_USER"`
	LegacyPassword string `envconfig:"VENUETIX_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENUETIX_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENUETIX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENUETIX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENUETIX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENUETIX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENUETIX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENUETIX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENUETIX_REDIS_ADDR"`
	Password     string        `envconfig:"VENUETIX_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENUETIX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENUETIX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENUETIX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENUETIX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENUETIX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENUETIX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENUETIX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENUETIX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENUETIX_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// ScanningConfig holds the QR signing material. The secret is read once at
// startup and handed to the token codec; nothing else reads it.
type ScanningConfig struct {
	QRSigningSecret string `envconfig:"VENUETIX_QR_SIGNING_SECRET" required:"true"`
	QRBaseURL       string `envconfig:"VENUETIX_QR_BASE_URL"`
}

type RateLimitConfig struct {
	ScanWindow      time.Duration `envconfig:"VENUETIX_RATE_LIMIT_SCAN_WINDOW" default:"1m"`
	ScanDeviceLimit int           `envconfig:"VENUETIX_RATE_LIMIT_SCAN_DEVICE_LIMIT" default:"120"`
	SyncWindow      time.Duration `envconfig:"VENUETIX_RATE_LIMIT_SYNC_WINDOW" default:"1m"`
	SyncDeviceLimit int           `envconfig:"VENUETIX_RATE_LIMIT_SYNC_DEVICE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENUETIX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENUETIX_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENUETIX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VENUETIX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENUETIX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"VENUETIX_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"VENUETIX_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENUETIX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENUETIX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENUETIX_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
