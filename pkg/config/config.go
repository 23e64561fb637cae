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
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Leads        LeadsConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Leads.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ASKSVC_APP_ENV" required:"true"`
	Port         string `envconfig:"ASKSVC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASKSVC_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ASKSVC_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ASKSVC_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"ASKSVC_CORS_ALLOWED_ORIGINS" default:"*"`
	MetricsAddr  string `envconfig:"ASKSVC_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"ASKSVC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ASKSVC_DB_DSN"`
	Driver string `envconfig:"ASKSVC_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ASKSVC_DB_HOST"`
	Port     int    `envconfig:"ASKSVC_DB_PORT" default:"5432"`
	User     string `envconfig:"ASKSVC_DB_USER"`
	Password string `envconfig:"ASKSVC_DB_PASSWORD"`
	Name     string `envconfig:"ASKSVC_DB_NAME"`
	SSLMode  string `envconfig:"ASKSVC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASKSVC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASKSVC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASKSVC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASKSVC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ASKSVC_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASKSVC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASKSVC_REDIS_ADDR"`
	Password     string        `envconfig:"ASKSVC_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASKSVC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASKSVC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASKSVC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASKSVC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASKSVC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASKSVC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ASKSVC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ASKSVC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ASKSVC_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RateLimitConfig struct {
	VendorWindow  time.Duration `envconfig:"ASKSVC_RATE_LIMIT_VENDOR_WINDOW" default:"1m"`
	VendorLimit   int           `envconfig:"ASKSVC_RATE_LIMIT_VENDOR_LIMIT" default:"30"`
	PublicWindow  time.Duration `envconfig:"ASKSVC_RATE_LIMIT_PUBLIC_WINDOW" default:"10m"`
	PublicIPLimit int           `envconfig:"ASKSVC_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASKSVC_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ASKSVC_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ASKSVC_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ASKSVC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASKSVC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"ASKSVC_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"ASKSVC_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	Endpoint      string `envconfig:"ASKSVC_GCS_ENDPOINT"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"ASKSVC_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured megabyte limit to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"ASKSVC_PUBSUB_NOTIFICATION_TOPIC" default:"asksvc-notification-events"`
	NotificationSubscription string `envconfig:"ASKSVC_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	ReceiveGoroutines        int    `envconfig:"ASKSVC_PUBSUB_RECEIVE_GOROUTINES" default:"2"`
	MaxOutstandingMessages   int    `envconfig:"ASKSVC_PUBSUB_MAX_OUTSTANDING" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ASKSVC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ASKSVC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ASKSVC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type LeadsConfig struct {
	DefaultUnlockCost     int    `envconfig:"ASKSVC_LEADS_DEFAULT_UNLOCK_COST" default:"3"`
	MaxQuotesPerRequest   int    `envconfig:"ASKSVC_LEADS_MAX_QUOTES_PER_REQUEST" default:"5"`
	QuoteCurrency         string `envconfig:"ASKSVC_LEADS_QUOTE_CURRENCY" default:"EUR"`
	DefaultQuoteValidDays int    `envconfig:"ASKSVC_LEADS_DEFAULT_QUOTE_VALID_DAYS" default:"7"`
	RequestExpiryDays     int    `envconfig:"ASKSVC_LEADS_REQUEST_EXPIRY_DAYS" default:"30"`
	TransactionsMaxLimit  int    `envconfig:"ASKSVC_LEADS_TRANSACTIONS_MAX_LIMIT" default:"100"`
}

func (l LeadsConfig) validate() error {
	if l.DefaultUnlockCost <= 0 {
		return fmt.Errorf("%s must be positive", EnvLeadsDefaultUnlockCost)
	}
	if l.MaxQuotesPerRequest <= 0 {
		return fmt.Errorf("%s must be positive", EnvLeadsMaxQuotes)
	}
	return nil
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"ASKSVC_CRON_INTERVAL" default:"1h"`
	LockKey                   string        `envconfig:"ASKSVC_CRON_LOCK_KEY" default:"cron:scheduler"`
	LockTTL                   time.Duration `envconfig:"ASKSVC_CRON_LOCK_TTL" default:"50m"`
	NotificationRetentionDays int           `envconfig:"ASKSVC_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"ASKSVC_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range legacyDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
