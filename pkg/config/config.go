package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Session       SessionConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Stripe        StripeConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireFor checks the settings a given service kind cannot start without.
func (c *Config) RequireFor(kind string) error {
	var missing []string
	need := func(env, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, env)
		}
	}

	switch kind {
	case ServiceKindAPI, ServiceKindCron, ServiceKindMigrate:
	case ServiceKindOutboxPublisher:
		need(EnvGCPProjectID, c.GCP.ProjectID)
		need(EnvPubSubOrdersTopic, c.PubSub.OrdersTopic)
	case ServiceKindAnalytics:
		need(EnvGCPProjectID, c.GCP.ProjectID)
		need(EnvPubSubAnalyticsSub, c.PubSub.AnalyticsSubscription)
		need(EnvBigQueryDataset, c.BigQuery.Dataset)
	default:
		return fmt.Errorf("unknown service kind %q", kind)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s requires %s", kind, strings.Join(missing, ", "))
	}
	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"DELICADO_APP_ENV" required:"true"`
	Port         string   `envconfig:"DELICADO_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"DELICADO_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"DELICADO_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"DELICADO_CORS_ORIGINS" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DELICADO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DELICADO_DB_DSN"`
	Driver string `envconfig:"DELICADO_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"DELICADO_SQLITE_PATH" default:"delicado.db"`

	LegacyHost     string `envconfig:"DELICADO_DB_HOST"`
	LegacyPort     int    `envconfig:"DELICADO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DELICADO_DB_USER"`
	LegacyPassword string `envconfig:"DELICADO_DB_PASSWORD"`
	LegacyName     string `envconfig:"DELICADO_DB_NAME"`
	LegacySSLMode  string `envconfig:"DELICADO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DELICADO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DELICADO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DELICADO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DELICADO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DELICADO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DELICADO_REDIS_ADDR"`
	Password     string        `envconfig:"DELICADO_REDIS_PASSWORD"`
	DB           int           `envconfig:"DELICADO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DELICADO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DELICADO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DELICADO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DELICADO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DELICADO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"DELICADO_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"DELICADO_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"DELICADO_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"DELICADO_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DELICADO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DELICADO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DELICADO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DELICADO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DELICADO_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"DELICADO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"DELICADO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"DELICADO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"DELICADO_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"DELICADO_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"DELICADO_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DELICADO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DELICADO_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"DELICADO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"DELICADO_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// SessionConfig bounds how long anonymous cart and wizard state survives in Redis.
type SessionConfig struct {
	CartTTL   time.Duration `envconfig:"DELICADO_SESSION_CART_TTL" default:"720h"`
	WizardTTL time.Duration `envconfig:"DELICADO_SESSION_WIZARD_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DELICADO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DELICADO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DELICADO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"DELICADO_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"DELICADO_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"DELICADO_MAX_UPLOAD_MB" default:"10"`
}

func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"DELICADO_PUBSUB_ORDERS_TOPIC" default:"delicado-order-events"`
	AnalyticsTopic        string `envconfig:"DELICADO_PUBSUB_ANALYTICS_TOPIC" default:"delicado-analytics-events"`
	AnalyticsSubscription string `envconfig:"DELICADO_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"delicado-analytics-writer"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"DELICADO_BIGQUERY_DATASET" default:"delicado"`
	OrderEventsTable string `envconfig:"DELICADO_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DELICADO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"DELICADO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"DELICADO_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"DELICADO_OUTBOX_RETENTION" default:"168h"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"DELICADO_STRIPE_API_KEY"`
	Secret   string `envconfig:"DELICADO_STRIPE_SECRET"`
	Env      string `envconfig:"DELICADO_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"DELICADO_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DELICADO_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"DELICADO_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
