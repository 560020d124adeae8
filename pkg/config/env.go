package config

const EnvPrefix = "DELICADO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	ServiceKindAPI             = "api"
	ServiceKindMigrate         = "migrate"
	ServiceKindOutboxPublisher = "outbox-publisher"
	ServiceKindAnalytics       = "analytics-worker"
	ServiceKindCron            = "cron-worker"
)

const (
	EnvAppEnv      = "DELICADO_APP_ENV"
	EnvPort        = "DELICADO_APP_PORT"
	EnvLogLevel    = "DELICADO_LOG_LEVEL"
	EnvCORSOrigins = "DELICADO_CORS_ORIGINS"
	EnvServiceKind = "DELICADO_SERVICE_KIND"

	EnvDBDSN     = "DELICADO_DB_DSN"
	EnvDBHost    = "DELICADO_DB_HOST"
	EnvDBPort    = "DELICADO_DB_PORT"
	EnvDBUser    = "DELICADO_DB_USER"
	EnvDBPass    = "DELICADO_DB_PASSWORD"
	EnvDBName    = "DELICADO_DB_NAME"
	EnvDBSSLMode = "DELICADO_DB_SSLMODE"
	EnvUseSQLite = "DELICADO_USE_SQLITE"

	EnvRedisURL = "DELICADO_REDIS_URL"

	EnvJWTSecret              = "DELICADO_JWT_SECRET"
	EnvJWTIssuer              = "DELICADO_JWT_ISSUER"
	EnvJWTExpMins             = "DELICADO_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "DELICADO_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "DELICADO_GCP_PROJECT_ID"
	EnvGCSBucket    = "DELICADO_GCS_BUCKET_NAME"

	EnvPubSubOrdersTopic    = "DELICADO_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAnalyticsTopic = "DELICADO_PUBSUB_ANALYTICS_TOPIC"
	EnvPubSubAnalyticsSub   = "DELICADO_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvBigQueryDataset      = "DELICADO_BIGQUERY_DATASET"

	EnvStripeAPIKey   = "DELICADO_STRIPE_API_KEY"
	EnvStripeSecret   = "DELICADO_STRIPE_SECRET"
	EnvStripeCurrency = "DELICADO_STRIPE_CURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
