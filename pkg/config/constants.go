package config

const EnvPrefix = "VENUETIX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "VENUETIX_APP_ENV"
	EnvPort     = "VENUETIX_APP_PORT"
	EnvLogLevel = "VENUETIX_LOG_LEVEL"

	EnvDBDSN      = "VENUETIX_DB_DSN"
	EnvDBHost     = "VENUETIX_DB_HOST"
	EnvDBPort     = "VENUETIX_DB_PORT"
	EnvDBUser     = "VENUETIX_DB_USER"
	EnvDBPassword = "VENUETIX_DB_PASSWORD"
	EnvDBName     = "VENUETIX_DB_NAME"
	EnvDBSSLMode  = "VENUETIX_DB_SSLMODE"

	EnvRedisURL = "VENUETIX_REDIS_URL"

	EnvJWTSecret  = "VENUETIX_JWT_SECRET"
	EnvJWTIssuer  = "VENUETIX_JWT_ISSUER"
	EnvJWTExpMins = "VENUETIX_JWT_EXPIRATION_MINUTES"

	EnvQRSigningSecret = "VENUETIX_QR_SIGNING_SECRET"
	EnvQRBaseURL       = "VENUETIX_QR_BASE_URL"

	EnvGCPProjectID = "VENUETIX_GCP_PROJECT_ID"

	EnvPubSubDomainTopic = "VENUETIX_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "VENUETIX_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
