package config

const (
	EnvPrefix = "ASKSVC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "ASKSVC_APP_ENV"
	EnvPort     = "ASKSVC_APP_PORT"
	EnvLogLevel = "ASKSVC_LOG_LEVEL"

	EnvDBDSN  = "ASKSVC_DB_DSN"
	EnvDBHost = "ASKSVC_DB_HOST"
	EnvDBUser = "ASKSVC_DB_USER"
	EnvDBName = "ASKSVC_DB_NAME"

	EnvRedisURL = "ASKSVC_REDIS_URL"

	EnvJWTSecret  = "ASKSVC_JWT_SECRET"
	EnvJWTIssuer  = "ASKSVC_JWT_ISSUER"
	EnvJWTExpMins = "ASKSVC_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "ASKSVC_GCP_PROJECT_ID"
	EnvGCSBucket    = "ASKSVC_GCS_BUCKET_NAME"

	EnvPubSubNotificationTopic = "ASKSVC_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "ASKSVC_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvLeadsDefaultUnlockCost = "ASKSVC_LEADS_DEFAULT_UNLOCK_COST"
	EnvLeadsMaxQuotes         = "ASKSVC_LEADS_MAX_QUOTES_PER_REQUEST"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
