package config

// envconfig resolves the explicit envconfig tags, so the prefix only
// matters for fields without one.
const EnvPrefix = "NSTC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	AuditSinkDB     = "db"
	AuditSinkPubSub = "pubsub"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:nstc.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv   = "NSTC_APP_ENV"
	EnvPort     = "NSTC_APP_PORT"
	EnvLogLevel = "NSTC_LOG_LEVEL"

	EnvDBDSN    = "NSTC_DB_DSN"
	EnvDBDriver = "NSTC_DB_DRIVER"
	EnvDBHost   = "NSTC_DB_HOST"
	EnvDBUser   = "NSTC_DB_USER"
	EnvDBName   = "NSTC_DB_NAME"

	EnvRedisURL = "NSTC_REDIS_URL"

	EnvJWTSecret  = "NSTC_JWT_SECRET"
	EnvJWTIssuer  = "NSTC_JWT_ISSUER"
	EnvJWTExpMins = "NSTC_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "NSTC_USE_SQLITE"

	EnvHubLocation    = "NSTC_WAREHOUSE_HUB_LOCATION"
	EnvInfiniteSource = "NSTC_WAREHOUSE_INFINITE_SOURCE"
	EnvMaxBatchSize   = "NSTC_WAREHOUSE_MAX_BATCH_SIZE"

	EnvAuditSink    = "NSTC_AUDIT_SINK"
	EnvAuditTopic   = "NSTC_AUDIT_PUBSUB_TOPIC"
	EnvGCPProjectID = "NSTC_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
