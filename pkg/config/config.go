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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Warehouse    WarehouseConfig
	Audit        AuditConfig
	GCP          GCPConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Audit.validate(cfg.GCP); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NSTC_APP_ENV" required:"true"`
	Port         string `envconfig:"NSTC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NSTC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NSTC_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"NSTC_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"NSTC_DB_DSN"`
	Driver string `envconfig:"NSTC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NSTC_DB_HOST"`
	LegacyPort     int    `envconfig:"NSTC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NSTC_DB_USER"`
	LegacyPassword string `envconfig:"NSTC_DB_PASSWORD"`
	LegacyName     string `envconfig:"NSTC_DB_NAME"`
	LegacySSLMode  string `envconfig:"NSTC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NSTC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NSTC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NSTC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NSTC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NSTC_REDIS_URL"`
	Address      string        `envconfig:"NSTC_REDIS_ADDR"`
	Password     string        `envconfig:"NSTC_REDIS_PASSWORD"`
	DB           int           `envconfig:"NSTC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NSTC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NSTC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NSTC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NSTC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NSTC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"NSTC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NSTC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NSTC_JWT_EXPIRATION_MINUTES" default:"720"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NSTC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NSTC_AUTO_MIGRATE" default:"false"`
}

// WarehouseConfig holds the conventions the stock workflows depend on.
type WarehouseConfig struct {
	HubLocation       string        `envconfig:"NSTC_WAREHOUSE_HUB_LOCATION" default:"NSTC"`
	InfiniteSource    string        `envconfig:"NSTC_WAREHOUSE_INFINITE_SOURCE" default:"CWW"`
	MaxBatchSize      int           `envconfig:"NSTC_WAREHOUSE_MAX_BATCH_SIZE" default:"200"`
	DashboardCacheTTL time.Duration `envconfig:"NSTC_WAREHOUSE_DASHBOARD_CACHE_TTL" default:"5m"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval           time.Duration `envconfig:"NSTC_CRON_INTERVAL" default:"1h"`
	LockTTL            time.Duration `envconfig:"NSTC_CRON_LOCK_TTL" default:"55m"`
	AuditRetentionDays int           `envconfig:"NSTC_CRON_AUDIT_RETENTION_DAYS" default:"180"`
}

type AuditConfig struct {
	Sink  string `envconfig:"NSTC_AUDIT_SINK" default:"db"`
	Topic string `envconfig:"NSTC_AUDIT_PUBSUB_TOPIC" default:"nstc-audit-events"`
}

// PubSubEnabled reports whether audit events should also fan out to Pub/Sub.
func (a AuditConfig) PubSubEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(a.Sink), AuditSinkPubSub)
}

type GCPConfig struct {
	ProjectID       string `envconfig:"NSTC_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"NSTC_GCP_CREDENTIALS_JSON"`
}

func (a AuditConfig) validate(gcp GCPConfig) error {
	sink := strings.ToLower(strings.TrimSpace(a.Sink))
	switch sink {
	case AuditSinkDB:
		return nil
	case AuditSinkPubSub:
		if strings.TrimSpace(gcp.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvAuditSink, AuditSinkPubSub)
		}
		if strings.TrimSpace(a.Topic) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvAuditTopic, EnvAuditSink, AuditSinkPubSub)
		}
		return nil
	default:
		return fmt.Errorf("unsupported audit sink %q", a.Sink)
	}
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = DefaultSQLiteDSN
		return nil
	}
	if strings.EqualFold(db.Driver, DBDriverSQLite) {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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
