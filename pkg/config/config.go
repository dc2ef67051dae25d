package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
	Notify  NotifyConfig
	FCM     FCMConfig
	Resend  ResendConfig
	SMS     SMSConfig
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
	Env          string `envconfig:"QUESTLY_APP_ENV" required:"true"`
	Port         string `envconfig:"QUESTLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QUESTLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QUESTLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QUESTLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QUESTLY_DB_DSN"`
	Driver string `envconfig:"QUESTLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUESTLY_DB_HOST"`
	LegacyPort     int    `envconfig:"QUESTLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUESTLY_DB_USER"`
	LegacyPassword string `envconfig:"QUESTLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUESTLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUESTLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUESTLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUESTLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUESTLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUESTLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUESTLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUESTLY_REDIS_ADDR"`
	Password     string        `envconfig:"QUESTLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUESTLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUESTLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUESTLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUESTLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUESTLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUESTLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"QUESTLY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"QUESTLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"QUESTLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsSubscription string `envconfig:"QUESTLY_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
}

// NotifyConfig carries the dispatch and retry policy knobs. RetryBase and
// MaxRetries default to the observed production policy (5m doubling, 3
// attempts) but are deliberately configurable.
type NotifyConfig struct {
	MaxRetries      int           `envconfig:"QUESTLY_NOTIFY_MAX_RETRIES" default:"3"`
	RetryBase       time.Duration `envconfig:"QUESTLY_NOTIFY_RETRY_BASE" default:"5m"`
	DispatchTimeout time.Duration `envconfig:"QUESTLY_NOTIFY_DISPATCH_TIMEOUT" default:"10s"`
	Workers         int           `envconfig:"QUESTLY_NOTIFY_WORKERS" default:"4"`
	QueueSize       int           `envconfig:"QUESTLY_NOTIFY_QUEUE_SIZE" default:"256"`
	SweepBatchSize  int           `envconfig:"QUESTLY_NOTIFY_SWEEP_BATCH_SIZE" default:"100"`
	CronInterval    time.Duration `envconfig:"QUESTLY_NOTIFY_CRON_INTERVAL" default:"1m"`
}

type FCMConfig struct {
	ProjectID       string `envconfig:"QUESTLY_FCM_PROJECT_ID"`
	CredentialsJSON string `envconfig:"QUESTLY_FCM_CREDENTIALS_JSON"`
}

type ResendConfig struct {
	APIKey      string `envconfig:"QUESTLY_RESEND_API_KEY"`
	DefaultFrom string `envconfig:"QUESTLY_RESEND_FROM_EMAIL" default:"Questly <notifications@questly.app>"`
}

type SMSConfig struct {
	GatewayURL string        `envconfig:"QUESTLY_SMS_GATEWAY_URL"`
	APIKey     string        `envconfig:"QUESTLY_SMS_API_KEY"`
	SenderID   string        `envconfig:"QUESTLY_SMS_SENDER_ID" default:"QUESTLY"`
	Timeout    time.Duration `envconfig:"QUESTLY_SMS_TIMEOUT" default:"10s"`
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
