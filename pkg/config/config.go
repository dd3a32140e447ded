package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied to every environment variable envconfig reads.
const EnvPrefix = "STELLOVAULT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Stellar      StellarConfig
	Webhook      WebhookConfig
	RateLimit    RateLimitConfig
	Oracle       OracleConfig
	Sweeper      SweeperConfig
	Indexer      IndexerConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"STELLOVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"STELLOVAULT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STELLOVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STELLOVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STELLOVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"STELLOVAULT_DB_DSN"`

	Host     string `envconfig:"STELLOVAULT_DB_HOST"`
	Port     int    `envconfig:"STELLOVAULT_DB_PORT" default:"5432"`
	User     string `envconfig:"STELLOVAULT_DB_USER"`
	Password string `envconfig:"STELLOVAULT_DB_PASSWORD"`
	Name     string `envconfig:"STELLOVAULT_DB_NAME"`
	SSLMode  string `envconfig:"STELLOVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STELLOVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STELLOVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STELLOVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STELLOVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either STELLOVAULT_DB_DSN or host/user/name parts are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STELLOVAULT_REDIS_URL"`
	Address      string        `envconfig:"STELLOVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"STELLOVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STELLOVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STELLOVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STELLOVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STELLOVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STELLOVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STELLOVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// StellarConfig describes the ledger gateway endpoints and contract bindings.
type StellarConfig struct {
	RPCURL               string        `envconfig:"STELLOVAULT_STELLAR_RPC_URL" required:"true"`
	NetworkPassphrase    string        `envconfig:"STELLOVAULT_STELLAR_NETWORK_PASSPHRASE" default:"Test SDF Network ; September 2015"`
	EscrowContractID     string        `envconfig:"STELLOVAULT_ESCROW_CONTRACT_ID"`
	LoanContractID       string        `envconfig:"STELLOVAULT_LOAN_CONTRACT_ID"`
	CollateralContractID string        `envconfig:"STELLOVAULT_COLLATERAL_CONTRACT_ID"`
	SubmitMaxAttempts    int           `envconfig:"STELLOVAULT_STELLAR_SUBMIT_MAX_ATTEMPTS" default:"10"`
	SubmitPollInterval   time.Duration `envconfig:"STELLOVAULT_STELLAR_SUBMIT_POLL_INTERVAL" default:"2s"`
	HTTPTimeout          time.Duration `envconfig:"STELLOVAULT_STELLAR_HTTP_TIMEOUT" default:"10s"`
}

// WebhookConfig holds the pre-shared secret for ledger event ingestion. An
// empty secret disables the endpoint entirely rather than opening it up.
type WebhookConfig struct {
	SharedSecret string `envconfig:"STELLOVAULT_WEBHOOK_SHARED_SECRET"`
}

// RateLimitConfig throttles the unauthenticated write surfaces.
type RateLimitConfig struct {
	WebhookWindow  time.Duration `envconfig:"STELLOVAULT_RL_WEBHOOK_WINDOW" default:"1m"`
	WebhookIPLimit int           `envconfig:"STELLOVAULT_RL_WEBHOOK_IP_LIMIT" default:"120"`
	OracleWindow   time.Duration `envconfig:"STELLOVAULT_RL_ORACLE_WINDOW" default:"1m"`
	OracleIPLimit  int           `envconfig:"STELLOVAULT_RL_ORACLE_IP_LIMIT" default:"60"`
}

type OracleConfig struct {
	RateLimitPerMinute int           `envconfig:"STELLOVAULT_ORACLE_RATE_LIMIT_PER_MINUTE" default:"10"`
	MetricsCacheTTL    time.Duration `envconfig:"STELLOVAULT_ORACLE_METRICS_CACHE_TTL" default:"30s"`
	MetricsWindow      time.Duration `envconfig:"STELLOVAULT_ORACLE_METRICS_WINDOW" default:"24h"`
}

type SweeperConfig struct {
	Interval time.Duration `envconfig:"STELLOVAULT_SWEEPER_INTERVAL" default:"60s"`
}

type IndexerConfig struct {
	Interval time.Duration `envconfig:"STELLOVAULT_INDEXER_INTERVAL" default:"5s"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"STELLOVAULT_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"STELLOVAULT_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"STELLOVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STELLOVAULT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"STELLOVAULT_PUBSUB_DOMAIN_TOPIC" default:"stellovault-domain-events"`
	DomainSubscription string `envconfig:"STELLOVAULT_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STELLOVAULT_AUTO_MIGRATE" default:"false"`
}
