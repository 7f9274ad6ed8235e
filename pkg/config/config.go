package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "himora"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Commission   CommissionConfig
	Settlement   SettlementConfig
	Rotation     RotationConfig
	Ledger       LedgerConfig
	Worker       WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HIMORA_APP_ENV" required:"true"`
	Port         string `envconfig:"HIMORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HIMORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HIMORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HIMORA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"HIMORA_DB_DSN"`

	Host     string `envconfig:"HIMORA_DB_HOST"`
	Port     int    `envconfig:"HIMORA_DB_PORT" default:"5432"`
	User     string `envconfig:"HIMORA_DB_USER"`
	Password string `envconfig:"HIMORA_DB_PASSWORD"`
	Name     string `envconfig:"HIMORA_DB_NAME"`
	SSLMode  string `envconfig:"HIMORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HIMORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HIMORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HIMORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HIMORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	if db.Host == "" {
		missing = append(missing, "HIMORA_DB_HOST")
	}
	if db.User == "" {
		missing = append(missing, "HIMORA_DB_USER")
	}
	if db.Name == "" {
		missing = append(missing, "HIMORA_DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("database configuration incomplete, set HIMORA_DB_DSN or: %s", strings.Join(missing, ", "))
	}

	db.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.User),
		url.QueryEscape(db.Password),
		db.Host,
		db.Port,
		db.Name,
		db.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"HIMORA_REDIS_URL"`
	Address      string        `envconfig:"HIMORA_REDIS_ADDR"`
	Password     string        `envconfig:"HIMORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"HIMORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HIMORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HIMORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HIMORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HIMORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HIMORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HIMORA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HIMORA_JWT_ISSUER" default:"himora"`
	ExpirationMinutes int    `envconfig:"HIMORA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HIMORA_AUTO_MIGRATE" default:"false"`
}

// CommissionConfig selects the platform fee policy applied to captured payments.
type CommissionConfig struct {
	Mode          string  `envconfig:"HIMORA_COMMISSION_MODE" default:"percent"`
	PercentRate   float64 `envconfig:"HIMORA_COMMISSION_PERCENT_RATE" default:"2.36"`
	FlatFeePayin  float64 `envconfig:"HIMORA_COMMISSION_FLAT_PAYIN" default:"5"`
	FlatFeePayout float64 `envconfig:"HIMORA_COMMISSION_FLAT_PAYOUT" default:"10"`
}

func (c CommissionConfig) validate() error {
	switch c.Mode {
	case "percent", "flat":
	default:
		return fmt.Errorf("invalid HIMORA_COMMISSION_MODE %q", c.Mode)
	}
	if c.PercentRate < 0 || c.FlatFeePayin < 0 || c.FlatFeePayout < 0 {
		return fmt.Errorf("commission rates must be non-negative")
	}
	return nil
}

// SettlementConfig selects one of the two settlement timing modes. The minutes
// mode wins when both are populated; exactly one must be usable.
type SettlementConfig struct {
	Minutes      int  `envconfig:"HIMORA_SETTLEMENT_MINUTES" default:"0"`
	Days         int  `envconfig:"HIMORA_SETTLEMENT_DAYS" default:"1"`
	CutoffHour   int  `envconfig:"HIMORA_SETTLEMENT_CUTOFF_HOUR" default:"16"`
	SettleHour   int  `envconfig:"HIMORA_SETTLEMENT_SETTLE_HOUR" default:"10"`
	SkipWeekends bool `envconfig:"HIMORA_SETTLEMENT_SKIP_WEEKENDS" default:"false"`
}

func (s SettlementConfig) validate() error {
	if s.Minutes < 0 {
		return fmt.Errorf("HIMORA_SETTLEMENT_MINUTES must be non-negative")
	}
	if s.Minutes == 0 {
		if s.Days < 0 {
			return fmt.Errorf("HIMORA_SETTLEMENT_DAYS must be non-negative")
		}
		if s.CutoffHour < 0 || s.CutoffHour > 23 {
			return fmt.Errorf("HIMORA_SETTLEMENT_CUTOFF_HOUR must be within 0..23")
		}
		if s.SettleHour < 0 || s.SettleHour > 23 {
			return fmt.Errorf("HIMORA_SETTLEMENT_SETTLE_HOUR must be within 0..23")
		}
	}
	return nil
}

type RotationConfig struct {
	DefaultLimit int `envconfig:"HIMORA_ROTATION_DEFAULT_LIMIT" default:"10"`
}

type LedgerConfig struct {
	// TenantID owns the journal entries posted automatically on capture
	// settlement. Manual postings name their own tenant per request.
	TenantID string `envconfig:"HIMORA_LEDGER_TENANT_ID" default:"00000000-0000-0000-0000-000000000001"`
}

type WorkerConfig struct {
	SweepInterval    time.Duration `envconfig:"HIMORA_WORKER_SWEEP_INTERVAL" default:"15m"`
	BusinessDaysOnly bool          `envconfig:"HIMORA_WORKER_BUSINESS_DAYS_ONLY" default:"false"`
	MetricsPort      string        `envconfig:"HIMORA_WORKER_METRICS_PORT" default:"9091"`
}
