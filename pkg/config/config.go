package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BRANCHPAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "BRANCHPAY_APP_ENV"
	EnvPort        = "BRANCHPAY_APP_PORT"
	EnvDBDSN       = "BRANCHPAY_DB_DSN"
	EnvDBHost      = "BRANCHPAY_DB_HOST"
	EnvDBUser      = "BRANCHPAY_DB_USER"
	EnvDBName      = "BRANCHPAY_DB_NAME"
	EnvRedisURL    = "BRANCHPAY_REDIS_URL"
	EnvJWTSecret   = "BRANCHPAY_JWT_SECRET"
	EnvJWTIssuer   = "BRANCHPAY_JWT_ISSUER"
	EnvStripeKey   = "BRANCHPAY_STRIPE_API_KEY"
	EnvStripeEnv   = "BRANCHPAY_STRIPE_ENV"
	EnvCurrency    = "BRANCHPAY_CHECKOUT_CURRENCY"
	EnvCapCacheTTL = "BRANCHPAY_CAPABILITY_CACHE_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Maintenance  MaintenanceConfig
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
	Env          string `envconfig:"BRANCHPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"BRANCHPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRANCHPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRANCHPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BRANCHPAY_DB_DSN"`
	Driver string `envconfig:"BRANCHPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRANCHPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"BRANCHPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRANCHPAY_DB_USER"`
	LegacyPassword string `envconfig:"BRANCHPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRANCHPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRANCHPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRANCHPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRANCHPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRANCHPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRANCHPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRANCHPAY_REDIS_URL"`
	Address      string        `envconfig:"BRANCHPAY_REDIS_ADDR"`
	Password     string        `envconfig:"BRANCHPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRANCHPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRANCHPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRANCHPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRANCHPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRANCHPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRANCHPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BRANCHPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BRANCHPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BRANCHPAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"BRANCHPAY_STRIPE_API_KEY"`
	Env            string        `envconfig:"BRANCHPAY_STRIPE_ENV" default:"test"`
	RequestTimeout time.Duration `envconfig:"BRANCHPAY_STRIPE_REQUEST_TIMEOUT" default:"30s"`
	PayoutInterval string        `envconfig:"BRANCHPAY_STRIPE_PAYOUT_INTERVAL" default:"weekly"`
	PayoutAnchor   string        `envconfig:"BRANCHPAY_STRIPE_PAYOUT_ANCHOR" default:"friday"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	Currency            string        `envconfig:"BRANCHPAY_CHECKOUT_CURRENCY" default:"USD"`
	OrderNumberAttempts int           `envconfig:"BRANCHPAY_ORDER_NUMBER_ATTEMPTS" default:"5"`
	CapabilityCacheTTL  time.Duration `envconfig:"BRANCHPAY_CAPABILITY_CACHE_TTL" default:"5m"`
	IdempotencyTTL      time.Duration `envconfig:"BRANCHPAY_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	RateLimitWindow     time.Duration `envconfig:"BRANCHPAY_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP      int           `envconfig:"BRANCHPAY_CHECKOUT_RATE_LIMIT_PER_IP" default:"30"`
	RateLimitPerEmail   int           `envconfig:"BRANCHPAY_CHECKOUT_RATE_LIMIT_PER_EMAIL" default:"10"`
	CORSAllowedOrigins  []string      `envconfig:"BRANCHPAY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// MaintenanceConfig drives the background worker that expires orphaned
// orders and refreshes onboarding accounts.
type MaintenanceConfig struct {
	Interval         time.Duration `envconfig:"BRANCHPAY_MAINTENANCE_INTERVAL" default:"15m"`
	LockTTL          time.Duration `envconfig:"BRANCHPAY_MAINTENANCE_LOCK_TTL" default:"10m"`
	StaleOrderAge    time.Duration `envconfig:"BRANCHPAY_MAINTENANCE_STALE_ORDER_AGE" default:"24h"`
	StaleOrderBatch  int           `envconfig:"BRANCHPAY_MAINTENANCE_STALE_ORDER_BATCH" default:"200"`
	AccountSyncAge   time.Duration `envconfig:"BRANCHPAY_MAINTENANCE_ACCOUNT_SYNC_AGE" default:"30m"`
	AccountSyncBatch int           `envconfig:"BRANCHPAY_MAINTENANCE_ACCOUNT_SYNC_BATCH" default:"100"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BRANCHPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BRANCHPAY_AUTO_MIGRATE" default:"false"`
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
