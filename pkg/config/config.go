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
	Password     PasswordConfig
	Platform     PlatformConfig
	Payments     PaymentsConfig
	Mail         MailConfig
	WhatsApp     WhatsAppConfig
	ConfirmLimit ConfirmRateLimitConfig
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
	Env          string `envconfig:"KASI_APP_ENV" required:"true"`
	Port         string `envconfig:"KASI_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"KASI_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"KASI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KASI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KASI_DB_DSN"`
	Driver string `envconfig:"KASI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KASI_DB_HOST"`
	LegacyPort     int    `envconfig:"KASI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KASI_DB_USER"`
	LegacyPassword string `envconfig:"KASI_DB_PASSWORD"`
	LegacyName     string `envconfig:"KASI_DB_NAME"`
	LegacySSLMode  string `envconfig:"KASI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KASI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KASI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KASI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KASI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KASI_REDIS_URL" required:"true"`
	Password     string        `envconfig:"KASI_REDIS_PASSWORD"`
	DB           int           `envconfig:"KASI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KASI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KASI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KASI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KASI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KASI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KASI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KASI_JWT_ISSUER" default:"kasi-flavors"`
	ExpirationMinutes int    `envconfig:"KASI_JWT_EXPIRATION_MINUTES" default:"720"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KASI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KASI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KASI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KASI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KASI_ARGON_KEY_LEN" default:"32"`
}

// PlatformConfig holds the marketplace economics knobs.
type PlatformConfig struct {
	FeeRate           float64 `envconfig:"KASI_PLATFORM_FEE_RATE" default:"0.10"`
	MinLineQty        int     `envconfig:"KASI_PLATFORM_MIN_LINE_QTY" default:"1"`
	MaxLineQty        int     `envconfig:"KASI_PLATFORM_MAX_LINE_QTY" default:"5"`
	TopupMinimumCents int     `envconfig:"KASI_PLATFORM_TOPUP_MINIMUM_CENTS" default:"5000"`
	Currency          string  `envconfig:"KASI_PLATFORM_CURRENCY" default:"ZAR"`
}

// PaymentsConfig configures the hosted checkout gateway.
type PaymentsConfig struct {
	BaseURL          string        `envconfig:"KASI_PAYMENTS_BASE_URL" default:"https://api.paygate.example.com"`
	APIKey           string        `envconfig:"KASI_PAYMENTS_API_KEY"`
	WebhookSecret    string        `envconfig:"KASI_PAYMENTS_WEBHOOK_SECRET"`
	SuccessURL       string        `envconfig:"KASI_PAYMENTS_SUCCESS_URL" default:"/dashboard/credit?topup=success"`
	CancelURL        string        `envconfig:"KASI_PAYMENTS_CANCEL_URL" default:"/dashboard/credit?topup=cancelled"`
	Timeout          time.Duration `envconfig:"KASI_PAYMENTS_TIMEOUT" default:"10s"`
	WebhookTolerance time.Duration `envconfig:"KASI_PAYMENTS_WEBHOOK_TOLERANCE" default:"3m"`
}

type MailConfig struct {
	APIKey      string `envconfig:"KASI_MAIL_API_KEY"`
	BaseURL     string `envconfig:"KASI_MAIL_BASE_URL" default:"https://api.resend.example.com"`
	DefaultFrom string `envconfig:"KASI_MAIL_FROM" default:"orders@kasiflavors.co.za"`
}

type WhatsAppConfig struct {
	APIKey      string `envconfig:"KASI_WHATSAPP_API_KEY"`
	BaseURL     string `envconfig:"KASI_WHATSAPP_BASE_URL" default:"https://graph.facebook.com/v19.0"`
	SenderPhone string `envconfig:"KASI_WHATSAPP_SENDER_PHONE"`
}

// ConfirmRateLimitConfig bounds pickup-code confirmation attempts per order.
type ConfirmRateLimitConfig struct {
	Window   time.Duration `envconfig:"KASI_CONFIRM_RATE_LIMIT_WINDOW" default:"1m"`
	Attempts int           `envconfig:"KASI_CONFIRM_RATE_LIMIT_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KASI_AUTO_MIGRATE" default:"false"`
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
