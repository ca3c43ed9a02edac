package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Password  PasswordSettings  `mapstructure:"password"`
	Lockout   LockoutSettings   `mapstructure:"lockout"`
	Session   SessionSettings   `mapstructure:"session"`
	Reset     ResetSettings     `mapstructure:"reset"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing sessions and
// rate-limit windows.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	SessionPrefix string `mapstructure:"session_prefix"`
}

// KafkaSettings configures the Kafka producer used for domain events.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// JWTSettings configures bearer token minting. AccessTokenTTL is fixed at
// issue time; the token does not roll.
type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// PasswordSettings configures the credential lifecycle policy.
// MinStrengthScore raises the zxcvbn floor (0 to 4); at 0 the estimator is
// advisory only, so any password satisfying the complexity rules is accepted.
type PasswordSettings struct {
	MinLength        int           `mapstructure:"min_length"`
	MaxLength        int           `mapstructure:"max_length"`
	MinStrengthScore int           `mapstructure:"min_strength_score"`
	HistoryDepth     int           `mapstructure:"history_depth"`
	ExpiryTTL        time.Duration `mapstructure:"expiry_ttl"`
}

// LockoutSettings configures the failed-attempt lockout policy.
type LockoutSettings struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	LockDuration time.Duration `mapstructure:"lock_duration"`
}

// SessionSettings configures the server-side session idle window.
type SessionSettings struct {
	IdleTTL    time.Duration `mapstructure:"idle_ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

// ResetSettings configures the password-reset token lifecycle.
type ResetSettings struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	LinkBase string        `mapstructure:"link_base"`
}

// RateLimitSettings configures sliding-window limits per endpoint.
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	SignupMaxAttempts        int           `mapstructure:"signup_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("CONFESS")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.session_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"password.min_length",
		"password.max_length",
		"password.min_strength_score",
		"password.history_depth",
		"password.expiry_ttl",
		"lockout.max_attempts",
		"lockout.lock_duration",
		"session.idle_ttl",
		"session.cookie_name",
		"reset.token_ttl",
		"reset.link_base",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.signup_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.App.Env == "production" && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required in production")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "confession-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "confess")
	v.SetDefault("postgres.password", "confess_password")
	v.SetDefault("postgres.database", "confess")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_prefix", "confess:session")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "confess")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.secret", "dev-only-secret-change-me")
	v.SetDefault("jwt.issuer", "confession-api")
	v.SetDefault("jwt.access_token_ttl", "24h")

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.max_length", 16)
	v.SetDefault("password.min_strength_score", 0)
	v.SetDefault("password.history_depth", 5)
	v.SetDefault("password.expiry_ttl", "2160h") // 90 days

	v.SetDefault("lockout.max_attempts", 5)
	v.SetDefault("lockout.lock_duration", "15m")

	v.SetDefault("session.idle_ttl", "5m")
	v.SetDefault("session.cookie_name", "confess_session")

	v.SetDefault("reset.token_ttl", "15m")
	v.SetDefault("reset.link_base", "http://localhost:3000/reset-password")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.signup_max_attempts", 3)
	v.SetDefault("rate_limit.password_reset_max_attempts", 3)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "confession-api")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "CONFESS_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
