package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Provider  ProviderSettings  `mapstructure:"provider"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Governor  GovernorSettings  `mapstructure:"governor"`
	Sync      SyncSettings      `mapstructure:"sync"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name          string `mapstructure:"name"`
	Env           string `mapstructure:"env"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// ProviderSettings configures the external identity provider. BaseURL,
// AnonKey, and JWTSecret have no defaults: the service refuses to start when
// they are absent rather than running partially configured.
type ProviderSettings struct {
	BaseURL        string        `mapstructure:"base_url"`
	AnonKey        string        `mapstructure:"anon_key"`
	ServiceRoleKey string        `mapstructure:"service_role_key"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
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

// RedisSettings configures Redis connection and TLS.
type RedisSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              int           `mapstructure:"db"`
	Password        string        `mapstructure:"password"`
	TLSEnabled      bool          `mapstructure:"tls_enabled"`
	RateLimitPrefix string        `mapstructure:"rate_limit_prefix"`
	ResetTokenTTL   time.Duration `mapstructure:"reset_token_ttl"`
}

// KafkaSettings configures the event bus producer and the identity-created
// consumer group.
type KafkaSettings struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	GroupID       string   `mapstructure:"group_id"`
	IdentityTopic string   `mapstructure:"identity_topic"`
	Async         bool     `mapstructure:"async"`
}

// RateLimitSettings configures server-side sliding-window limits per endpoint.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
	SignupMaxAttempt int           `mapstructure:"signup_max_attempts"`
	ResetMaxAttempts int           `mapstructure:"reset_max_attempts"`
}

// GovernorSettings tunes the client-facing login attempt governor.
type GovernorSettings struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	BaseCooldown     time.Duration `mapstructure:"base_cooldown"`
	MaxCooldown      time.Duration `mapstructure:"max_cooldown"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
}

// SyncSettings tunes the background divergence sweep. A zero interval
// disables it.
type SyncSettings struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PROCURA")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.migrations_dir",
		"provider.base_url",
		"provider.anon_key",
		"provider.service_role_key",
		"provider.jwt_secret",
		"provider.timeout",
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
		"redis.rate_limit_prefix",
		"redis.reset_token_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.group_id",
		"kafka.identity_topic",
		"kafka.async",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.signup_max_attempts",
		"rate_limit.reset_max_attempts",
		"governor.failure_threshold",
		"governor.base_cooldown",
		"governor.max_cooldown",
		"governor.session_ttl",
		"sync.check_interval",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on missing provider configuration. Operating without
// the provider endpoint or keys would leave every auth path broken in ways
// that only surface at request time.
func (c *AppConfig) Validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		missing = append(missing, "provider.base_url")
	}
	if strings.TrimSpace(c.Provider.AnonKey) == "" {
		missing = append(missing, "provider.anon_key")
	}
	if strings.TrimSpace(c.Provider.JWTSecret) == "" {
		missing = append(missing, "provider.jwt_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "procura-identity")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.migrations_dir", "migrations")

	v.SetDefault("provider.timeout", "10s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "procura")
	v.SetDefault("postgres.password", "procura_password")
	v.SetDefault("postgres.database", "procura")
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
	v.SetDefault("redis.rate_limit_prefix", "procura:rate-limit")
	v.SetDefault("redis.reset_token_ttl", "1h")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "procura")
	v.SetDefault("kafka.group_id", "procura-identity-sync")
	v.SetDefault("kafka.identity_topic", "identity.created")
	v.SetDefault("kafka.async", true)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.signup_max_attempts", 5)
	v.SetDefault("rate_limit.reset_max_attempts", 3)

	v.SetDefault("governor.failure_threshold", 3)
	v.SetDefault("governor.base_cooldown", "30s")
	v.SetDefault("governor.max_cooldown", "5m")
	v.SetDefault("governor.session_ttl", "30m")

	v.SetDefault("sync.check_interval", "5m")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "procura-identity")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "PROCURA_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
