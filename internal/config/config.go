package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sanctuary/sanctuary-api/internal/types"
	"github.com/sanctuary/sanctuary-api/internal/validator"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Stripe     StripeConfig     `mapstructure:"stripe" validate:"required"`
	Plans      PlansConfig      `mapstructure:"plans"`
	Store      StoreConfig      `mapstructure:"store" validate:"required"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address     string        `mapstructure:"address"`
	Port        string        `mapstructure:"port"`
	ServiceName string        `mapstructure:"service_name" validate:"required"`
	WebhookPath string        `mapstructure:"webhook_path" validate:"required,startswith=/"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	MaxBodySize int64         `mapstructure:"max_body_size" validate:"gt=0"`
}

// ListenAddress returns the address the HTTP server binds to.
// An explicit address wins over a bare port.
func (s ServerConfig) ListenAddress() string {
	if s.Address != "" {
		return s.Address
	}
	if s.Port != "" {
		return ":" + s.Port
	}
	return ":3001"
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type AuthConfig struct {
	Provider  types.AuthProvider `mapstructure:"provider" validate:"required,oneof=supabase jwt"`
	Supabase  SupabaseConfig     `mapstructure:"supabase" validate:"required"`
	Directory DirectoryConfig    `mapstructure:"directory"`
}

type SupabaseConfig struct {
	URL        string `mapstructure:"url" validate:"required,url"`
	ServiceKey string `mapstructure:"service_key" validate:"required"`
	// JWTSecret is only needed by the jwt provider
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DirectoryConfig tunes the admin user directory used to resolve emails to users
type DirectoryConfig struct {
	PageSize int           `mapstructure:"page_size" validate:"gte=1,lte=1000"`
	MaxPages int           `mapstructure:"max_pages" validate:"gte=1"`
	RetryMax int           `mapstructure:"retry_max" validate:"gte=0"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver types.StoreDriver `mapstructure:"driver" validate:"required,oneof=postgres memory"`
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// NewConfig loads and validates the configuration. Any missing required
// setting aborts startup.
func NewConfig() (*Configuration, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfig reads the configuration without validating it, for tooling that
// only needs a subset of the settings.
func LoadConfig() (*Configuration, error) {
	// .env is optional and only used for local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/sanctuary")

	v.SetEnvPrefix("SANCTUARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeAPI)
	v.SetDefault("server.address", "")
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.service_name", "sanctuary-api")
	v.SetDefault("server.webhook_path", "/webhooks/stripe")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.max_body_size", 1<<20)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("auth.provider", types.AuthProviderSupabase)
	v.SetDefault("auth.supabase.url", "")
	v.SetDefault("auth.supabase.service_key", "")
	v.SetDefault("auth.supabase.jwt_secret", "")
	v.SetDefault("auth.directory.page_size", 200)
	v.SetDefault("auth.directory.max_pages", 50)
	v.SetDefault("auth.directory.retry_max", 2)
	v.SetDefault("auth.directory.timeout", 10*time.Second)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.tolerance", 5*time.Minute)
	v.SetDefault("plans.price_map", "")
	v.SetDefault("plans.standard_price_id", "")
	v.SetDefault("plans.premium_price_id", "")
	v.SetDefault("store.driver", types.StoreDriverPostgres)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.sample_rate", 0.1)
}

// bindLegacyEnv keeps the variable names of existing deployments working
// next to the prefixed ones.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"auth.supabase.url":         {"SANCTUARY_AUTH_SUPABASE_URL", "SUPABASE_URL"},
		"auth.supabase.service_key": {"SANCTUARY_AUTH_SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_ROLE_KEY"},
		"auth.supabase.jwt_secret":  {"SANCTUARY_AUTH_SUPABASE_JWT_SECRET", "SUPABASE_JWT_SECRET"},
		"stripe.secret_key":         {"SANCTUARY_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY"},
		"stripe.webhook_secret":     {"SANCTUARY_STRIPE_WEBHOOK_SECRET", "STRIPE_WEBHOOK_SECRET"},
		"plans.standard_price_id":   {"SANCTUARY_PLANS_STANDARD_PRICE_ID", "STRIPE_PRICE_STANDARD"},
		"plans.premium_price_id":    {"SANCTUARY_PLANS_PREMIUM_PRICE_ID", "STRIPE_PRICE_PREMIUM"},
		"server.port":               {"SANCTUARY_SERVER_PORT", "PORT"},
		"postgres.dsn":              {"SANCTUARY_POSTGRES_DSN", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

func (c Configuration) Validate() error {
	if err := validator.ValidateRequest(c); err != nil {
		return err
	}

	if c.Auth.Provider == types.AuthProviderJWT && c.Auth.Supabase.JWTSecret == "" {
		return errors.New("auth.supabase.jwt_secret is required when auth.provider is jwt")
	}

	if c.Store.Driver == types.StoreDriverPostgres && c.Postgres.DSN == "" && c.Postgres.DBName == "" {
		return errors.New("postgres.dsn or postgres.dbname is required when store.driver is postgres")
	}

	if _, err := c.Plans.Mapping(); err != nil {
		return err
	}

	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server: ServerConfig{
			Port:        "3001",
			ServiceName: "sanctuary-api",
			WebhookPath: "/webhooks/stripe",
			MaxBodySize: 1 << 20,
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
		Auth: AuthConfig{
			Provider: types.AuthProviderSupabase,
			Directory: DirectoryConfig{
				PageSize: 200,
				MaxPages: 50,
				RetryMax: 0,
				Timeout:  5 * time.Second,
			},
		},
		Stripe: StripeConfig{Tolerance: 5 * time.Minute},
		Store:  StoreConfig{Driver: types.StoreDriverMemory},
	}
}

func (c PostgresConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
