package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/coopay/backend/internal/domain/allocation"
	"github.com/coopay/backend/internal/domain/fee"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Paystack     PaystackConfig
	Notification NotificationConfig
	Settlement   SettlementConfig
	Fees         FeesConfig
	Allocation   AllocationConfig
	Telemetry    TelemetryConfig
	Realtime     RealtimeConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name         string
	Env          string
	Port         string
	DashboardURL string // base URL the welcome messages link to
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool // apply embedded migrations on server start
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis
// and the settlement lock falls back to an in-process lock.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings for the admin surface
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	// Per-IP limit on checkout initialization; zero requests disables it
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Redirect targets for the payment callback
	SuccessURL string
	FailureURL string
	PendingURL string
}

// PaystackConfig holds gateway credentials
type PaystackConfig struct {
	BaseURL         string
	SecretKey       string
	CallbackURL     string
	PreferredBank   string
	Timeout         time.Duration
	VirtualAccounts bool // provision dedicated virtual accounts on registration
}

// NotificationConfig holds email and SMS provider settings
type NotificationConfig struct {
	SMTP SMTPConfig
	SMS  SMSConfig
}

// SMTPConfig holds SMTP settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool // implicit TLS (port 465)
}

// SMSConfig holds SMS provider settings
type SMSConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// SettlementConfig holds settlement tuning
type SettlementConfig struct {
	VerifyTimeout time.Duration
	LockTTL       time.Duration
	StaleAfter    time.Duration
	// SweepInterval is how often stale claims are reconciled; zero disables the sweeper
	SweepInterval  time.Duration
	SweepBatchSize int
}

// FeesConfig holds the fee policy and registration prices
type FeesConfig struct {
	Rate                    string
	FlatFee                 string
	Threshold               string
	Cap                     string
	CooperativeRegistration string
	MemberRegistration      string
}

// Policy returns the fee policy described by the config
func (f FeesConfig) Policy() (fee.Policy, error) {
	rate, err := decimal.NewFromString(f.Rate)
	if err != nil {
		return fee.Policy{}, fmt.Errorf("fees.rate: %w", err)
	}
	flat, err := decimal.NewFromString(f.FlatFee)
	if err != nil {
		return fee.Policy{}, fmt.Errorf("fees.flat_fee: %w", err)
	}
	threshold, err := decimal.NewFromString(f.Threshold)
	if err != nil {
		return fee.Policy{}, fmt.Errorf("fees.threshold: %w", err)
	}
	feeCap, err := decimal.NewFromString(f.Cap)
	if err != nil {
		return fee.Policy{}, fmt.Errorf("fees.cap: %w", err)
	}
	return fee.Policy{Rate: rate, FlatFee: flat, Threshold: threshold, Cap: feeCap}, nil
}

// Registration returns the cooperative and member registration prices
func (f FeesConfig) Registration() (cooperative, member decimal.Decimal, err error) {
	if cooperative, err = fee.ParseAmount(f.CooperativeRegistration); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fees.cooperative_registration: %w", err)
	}
	if member, err = fee.ParseAmount(f.MemberRegistration); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fees.member_registration: %w", err)
	}
	return cooperative, member, nil
}

// AllocationConfig holds the percentage table seeded as version 1
type AllocationConfig struct {
	ApexFunds               float64
	PlatformFunds           float64
	CooperativeShare        float64
	LeaderShare             float64
	ParentOrganizationShare float64
	CacheTTL                time.Duration
}

// Shares converts the seed table to domain shares
func (a AllocationConfig) Shares() allocation.Shares {
	return allocation.Shares{
		ApexFunds:               decimal.NewFromFloat(a.ApexFunds),
		PlatformFunds:           decimal.NewFromFloat(a.PlatformFunds),
		CooperativeShare:        decimal.NewFromFloat(a.CooperativeShare),
		LeaderShare:             decimal.NewFromFloat(a.LeaderShare),
		ParentOrganizationShare: decimal.NewFromFloat(a.ParentOrganizationShare),
	}
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
	LogsEnabled       bool    // Export zap records through the OTLP log pipeline
	MetricsInterval   time.Duration
	Profiling         ProfilingConfig
}

// ProfilingConfig holds Pyroscope settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	BasicAuthUser     string
	BasicAuthPassword string
}

// RealtimeConfig holds dashboard websocket settings
type RealtimeConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	AllowOrigins []string
}

// Load loads configuration from TOML files and environment variables
// Priority (highest to lowest):
// 1. Environment variables with COOPAY_ prefix (e.g., COOPAY_PAYSTACK_SECRET_KEY)
// 2. config.<env>.toml
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith builds the configuration from a prepared viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/coopay")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("COOPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if env := v.GetString("app.env"); env != "" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading %s config file: %w", env, err)
			}
		}
	}

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			DashboardURL: v.GetString("app.dashboard_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			SuccessURL:        v.GetString("http.success_url"),
			FailureURL:        v.GetString("http.failure_url"),
			PendingURL:        v.GetString("http.pending_url"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Paystack: PaystackConfig{
			BaseURL:         v.GetString("paystack.base_url"),
			SecretKey:       v.GetString("paystack.secret_key"),
			CallbackURL:     v.GetString("paystack.callback_url"),
			PreferredBank:   v.GetString("paystack.preferred_bank"),
			Timeout:         v.GetDuration("paystack.timeout"),
			VirtualAccounts: v.GetBool("paystack.virtual_accounts"),
		},
		Notification: NotificationConfig{
			SMTP: SMTPConfig{
				Host:     v.GetString("notification.smtp.host"),
				Port:     v.GetInt("notification.smtp.port"),
				Username: v.GetString("notification.smtp.username"),
				Password: v.GetString("notification.smtp.password"),
				From:     v.GetString("notification.smtp.from"),
				FromName: v.GetString("notification.smtp.from_name"),
				TLS:      v.GetBool("notification.smtp.tls"),
			},
			SMS: SMSConfig{
				BaseURL:  v.GetString("notification.sms.base_url"),
				APIKey:   v.GetString("notification.sms.api_key"),
				SenderID: v.GetString("notification.sms.sender_id"),
				Timeout:  v.GetDuration("notification.sms.timeout"),
			},
		},
		Settlement: SettlementConfig{
			VerifyTimeout:  v.GetDuration("settlement.verify_timeout"),
			LockTTL:        v.GetDuration("settlement.lock_ttl"),
			StaleAfter:     v.GetDuration("settlement.stale_after"),
			SweepInterval:  v.GetDuration("settlement.sweep_interval"),
			SweepBatchSize: v.GetInt("settlement.sweep_batch_size"),
		},
		Fees: FeesConfig{
			Rate:                    v.GetString("fees.rate"),
			FlatFee:                 v.GetString("fees.flat_fee"),
			Threshold:               v.GetString("fees.threshold"),
			Cap:                     v.GetString("fees.cap"),
			CooperativeRegistration: v.GetString("fees.cooperative_registration"),
			MemberRegistration:      v.GetString("fees.member_registration"),
		},
		Allocation: AllocationConfig{
			ApexFunds:               v.GetFloat64("allocation.apex_funds"),
			PlatformFunds:           v.GetFloat64("allocation.platform_funds"),
			CooperativeShare:        v.GetFloat64("allocation.cooperative_share"),
			LeaderShare:             v.GetFloat64("allocation.leader_share"),
			ParentOrganizationShare: v.GetFloat64("allocation.parent_organization_share"),
			CacheTTL:                v.GetDuration("allocation.cache_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			Profiling: ProfilingConfig{
				Enabled:           v.GetBool("telemetry.profiling.enabled"),
				ServerAddress:     v.GetString("telemetry.profiling.server_address"),
				BasicAuthUser:     v.GetString("telemetry.profiling.basic_auth_user"),
				BasicAuthPassword: v.GetString("telemetry.profiling.basic_auth_password"),
			},
		},
		Realtime: RealtimeConfig{
			PingInterval: v.GetDuration("realtime.ping_interval"),
			WriteTimeout: v.GetDuration("realtime.write_timeout"),
			AllowOrigins: v.GetStringSlice("realtime.allow_origins"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "coopay-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.dashboard_url", "http://localhost:3000")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "coopay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.conn_max_idle_time", 30)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.port", 6379)

	v.SetDefault("jwt.issuer", "coopay-backend")
	v.SetDefault("jwt.access_token_expiration", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_size", 1<<20)
	v.SetDefault("http.success_url", "http://localhost:3000/payment/success")
	v.SetDefault("http.failure_url", "http://localhost:3000/payment/failed")
	v.SetDefault("http.pending_url", "http://localhost:3000/payment/pending")
	v.SetDefault("http.rate_limit_requests", 30)
	v.SetDefault("http.rate_limit_window", time.Minute)

	v.SetDefault("paystack.base_url", "https://api.paystack.co")
	v.SetDefault("paystack.callback_url", "http://localhost:8080/api/v1/payments/callback")
	v.SetDefault("paystack.preferred_bank", "wema-bank")
	v.SetDefault("paystack.timeout", 20*time.Second)

	v.SetDefault("notification.smtp.port", 587)
	v.SetDefault("notification.smtp.from_name", "CooPay")
	v.SetDefault("notification.sms.timeout", 10*time.Second)
	v.SetDefault("notification.sms.sender_id", "CooPay")

	v.SetDefault("settlement.verify_timeout", 15*time.Second)
	v.SetDefault("settlement.lock_ttl", 30*time.Second)
	v.SetDefault("settlement.stale_after", 10*time.Minute)
	v.SetDefault("settlement.sweep_interval", time.Minute)
	v.SetDefault("settlement.sweep_batch_size", 50)

	v.SetDefault("fees.rate", "0.015")
	v.SetDefault("fees.flat_fee", "100")
	v.SetDefault("fees.threshold", "2500")
	v.SetDefault("fees.cap", "2000")
	v.SetDefault("fees.cooperative_registration", "50000")
	v.SetDefault("fees.member_registration", "5000")

	v.SetDefault("allocation.apex_funds", 40)
	v.SetDefault("allocation.platform_funds", 20)
	v.SetDefault("allocation.cooperative_share", 20)
	v.SetDefault("allocation.leader_share", 15)
	v.SetDefault("allocation.parent_organization_share", 5)
	v.SetDefault("allocation.cache_ttl", 30*time.Second)

	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "coopay-backend")
	v.SetDefault("telemetry.metrics_interval", 15*time.Second)
	v.SetDefault("telemetry.profiling.server_address", "http://localhost:4040")

	v.SetDefault("realtime.ping_interval", 30*time.Second)
	v.SetDefault("realtime.write_timeout", 10*time.Second)
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := c.Fees.Policy(); err != nil {
		return err
	}
	if _, _, err := c.Fees.Registration(); err != nil {
		return err
	}
	if err := c.Allocation.Shares().Validate(); err != nil {
		return fmt.Errorf("allocation: %w", err)
	}
	if c.Settlement.VerifyTimeout <= 0 {
		return fmt.Errorf("settlement.verify_timeout must be positive")
	}
	if c.Settlement.SweepInterval > 0 && c.Settlement.SweepBatchSize <= 0 {
		return fmt.Errorf("settlement.sweep_batch_size must be positive when the sweeper is enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !strings.HasPrefix(c.Paystack.SecretKey, "sk_live_") {
			return fmt.Errorf("paystack.secret_key must be a live secret key in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
