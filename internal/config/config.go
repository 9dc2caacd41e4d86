package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Store     StoreConfig     `mapstructure:"store"`
	Email     EmailConfig     `mapstructure:"email"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Expo      ExpoConfig      `mapstructure:"expo"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig holds async queue settings.
type QueueConfig struct {
	Name        string `mapstructure:"name"`
	Concurrency int    `mapstructure:"concurrency"`
}

// FirebaseConfig holds Firebase project settings. An empty CredentialsFile falls
// back to application default credentials.
type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// SupabaseConfig holds Supabase project settings.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// StoreConfig selects where notification receipts are kept.
type StoreConfig struct {
	ReceiptsDriver string `mapstructure:"receipts_driver"`
}

// EmailConfig holds email provider settings. TemplatesDir overrides the embedded
// email templates when set.
type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	TemplatesDir string `mapstructure:"templates_dir"`
}

// SMSConfig holds Twilio settings.
type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

// ExpoConfig holds Expo push service settings.
type ExpoConfig struct {
	AccessToken string `mapstructure:"access_token"`
}

// StripeConfig holds Stripe webhook settings.
type StripeConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// NotifyConfig holds dispatcher tunables.
type NotifyConfig struct {
	OrderStatusCooldown  time.Duration `mapstructure:"order_status_cooldown"`
	ProximityCooldown    time.Duration `mapstructure:"proximity_cooldown"`
	DealCooldown         time.Duration `mapstructure:"deal_cooldown"`
	ProximityRadiusMiles float64       `mapstructure:"proximity_radius_miles"`
	AmbientMaxPerHour    int           `mapstructure:"ambient_max_per_hour"`
	AmbientConcurrency   int           `mapstructure:"ambient_concurrency"`
	SendTimeout          time.Duration `mapstructure:"send_timeout"`
	PruneTimeout         time.Duration `mapstructure:"prune_timeout"`
}

// RetentionConfig holds receipt retention sweep settings.
type RetentionConfig struct {
	Days      int    `mapstructure:"days"`
	Cron      string `mapstructure:"cron"`
	BatchSize int    `mapstructure:"batch_size"`
}

// RetentionPeriod returns the retention window as a duration.
func (r RetentionConfig) RetentionPeriod() time.Duration {
	return time.Duration(r.Days) * 24 * time.Hour
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the APPETITE_ prefix and underscore separators.
// Example: APPETITE_SERVER_PORT overrides server.port in config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("APPETITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional, env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Env vars arrive comma-separated
	cfg.Auth.APIKeys = trimList(cfg.Auth.APIKeys)
	cfg.CORS.AllowedOrigins = trimList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a real default are still registered so env vars reach Unmarshal
	for _, key := range []string{
		"firebase.project_id", "firebase.credentials_file",
		"supabase.url", "supabase.service_key",
		"email.api_key", "email.from_address", "email.templates_dir",
		"sms.account_sid", "sms.auth_token", "sms.from_number",
		"expo.access_token", "stripe.webhook_secret",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("auth.api_keys", []string{})

	v.SetDefault("server.port", 8081)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.name", "notifications")
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("store.receipts_driver", "firestore")
	v.SetDefault("email.provider", "sendgrid")
	v.SetDefault("email.from_name", "Ping My Appetite")
	v.SetDefault("notify.order_status_cooldown", 5*time.Minute)
	v.SetDefault("notify.proximity_cooldown", time.Hour)
	v.SetDefault("notify.deal_cooldown", 6*time.Hour)
	v.SetDefault("notify.proximity_radius_miles", 1.0)
	v.SetDefault("notify.ambient_max_per_hour", 3)
	v.SetDefault("notify.ambient_concurrency", 8)
	v.SetDefault("notify.send_timeout", 10*time.Second)
	v.SetDefault("notify.prune_timeout", 10*time.Second)
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.cron", "0 4 * * *")
	v.SetDefault("retention.batch_size", 500)
}

// trimList drops blanks left by comma-separated env values like "a, b,".
func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings the binaries cannot start with.
func (c *Config) Validate() error {
	switch c.Store.ReceiptsDriver {
	case "firestore":
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("store.receipts_driver is supabase but supabase.url or supabase.service_key is empty")
		}
	default:
		return fmt.Errorf("unknown store.receipts_driver %q", c.Store.ReceiptsDriver)
	}

	switch c.Email.Provider {
	case "sendgrid", "resend":
	default:
		return fmt.Errorf("unknown email.provider %q", c.Email.Provider)
	}

	if c.Retention.Days < 1 {
		return fmt.Errorf("retention.days must be at least 1, got %d", c.Retention.Days)
	}
	if c.Notify.ProximityRadiusMiles <= 0 {
		return fmt.Errorf("notify.proximity_radius_miles must be positive")
	}
	return nil
}
