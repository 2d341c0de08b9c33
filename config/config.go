package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	UploadsDir      string        `mapstructure:"uploads_dir"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

type MongoConfig struct {
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type JWTConfig struct {
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string        `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	// Per-client token bucket applied to every request.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	LoginLimit          int           `mapstructure:"login_limit"`
	LoginWindow         time.Duration `mapstructure:"login_window"`
	TestimonialLimit    int           `mapstructure:"testimonial_limit"`
	TestimonialWindow   time.Duration `mapstructure:"testimonial_window"`
	PasswordResetLimit  int           `mapstructure:"password_reset_limit"`
	PasswordResetWindow time.Duration `mapstructure:"password_reset_window"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

type CORSConfig struct {
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

type StorageConfig struct {
	// Driver is "local" or "s3".
	Driver        string `mapstructure:"driver"`
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
}

type EmailConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	From    string        `mapstructure:"from"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuditConfig struct {
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	ActorCacheTTL   time.Duration `mapstructure:"actor_cache_ttl"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	FrontendURL string `mapstructure:"frontend_url"`
	PublicURL   string `mapstructure:"public_url"`

	// PublicCacheTTL bounds how long public doctor and service lists are cached.
	PublicCacheTTL time.Duration `mapstructure:"public_cache_ttl"`
}

// Secrets are only ever read from the environment (or .env).
type Secrets struct {
	MongoURI          string `envconfig:"MONGO_URI" required:"true"`
	JWTSecret         string `envconfig:"JWT_SECRET" required:"true"`
	JWTRefreshSecret  string `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	RedisURL          string `envconfig:"REDIS_URL"`
	SMTPUser          string `envconfig:"SMTP_USER"`
	SMTPPassword      string `envconfig:"SMTP_PASSWORD"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID    string `envconfig:"TELEGRAM_CHAT_ID"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Email     EmailConfig     `mapstructure:"email"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
	Secrets   Secrets         `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pediatric-clinic-api")
	v.SetDefault("app.frontend_url", "http://localhost:5173")
	v.SetDefault("app.public_url", "http://localhost:5000")
	v.SetDefault("app.public_cache_ttl", "1m")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.uploads_dir", "uploads")
	v.SetDefault("server.max_upload_mb", 10)

	v.SetDefault("mongo.database", "pediatric_clinic")
	v.SetDefault("mongo.connect_timeout", "10s")

	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("jwt.issuer", "pediatric-clinic-api")

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.login_limit", 5)
	v.SetDefault("rate_limit.login_window", "15m")
	v.SetDefault("rate_limit.testimonial_limit", 3)
	v.SetDefault("rate_limit.testimonial_window", "15m")
	v.SetDefault("rate_limit.password_reset_limit", 3)
	v.SetDefault("rate_limit.password_reset_window", "15m")
	v.SetDefault("rate_limit.sweep_interval", "5m")

	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.max_age", "12h")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "smtp-relay.brevo.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.timeout", "15s")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.timeout", "5s")

	v.SetDefault("audit.retention_days", 365)
	v.SetDefault("audit.cleanup_interval", "24h")
	v.SetDefault("audit.actor_cache_ttl", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads .env, then config.yml (optional), then environment overrides.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Secrets); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements that defaults cannot express.
func (c *Config) Validate() error {
	if c.Secrets.JWTSecret == c.Secrets.JWTRefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Email.Enabled && c.Email.From == "" {
		return errors.New("email.from is required when email is enabled")
	}

	limits := []struct {
		name   string
		limit  int
		window time.Duration
	}{
		{"login", c.RateLimit.LoginLimit, c.RateLimit.LoginWindow},
		{"testimonial", c.RateLimit.TestimonialLimit, c.RateLimit.TestimonialWindow},
		{"password_reset", c.RateLimit.PasswordResetLimit, c.RateLimit.PasswordResetWindow},
	}
	for _, l := range limits {
		if l.limit <= 0 || l.window <= 0 {
			return fmt.Errorf("rate_limit.%s_limit and rate_limit.%s_window must be positive", l.name, l.name)
		}
	}
	return nil
}
