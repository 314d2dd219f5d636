package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "STOREFRONT"

type Config struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	HTTPPort        string        `mapstructure:"http_port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`

	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
}

type SessionConfig struct {
	Backend      string        `mapstructure:"backend"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type PaymentConfig struct {
	StoreName   string `mapstructure:"store_name"`
	Description string `mapstructure:"description"`
	ThemeColor  string `mapstructure:"theme_color"`
}

type CheckoutConfig struct {
	TrimRequired bool `mapstructure:"trim_required"`
}

type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Failures    uint32        `mapstructure:"failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", "http://localhost:8001/api")
	v.SetDefault("http_port", "8080")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("max_body_bytes", 1<<20) // 1MB
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 2*time.Hour)
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "storefront-payments")

	v.SetDefault("payment.store_name", "Mangal Chai")
	v.SetDefault("payment.description", "Tea order")
	v.SetDefault("payment.theme_color", "#3399cc")

	v.SetDefault("checkout.trim_required", false)

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.failures", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)
}

// New returns a viper instance reading STOREFRONT_* variables, so
// session.backend is STOREFRONT_SESSION_BACKEND.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and unmarshals v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(strings.Join(cfg.Kafka.Brokers, ","))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url %q is not an absolute URL", c.APIBaseURL))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("http_port is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("session.backend %q must be memory or redis", c.Session.Backend))
	}
	if c.Breaker.Enabled && c.Breaker.Failures == 0 {
		errs = append(errs, errors.New("breaker.failures must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
