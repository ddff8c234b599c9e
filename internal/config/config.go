package config // package config loads application configuration from the environment

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable; a `.env` file is loaded into the
// environment by the caller before Load runs.
type Config struct {
	Env         string   `mapstructure:"APP_ENV"`      // development, test or production
	Port        string   `mapstructure:"APP_PORT"`     // HTTP port to listen on
	AppURL      string   `mapstructure:"APP_URL"`      // public base URL used in emailed links
	LogLevel    string   `mapstructure:"LOG_LEVEL"`    // zerolog level name
	StaticDir   string   `mapstructure:"STATIC_DIR"`   // frontend files served at /
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"` // allowed browser origins

	// TrustedProxies lists CIDRs of reverse proxies whose X-Forwarded-For
	// is believed.  Empty means the socket address is the client address.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	DBUser string `mapstructure:"DB_USER"`
	DBPass string `mapstructure:"DB_PASS"` // empty allowed
	DBHost string `mapstructure:"DB_HOST"`
	DBPort string `mapstructure:"DB_PORT"`
	DBName string `mapstructure:"DB_NAME"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`      // HMAC key for access tokens
	JWTExpiresIn  time.Duration `mapstructure:"JWT_EXPIRES_IN"`  // access token lifetime
	BcryptCost    int           `mapstructure:"BCRYPT_COST"`     // bcrypt cost factor
	ResetTokenTTL time.Duration `mapstructure:"RESET_TOKEN_TTL"` // password reset link lifetime

	LoginRateLimit LoginRateLimitConfig `mapstructure:",squash"`
	APIRateLimit   APIRateLimitConfig   `mapstructure:",squash"`
	Redis          RedisConfig          `mapstructure:",squash"`
	Mail           MailConfig           `mapstructure:",squash"`
	Queue          QueueConfig          `mapstructure:",squash"`
}

var defaults = map[string]any{
	"APP_ENV":         "development",
	"APP_PORT":        "3000",
	"APP_URL":         "http://localhost:3000",
	"LOG_LEVEL":       "info",
	"STATIC_DIR":      "public",
	"CORS_ORIGINS":    "*",
	"DB_PORT":         "3306",
	"JWT_EXPIRES_IN":  "8h",
	"BCRYPT_COST":     10,
	"RESET_TOKEN_TTL": "1h",
}

// keys lists every variable Load understands.  viper only unmarshals keys
// it knows about, so each one is bound explicitly.
var keys = []string{
	"APP_ENV", "APP_PORT", "APP_URL", "LOG_LEVEL", "STATIC_DIR", "CORS_ORIGINS", "TRUSTED_PROXIES",
	"DB_USER", "DB_PASS", "DB_HOST", "DB_PORT", "DB_NAME",
	"JWT_SECRET", "JWT_EXPIRES_IN", "BCRYPT_COST", "RESET_TOKEN_TTL",
}

// Load reads configuration from environment variables, applies defaults
// and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	setRateLimitDefaults(v)
	setRedisDefaults(v)
	setMailDefaults(v)
	setQueueDefaults(v)

	all := append([]string{}, keys...)
	all = append(all, rateLimitKeys...)
	all = append(all, redisKeys...)
	all = append(all, mailKeys...)
	all = append(all, queueKeys...)
	for _, k := range all {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	// older deployments name the database password DB_PASSWORD
	if err := v.BindEnv("DB_PASS", "DB_PASS", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("bind DB_PASS: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.TrustedProxies = splitList(cfg.TrustedProxies)
	cfg.Redis.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required variables and out-of-range values.
func (c *Config) Validate() error {
	var missing []string
	for k, val := range map[string]string{
		"DB_HOST":    c.DBHost,
		"DB_USER":    c.DBUser,
		"DB_NAME":    c.DBName,
		"JWT_SECRET": c.JWTSecret,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be a positive duration")
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("RESET_TOKEN_TTL must be a positive duration")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if _, err := ParseCIDRs(c.TrustedProxies); err != nil {
		return err
	}
	return c.LoginRateLimit.validate()
}

func (c *Config) IsDev() bool { return c.Env == "development" }

func (c *Config) IsProduction() bool { return c.Env == "production" }

// splitList flattens comma separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ParseCIDRs parses TRUSTED_PROXIES entries.  A bare address is taken as
// a single-host range.
func ParseCIDRs(in []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(in))
	for _, item := range in {
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", item)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
