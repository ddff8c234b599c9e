package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoginRateLimitConfig bounds login attempts per client address inside a
// fixed window.  Store selects where the counters live: "memory" keeps
// them in the process, "redis" shares them through Redis.
type LoginRateLimitConfig struct {
	Max    int           `mapstructure:"LOGIN_RATE_LIMIT_MAX"`
	Window time.Duration `mapstructure:"LOGIN_RATE_LIMIT_WINDOW"`
	Store  string        `mapstructure:"RATE_LIMIT_STORE"`
	Prefix string        `mapstructure:"RATE_LIMIT_PREFIX"`
}

// APIRateLimitConfig is the general per-address token bucket applied to
// every /api request.  A zero RPS disables it.
type APIRateLimitConfig struct {
	RPS   float64 `mapstructure:"API_RATE_LIMIT_RPS"`
	Burst int     `mapstructure:"API_RATE_LIMIT_BURST"`
}

var rateLimitKeys = []string{
	"LOGIN_RATE_LIMIT_MAX", "LOGIN_RATE_LIMIT_WINDOW", "RATE_LIMIT_STORE", "RATE_LIMIT_PREFIX",
	"API_RATE_LIMIT_RPS", "API_RATE_LIMIT_BURST",
}

func setRateLimitDefaults(v *viper.Viper) {
	v.SetDefault("LOGIN_RATE_LIMIT_MAX", 5)
	v.SetDefault("LOGIN_RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_STORE", "memory")
	v.SetDefault("RATE_LIMIT_PREFIX", "rl")
	v.SetDefault("API_RATE_LIMIT_RPS", 20)
	v.SetDefault("API_RATE_LIMIT_BURST", 40)
}

// UseRedis reports whether login counters should be kept in Redis.
func (c LoginRateLimitConfig) UseRedis() bool {
	return strings.EqualFold(c.Store, "redis")
}

func (c LoginRateLimitConfig) validate() error {
	if c.Max < 1 {
		return fmt.Errorf("LOGIN_RATE_LIMIT_MAX must be at least 1, got %d", c.Max)
	}
	if c.Window <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT_WINDOW must be a positive duration")
	}
	switch strings.ToLower(c.Store) {
	case "memory", "redis":
		return nil
	}
	return fmt.Errorf("RATE_LIMIT_STORE must be \"memory\" or \"redis\", got %q", c.Store)
}
