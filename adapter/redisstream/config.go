package redisstream

import (
	"fmt"
	"time"
)

// Config for the Redis Streams journal.
type Config struct {
	// Connection
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string
	PoolSize      int

	// Stream management
	Stream       string
	MaxLenApprox int64
	PingTimeout  time.Duration
}

// Defaults returns a Config with production-safe defaults.
func Defaults() Config {
	return Config{
		Addr:         "127.0.0.1:6379",
		DB:           0,
		TLS:          false,
		PoolSize:     4,
		Stream:       "xframe:journal",
		MaxLenApprox: 100_000,
		PingTimeout:  2 * time.Second,
	}
}

// Validate checks Config for production readiness.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.Stream == "" {
		return fmt.Errorf("config: stream required")
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("config: pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.MaxLenApprox < 0 {
		return fmt.Errorf("config: max_len_approx must be >= 0, got %d", c.MaxLenApprox)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("config: ping_timeout must be > 0, got %v", c.PingTimeout)
	}
	return nil
}

// toMap converts Config to generic map for the journal factory.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"addr":            c.Addr,
		"username":        c.Username,
		"password":        c.Password,
		"db":              c.DB,
		"tls":             c.TLS,
		"tls_server_name": c.TLSServerName,
		"pool_size":       c.PoolSize,
		"stream":          c.Stream,
		"max_len_approx":  c.MaxLenApprox,
		"ping_timeout":    c.PingTimeout,
	}
}

// ConfigFromMap safely converts generic map to Config with defaults.
// Numbers may arrive as any integer type or float64 (YAML, JSON), durations as
// time.Duration or a string such as "2s".
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	if v, ok := m["addr"].(string); ok && v != "" {
		c.Addr = v
	}
	if v, ok := m["username"].(string); ok {
		c.Username = v
	}
	if v, ok := m["password"].(string); ok {
		c.Password = v
	}
	if v, ok := toInt64(m["db"]); ok && v >= 0 {
		c.DB = int(v)
	}
	if v, ok := m["tls"].(bool); ok {
		c.TLS = v
	}
	if v, ok := m["tls_server_name"].(string); ok {
		c.TLSServerName = v
	}
	if v, ok := toInt64(m["pool_size"]); ok && v > 0 {
		c.PoolSize = int(v)
	}
	if v, ok := m["stream"].(string); ok && v != "" {
		c.Stream = v
	}
	if v, ok := toInt64(m["max_len_approx"]); ok && v >= 0 {
		c.MaxLenApprox = v
	}
	switch v := m["ping_timeout"].(type) {
	case time.Duration:
		if v > 0 {
			c.PingTimeout = v
		}
	case string:
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.PingTimeout = d
		}
	}

	return c
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
