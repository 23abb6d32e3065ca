package xframe

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config tunes a World. Zero values are not defaults; start from Defaults().
type Config struct {
	// DrainCap is the number of messages one frame delivers (<= 0 = unbounded).
	DrainCap int `yaml:"drain_cap"`
	// UpdateInterval throttles scheduler passes (0 = every frame).
	UpdateInterval time.Duration `yaml:"update_interval"`
	// FailFast lets a panicking Think abort the pass instead of being isolated.
	FailFast bool `yaml:"fail_fast"`
	// SlowThinkBudget reports entities whose Think exceeds it (0 = off).
	SlowThinkBudget time.Duration `yaml:"slow_think_budget"`

	// LogRate caps failure log lines per second (0 = unthrottled).
	LogRate  float64 `yaml:"log_rate"`
	LogBurst int     `yaml:"log_burst"`

	// Journal names a registered journal backend ("" = no journal).
	Journal       string              `yaml:"journal"`
	JournalConfig map[string]any      `yaml:"journal_config"`
	JournalCodec  string              `yaml:"journal_codec"`
	JournalWriter JournalWriterConfig `yaml:"journal_writer"`
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		DrainCap:     DefaultDrainCap,
		LogRate:      5,
		LogBurst:     10,
		JournalCodec: "json",
	}
}

// Validate checks the config for values no component accepts.
func (c Config) Validate() error {
	if c.UpdateInterval < 0 {
		return fmt.Errorf("%w: update_interval must be >= 0, got %v", ErrInvalidConfig, c.UpdateInterval)
	}
	if c.SlowThinkBudget < 0 {
		return fmt.Errorf("%w: slow_think_budget must be >= 0, got %v", ErrInvalidConfig, c.SlowThinkBudget)
	}
	if c.LogRate < 0 {
		return fmt.Errorf("%w: log_rate must be >= 0, got %v", ErrInvalidConfig, c.LogRate)
	}
	if c.LogRate > 0 && c.LogBurst < 1 {
		return fmt.Errorf("%w: log_burst must be >= 1 when log_rate is set", ErrInvalidConfig)
	}
	if c.JournalCodec != "" {
		if _, err := NewCodec(c.JournalCodec); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// toMap converts Config to a generic map, the shape ConfigFromMap reads.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"drain_cap":         c.DrainCap,
		"update_interval":   c.UpdateInterval,
		"fail_fast":         c.FailFast,
		"slow_think_budget": c.SlowThinkBudget,
		"log_rate":          c.LogRate,
		"log_burst":         c.LogBurst,
		"journal":           c.Journal,
		"journal_config":    c.JournalConfig,
		"journal_codec":     c.JournalCodec,
	}
}

// ConfigFromMap safely converts a generic map to Config with defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	if v, ok := toInt(m["drain_cap"]); ok {
		c.DrainCap = v
	}
	if v, ok := toDuration(m["update_interval"]); ok && v >= 0 {
		c.UpdateInterval = v
	}
	if v, ok := m["fail_fast"].(bool); ok {
		c.FailFast = v
	}
	if v, ok := toDuration(m["slow_think_budget"]); ok && v >= 0 {
		c.SlowThinkBudget = v
	}
	if v, ok := toFloat(m["log_rate"]); ok && v >= 0 {
		c.LogRate = v
	}
	if v, ok := toInt(m["log_burst"]); ok && v > 0 {
		c.LogBurst = v
	}
	if v, ok := m["journal"].(string); ok {
		c.Journal = v
	}
	if v, ok := m["journal_config"].(map[string]any); ok {
		c.JournalConfig = v
	}
	if v, ok := m["journal_codec"].(string); ok && v != "" {
		c.JournalCodec = v
	}
	return c
}

// LoadConfig reads a YAML config file over Defaults() and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over Defaults() and validates the result.
func ParseConfig(data []byte) (Config, error) {
	c := Defaults()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ConfigFromEnv applies XFRAME_* environment overrides to c.
// Unparseable values are ignored.
func ConfigFromEnv(c Config) Config {
	if v, ok := envInt("XFRAME_DRAIN_CAP"); ok {
		c.DrainCap = v
	}
	if v, err := time.ParseDuration(os.Getenv("XFRAME_UPDATE_INTERVAL")); err == nil && v >= 0 {
		c.UpdateInterval = v
	}
	if v, err := strconv.ParseBool(os.Getenv("XFRAME_FAIL_FAST")); err == nil {
		c.FailFast = v
	}
	if v := os.Getenv("XFRAME_JOURNAL"); v != "" {
		c.Journal = v
	}
	return c
}

func envInt(key string) (int, bool) {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0, false
	}
	return v, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case string:
		p, err := time.ParseDuration(d)
		return p, err == nil
	case float64:
		return time.Duration(d), true
	case int:
		return time.Duration(d), true
	}
	return 0, false
}
