package gemguard

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level guard configuration.
type Config struct {
	DefaultModel string          `yaml:"default_model"`
	Retry        RetryConfig     `yaml:"retry"`
	Breaker      BreakerConfig   `yaml:"breaker"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Safety       SafetyConfig    `yaml:"safety"`
	Pricing      PricingTable    `yaml:"pricing"`
}

// RetryConfig is the YAML form of a RetryPolicy.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	BaseDelay       time.Duration `yaml:"base_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
	Jitter          bool          `yaml:"jitter"`
}

// Policy converts the config into a RetryPolicy using IsNonRetryable.
func (c RetryConfig) Policy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      c.MaxRetries,
		BaseDelay:       c.BaseDelay,
		MaxDelay:        c.MaxDelay,
		ExponentialBase: c.ExponentialBase,
		Jitter:          c.Jitter,
		NonRetryable:    IsNonRetryable,
	}
}

// SafetyConfig selects a preset and optionally overrides single categories.
// Thresholds accept "block-none", "block-only-high",
// "block-medium-and-above" and "block-low-and-above".
type SafetyConfig struct {
	Preset           string `yaml:"preset"`
	Harassment       string `yaml:"harassment"`
	HateSpeech       string `yaml:"hate_speech"`
	SexuallyExplicit string `yaml:"sexually_explicit"`
	DangerousContent string `yaml:"dangerous_content"`
}

// Settings resolves the preset and overrides.
func (c SafetyConfig) Settings() (SafetySettings, error) {
	settings, err := SafetyPreset(c.Preset)
	if err != nil {
		return nil, err
	}

	overrides := map[HarmCategory]string{
		HarmHarassment:       c.Harassment,
		HarmHateSpeech:       c.HateSpeech,
		HarmSexuallyExplicit: c.SexuallyExplicit,
		HarmDangerousContent: c.DangerousContent,
	}
	for i, s := range settings {
		raw := overrides[s.Category]
		if raw == "" {
			continue
		}
		t, err := ParseThreshold(raw)
		if err != nil {
			return nil, fmt.Errorf("gemguard: config: safety %s: %w", s.Category, err)
		}
		settings[i].Threshold = t
	}
	return settings, nil
}

// DefaultConfig returns the configuration used for omitted fields.
func DefaultConfig() Config {
	p := DefaultRetryPolicy()
	return Config{
		DefaultModel: ModelFlash,
		Retry: RetryConfig{
			MaxRetries:      p.MaxRetries,
			BaseDelay:       p.BaseDelay,
			MaxDelay:        p.MaxDelay,
			ExponentialBase: p.ExponentialBase,
			Jitter:          p.Jitter,
		},
		Breaker: DefaultBreakerConfig(),
		Safety:  SafetyConfig{Preset: "moderate"},
		Pricing: DefaultPricing(),
	}
}

// LoadConfig reads and parses a YAML config file on top of DefaultConfig.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("gemguard: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config data on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("gemguard: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("gemguard: config: default_model is required")
	}
	if err := c.Retry.Policy().Validate(); err != nil {
		return err
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("gemguard: config: retry: base_delay exceeds max_delay")
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("gemguard: config: rate_limit: requests_per_second must be >= 0")
	}
	if _, err := c.Safety.Settings(); err != nil {
		return err
	}
	return c.Pricing.Validate()
}
