package gemguard_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gg "github.com/ineyio/gemguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := gg.ParseConfig([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, gg.DefaultConfig().DefaultModel, cfg.DefaultModel)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Timeout)
	assert.Len(t, cfg.Pricing.Entries, 4)
}

func TestParseConfig_Overrides(t *testing.T) {
	t.Setenv("GEMGUARD_TEST_MODEL", "gemini-2.5-pro")

	data := []byte(`
default_model: ${GEMGUARD_TEST_MODEL}
retry:
  max_retries: 5
  base_delay: 500ms
  max_delay: 20s
  jitter: false
breaker:
  name: primary
  failure_threshold: 2
  timeout: 90s
rate_limit:
  requests_per_second: 2.5
  burst: 4
safety:
  preset: strict
  dangerous_content: block-none
pricing:
  entries:
    - match: flash
      input_per_1k: 0.1
      output_per_1k: 0.2
  fallback:
    match: other
    input_per_1k: 1
    output_per_1k: 1
`)

	cfg, err := gg.ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.DefaultModel)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 20*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.ExponentialBase)
	assert.False(t, cfg.Retry.Jitter)
	assert.Equal(t, "primary", cfg.Breaker.Name)
	assert.Equal(t, 2, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 90*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4, cfg.RateLimit.Burst)
	require.Len(t, cfg.Pricing.Entries, 1)
	assert.Equal(t, "flash", cfg.Pricing.Entries[0].Match)

	settings, err := cfg.Safety.Settings()
	require.NoError(t, err)
	assert.Equal(t, gg.BlockLowAndAbove, settings[0].Threshold)
	assert.Equal(t, gg.BlockNone, settings[3].Threshold)

	policy := cfg.Retry.Policy()
	assert.NotNil(t, policy.NonRetryable)
	assert.Equal(t, 5, policy.MaxRetries)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty model", "default_model: \"\"", "default_model is required"},
		{"negative retries", "retry:\n  max_retries: -1", "max_retries"},
		{"base above max", "retry:\n  base_delay: 2m\n  max_delay: 1m", "base_delay exceeds max_delay"},
		{"negative rps", "rate_limit:\n  requests_per_second: -1", "requests_per_second"},
		{"bad preset", "safety:\n  preset: paranoid", "unknown safety preset"},
		{"bad threshold", "safety:\n  harassment: sometimes", "unknown safety threshold"},
		{"negative price", "pricing:\n  entries:\n    - match: x\n      input_per_1k: -1", "negative rate"},
		{"bad yaml", "retry: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gg.ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gemguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: gemini-2.0-flash\n"), 0o644))

	cfg, err := gg.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.DefaultModel)

	_, err = gg.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
