package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Adapters, 1)
	assert.Equal(t, "mock", cfg.Adapters[0].Name)
	assert.Equal(t, filepath.Join(home, ".taskgate"), cfg.ConfigDir)
	assert.Equal(t, 5*time.Minute, cfg.Routing.CacheTTL)
	assert.Equal(t, 1000, cfg.Routing.CacheMaxEntries)
	assert.Equal(t, 100, cfg.Routing.CacheEvictCount)
	assert.Equal(t, 2000, cfg.Routing.TokensPerFile)
	assert.Equal(t, []string{"subAgents", "parallel", "streaming", "batched", "sequential"}, cfg.Strategy.Order)
	assert.Equal(t, 60*time.Second, cfg.Strategy.Timeouts["sequential"])
	assert.Equal(t, 5, cfg.Strategy.BatchSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigIgnoresFileAPIKeys(t *testing.T) {
	clearKeys(t)
	cfg, err := Parse([]byte("api_keys:\n  anthropic: file-ant\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKeys.Anthropic)
}

func TestConfigUsesEnvAPIKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")
	t.Setenv("DEEPSEEK_API_KEY", "env-deepseek")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "env-ant", cfg.APIKeys.For("anthropic"))
	assert.Equal(t, "env-openai", cfg.APIKeys.For("openai"))
	assert.Equal(t, "env-google", cfg.APIKeys.For("google"))
	assert.Equal(t, "env-deepseek", cfg.APIKeys.For("deepseek"))
	assert.Empty(t, cfg.APIKeys.For("mock"))
}

func TestLoadFileDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskgate.yaml")
	data := []byte(`
adapters:
  - name: claude
    provider: anthropic
    version: 2.0.0
    model: claude-sonnet-4-20250514
    default: false
    capabilities:
      max_context_tokens: 200000
      supported_languages: [go, python]
      multi_file: true
      streaming: true
      sub_agents:
        supported: true
        max_concurrent: 4
      features:
        generation: true
        parallelExecution:
          enabled: true
          config:
            maxConcurrent: 2
routing:
  cache_ttl: 30s
  preferred_adapters: [claude]
  consider_performance: false
strategy:
  order: [parallel, sequential]
  timeouts:
    parallel: 10s
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	require.Len(t, cfg.Adapters, 1)
	a := cfg.Adapters[0]
	assert.Equal(t, "2.0.0", a.Version)
	assert.False(t, a.IsDefault())
	assert.Equal(t, 200000, a.Capabilities.MaxContextTokens)
	assert.True(t, a.Capabilities.Supports("subAgents"))
	assert.Equal(t, 2, a.Capabilities.FeatureConfig("parallelExecution")["maxConcurrent"])

	assert.Equal(t, 30*time.Second, cfg.Routing.CacheTTL)
	assert.Equal(t, []string{"claude"}, cfg.Routing.PreferredAdapters)
	assert.False(t, *cfg.Routing.ConsiderPerformance)

	assert.Equal(t, []string{"parallel", "sequential"}, cfg.Strategy.Order)
	assert.Equal(t, 10*time.Second, cfg.Strategy.Timeouts["parallel"])
	assert.Equal(t, 300*time.Second, cfg.Strategy.Timeouts["subAgents"])
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TASKGATE_ROUTING_CACHE_TTL", "1m")
	t.Setenv("TASKGATE_STRATEGY_ORDER", "batched,sequential")
	t.Setenv("TASKGATE_LOG_LEVEL", "warn")

	cfg, err := Parse([]byte("routing:\n  cache_ttl: 10s\nlogging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Routing.CacheTTL)
	assert.Equal(t, []string{"batched", "sequential"}, cfg.Strategy.Order)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateReportsProblems(t *testing.T) {
	_, err := Parse([]byte(`
adapters:
  - name: a
    provider: mock
  - name: a
    provider: mock
  - provider: mock
strategy:
  order: [sequential, warp]
`))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "declared twice")
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, `unknown strategy "warp"`)
}

func TestProviderConfigUsesMatchingKey(t *testing.T) {
	a := AdapterConfig{Name: "gpt", Provider: "openai", Model: "gpt-5.2-codex", Version: "1.1.0"}
	keys := APIKeys{OpenAI: "sk-test", Anthropic: "ant"}

	pc := a.ProviderConfig(keys)
	assert.Equal(t, "sk-test", pc.APIKey)
	assert.Equal(t, "gpt", pc.Name)
	assert.Equal(t, "1.1.0", pc.Version)
	assert.True(t, a.HasCredentials(keys))
	assert.False(t, a.HasCredentials(APIKeys{}))
	assert.True(t, defaultMockAdapter().HasCredentials(APIKeys{}))
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(k, "")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("TASKGATE_CONFIG_DIR", "")
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
