package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdhe/transcript-summarizer/pkg/provider"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		configPathEnv, httpAddrEnv, grpcAddrEnv, logLevelEnv, logFormatEnv,
		redisAddrEnv, redisPassEnv, smtpHostEnv, smtpPortEnv, smtpUserEnv, smtpPassEnv, smtpFromEnv,
		"GROQ_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "ALT_GROQ_KEY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
	require.Len(t, cfg.Providers, 3)

	pcs := cfg.ProviderConfigs()
	assert.Equal(t, "Groq", pcs[0].Name)
	assert.Equal(t, "OpenAI", pcs[1].Name)
	assert.Equal(t, "Gemini", pcs[2].Name)
	for _, pc := range pcs {
		assert.Empty(t, pc.Credential)
		assert.Less(t, pc.Temperature, float32(0), "unset temperature defers to the adapter default")
	}
}

func TestLoad_EnvCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", " gsk-123 ")
	t.Setenv("GEMINI_API_KEY", "gem-456")
	t.Setenv(httpAddrEnv, ":9999")
	t.Setenv(redisAddrEnv, "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	pcs := cfg.ProviderConfigs()
	assert.Equal(t, "gsk-123", pcs[0].Credential)
	assert.Empty(t, pcs[1].Credential)
	assert.Equal(t, "gem-456", pcs[2].Credential)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALT_GROQ_KEY", "from-env")
	path := writeConfig(t, `
server:
  httpAddr: ":7000"
  requestTimeout: 45s
log:
  level: debug
providers:
  - kind: openai
    apiKey: sk-file
    model: gpt-4o
    timeout: 20s
    healthTimeout: 3s
    temperature: 0
  - name: Backup
    kind: GROQ
    apiKeyEnv: ALT_GROQ_KEY
    maxOutputTokens: 512
smtp:
  host: smtp.example.com
  port: 2525
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.HTTPAddr)
	assert.Equal(t, ":50051", cfg.Server.GRPCAddr, "unset fields keep defaults")
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)

	pcs := cfg.ProviderConfigs()
	require.Len(t, pcs, 2)
	assert.Equal(t, provider.Config{
		Name:          "OpenAI",
		Kind:          provider.KindOpenAI,
		Credential:    "sk-file",
		Model:         "gpt-4o",
		Timeout:       20 * time.Second,
		HealthTimeout: 3 * time.Second,
		Temperature:   0,
	}, pcs[0])
	assert.Equal(t, "Backup", pcs[1].Name)
	assert.Equal(t, provider.KindGroq, pcs[1].Kind)
	assert.Equal(t, "from-env", pcs[1].Credential)
	assert.Equal(t, int32(512), pcs[1].MaxOutputTokens)

	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "server: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	temp := float32(3)
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"no http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "httpAddr"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "unknown level"},
		{"no providers", func(c *Config) { c.Providers = nil }, "at least one"},
		{"unknown kind", func(c *Config) { c.Providers[0].Kind = "anthropic" }, "unknown kind"},
		{"duplicate name", func(c *Config) { c.Providers[1].Name = "groq" }, "duplicate"},
		{"temperature", func(c *Config) { c.Providers[0].Temperature = &temp }, "temperature"},
		{"health exceeds timeout", func(c *Config) {
			c.Providers[0].Timeout = time.Second
			c.Providers[0].HealthTimeout = 2 * time.Second
		}, "healthTimeout"},
		{"redis without addr", func(c *Config) {
			c.Store.Backend = "redis"
			c.Store.Redis.Addr = ""
		}, "store.redis.addr"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }, "unknown backend"},
		{"smtp port", func(c *Config) {
			c.SMTP.Host = "smtp.example.com"
			c.SMTP.Port = 70000
		}, "smtp.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NoCredentialsIsNotAnError(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
