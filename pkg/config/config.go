// Package config loads the typed process configuration: defaults, then an
// optional YAML file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdhe/transcript-summarizer/pkg/logging"
	"github.com/abdhe/transcript-summarizer/pkg/provider"
	"github.com/abdhe/transcript-summarizer/pkg/transcript"
)

const (
	configPathEnv = "SUMMARIZER_CONFIG"
	httpAddrEnv   = "HTTP_ADDR"
	grpcAddrEnv   = "GRPC_ADDR"
	logLevelEnv   = "LOG_LEVEL"
	logFormatEnv  = "LOG_FORMAT"
	redisAddrEnv  = "REDIS_ADDR"
	redisPassEnv  = "REDIS_PASSWORD"
	smtpHostEnv   = "SMTP_HOST"
	smtpPortEnv   = "SMTP_PORT"
	smtpUserEnv   = "SMTP_USERNAME"
	smtpPassEnv   = "SMTP_PASSWORD"
	smtpFromEnv   = "SMTP_FROM"
)

// defaultKeyEnv names the credential variable read for each provider kind
// when an entry sets no apiKeyEnv of its own.
var defaultKeyEnv = map[provider.Kind]string{
	provider.KindGroq:   "GROQ_API_KEY",
	provider.KindOpenAI: "OPENAI_API_KEY",
	provider.KindGemini: "GEMINI_API_KEY",
}

// Config holds every setting the summarizer reads at startup.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Providers []ProviderEntry `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Retry     RetryConfig     `yaml:"retry"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"httpAddr"`
	GRPCAddr        string        `yaml:"grpcAddr"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	HealthInterval  time.Duration `yaml:"healthInterval"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProviderEntry is one record of the ordered provider list. List order is
// the failover order.
type ProviderEntry struct {
	Name            string        `yaml:"name"`
	Kind            provider.Kind `yaml:"kind"`
	APIKey          string        `yaml:"apiKey"`
	APIKeyEnv       string        `yaml:"apiKeyEnv"`
	BaseURL         string        `yaml:"baseUrl"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	HealthTimeout   time.Duration `yaml:"healthTimeout"`
	MaxOutputTokens int32         `yaml:"maxOutputTokens"`
	Temperature     *float32      `yaml:"temperature"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"` // "memory" or "redis"
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// SMTPConfig configures share delivery. An empty Host logs instead of sending.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// RetryConfig is the caller-side retry around a whole summarization.
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
	MaxDelay   time.Duration `yaml:"maxDelay"`
}

// Default returns the built-in configuration: Groq first, then OpenAI, then Gemini.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":50051",
			RequestTimeout:  90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			HealthInterval:  30 * time.Second,
			MaxUploadBytes:  transcript.DefaultMaxBytes,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Providers: []ProviderEntry{
			{Name: "Groq", Kind: provider.KindGroq},
			{Name: "OpenAI", Kind: provider.KindOpenAI},
			{Name: "Gemini", Kind: provider.KindGemini},
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "summarizer:", TTL: 7 * 24 * time.Hour},
		},
		SMTP:  SMTPConfig{Port: 587, From: "summarizer@localhost"},
		Retry: RetryConfig{MaxRetries: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
	}
}

// Load builds a validated Config. An empty path falls back to
// $SUMMARIZER_CONFIG; with neither set only defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML over cfg. Fields absent from the document keep their
// current values; a providers list replaces the default list entirely.
func Parse(raw []byte, cfg *Config) error {
	doc := *cfg
	doc.Providers = nil
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc.Providers == nil {
		doc.Providers = cfg.Providers
	}
	*cfg = doc
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv(grpcAddrEnv); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Store.Backend = "redis"
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv(redisPassEnv); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv(smtpHostEnv); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		} else {
			c.SMTP.Port = -1
		}
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv(smtpPassEnv); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv(smtpFromEnv); v != "" {
		c.SMTP.From = v
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		env := p.APIKeyEnv
		if env == "" {
			env = defaultKeyEnv[provider.Kind(strings.ToLower(string(p.Kind)))]
		}
		if env == "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			p.APIKey = v
		}
	}
}

// Validate rejects malformed values. Missing credentials are not an error
// here: the registry keeps such providers as unconfigured.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPAddr == "" {
		errs = append(errs, errors.New("server.httpAddr is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.requestTimeout must be positive"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = transcript.DefaultMaxBytes
	}
	if c.Server.HealthInterval <= 0 {
		c.Server.HealthInterval = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("providers: at least one entry is required"))
	}
	seen := make(map[string]bool, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Kind = provider.Kind(strings.ToLower(string(p.Kind)))
		if _, ok := defaultKeyEnv[p.Kind]; !ok {
			errs = append(errs, fmt.Errorf("providers[%d]: unknown kind %q", i, p.Kind))
			continue
		}
		if p.Name == "" {
			p.Name = defaultName(p.Kind)
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[key] = true

		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			errs = append(errs, fmt.Errorf("providers[%d]: temperature %.2f out of range [0,2]", i, *p.Temperature))
		}
		if p.MaxOutputTokens < 0 {
			errs = append(errs, fmt.Errorf("providers[%d]: maxOutputTokens must not be negative", i))
		}
		if p.Timeout < 0 || p.HealthTimeout < 0 {
			errs = append(errs, fmt.Errorf("providers[%d]: timeouts must not be negative", i))
		}
		timeout, health := p.Timeout, p.HealthTimeout
		if timeout == 0 {
			timeout = provider.DefaultTimeout
		}
		if health == 0 {
			health = provider.DefaultHealthTimeout
		}
		if health > timeout {
			errs = append(errs, fmt.Errorf("providers[%d]: healthTimeout %s exceeds timeout %s", i, health, timeout))
		}
	}

	switch c.Store.Backend {
	case "", "memory":
		c.Store.Backend = "memory"
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}

	if c.SMTP.Host != "" {
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			errs = append(errs, fmt.Errorf("smtp.port %d out of range", c.SMTP.Port))
		}
		if c.SMTP.From == "" {
			errs = append(errs, errors.New("smtp.from is required when smtp.host is set"))
		}
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.maxRetries must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// ProviderConfigs returns the ordered provider records for the registry.
func (c *Config) ProviderConfigs() []provider.Config {
	out := make([]provider.Config, 0, len(c.Providers))
	for _, p := range c.Providers {
		temp := float32(-1)
		if p.Temperature != nil {
			temp = *p.Temperature
		}
		out = append(out, provider.Config{
			Name:            p.Name,
			Kind:            p.Kind,
			Credential:      p.APIKey,
			BaseURL:         p.BaseURL,
			Model:           p.Model,
			Timeout:         p.Timeout,
			HealthTimeout:   p.HealthTimeout,
			MaxOutputTokens: p.MaxOutputTokens,
			Temperature:     temp,
		})
	}
	return out
}

func defaultName(k provider.Kind) string {
	switch k {
	case provider.KindGroq:
		return "Groq"
	case provider.KindOpenAI:
		return "OpenAI"
	case provider.KindGemini:
		return "Gemini"
	}
	return string(k)
}
