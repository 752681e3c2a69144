// Package config loads the orchestrator configuration from a YAML file, an optional
// .env file and ORCHESTRA_* environment variables, in that order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ORCHESTRA_"

type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Languages LanguagesConfig `yaml:"languages" mapstructure:"languages"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Knowledge KnowledgeConfig `yaml:"knowledge" mapstructure:"knowledge"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	CORSOrigin      string        `yaml:"cors_origin" mapstructure:"cors_origin"`
	MaxBodyBytes    int           `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AuthConfig maps bearer tokens onto caller ids.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens" mapstructure:"tokens"`
}

type LLMConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	Model          string        `yaml:"model" mapstructure:"model"`
	EmbeddingModel string        `yaml:"embedding_model" mapstructure:"embedding_model"`
	Temperature    float32       `yaml:"temperature" mapstructure:"temperature"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retry          RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig bounds the exponential backoff applied to text generation calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

type EngineConfig struct {
	MaxSteps    int           `yaml:"max_steps" mapstructure:"max_steps"`
	NodeTimeout time.Duration `yaml:"node_timeout" mapstructure:"node_timeout"`
}

type LanguagesConfig struct {
	Default   string   `yaml:"default" mapstructure:"default"`
	Supported []string `yaml:"supported" mapstructure:"supported"`
}

type StoreConfig struct {
	Driver     string           `yaml:"driver" mapstructure:"driver"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	SQLite     SQLiteConfig     `yaml:"sqlite" mapstructure:"sqlite"`
	Encryption EncryptionConfig `yaml:"encryption" mapstructure:"encryption"`
	// RedactPII masks e-mails, phone numbers and similar before messages are stored.
	RedactPII   bool     `yaml:"redact_pii" mapstructure:"redact_pii"`
	PIIPatterns []string `yaml:"pii_patterns" mapstructure:"pii_patterns"`
}

// EncryptionConfig holds base64 encoded AES-256 keys. An empty Key disables
// encryption at rest.
type EncryptionConfig struct {
	Key          string   `yaml:"key" mapstructure:"key"`
	FallbackKeys []string `yaml:"fallback_keys" mapstructure:"fallback_keys"`
}

// Enabled reports whether messages are encrypted before they are stored.
func (e EncryptionConfig) Enabled() bool { return e.Key != "" }

// Decode returns the raw active and fallback keys.
func (e EncryptionConfig) Decode() (active []byte, fallback [][]byte, err error) {
	active, err = decodeKey("store.encryption.key", e.Key)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range e.FallbackKeys {
		raw, err := decodeKey(fmt.Sprintf("store.encryption.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, raw)
	}
	return active, fallback, nil
}

func decodeKey(name, s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(raw))
	}
	return raw, nil
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Locking  bool          `yaml:"locking" mapstructure:"locking"`
}

type KnowledgeConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	TopK int    `yaml:"top_k" mapstructure:"top_k"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Default returns the configuration used when no file or override is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigin:      "*",
			MaxBodyBytes:    64 * 1024,
			ShutdownTimeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			Timeout:        60 * time.Second,
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
		},
		Engine: EngineConfig{
			MaxSteps: 12,
		},
		Languages: LanguagesConfig{
			Default:   "en",
			Supported: []string{"en", "es", "fr", "pt", "de"},
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "orchestra:",
			},
			SQLite: SQLiteConfig{DSN: "file:orchestra.db?_busy_timeout=5000"},
		},
		Knowledge: KnowledgeConfig{TopK: 3},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. An empty path skips the file and keeps the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg, os.Environ()); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// envKeys maps environment variable suffixes onto config paths.
var envKeys = map[string][]string{
	"SERVER_ADDR":             {"server", "addr"},
	"SERVER_CORS_ORIGIN":      {"server", "cors_origin"},
	"SERVER_MAX_BODY_BYTES":   {"server", "max_body_bytes"},
	"SERVER_SHUTDOWN_TIMEOUT": {"server", "shutdown_timeout"},
	"AUTH_TOKENS":             {"auth", "tokens"},
	"LLM_BASE_URL":            {"llm", "base_url"},
	"LLM_API_KEY":             {"llm", "api_key"},
	"LLM_MODEL":               {"llm", "model"},
	"LLM_EMBEDDING_MODEL":     {"llm", "embedding_model"},
	"LLM_TEMPERATURE":         {"llm", "temperature"},
	"LLM_TIMEOUT":             {"llm", "timeout"},
	"LLM_RETRY_MAX_ATTEMPTS":  {"llm", "retry", "max_attempts"},
	"LLM_RETRY_BASE_DELAY":    {"llm", "retry", "base_delay"},
	"LLM_RETRY_MAX_DELAY":     {"llm", "retry", "max_delay"},
	"ENGINE_MAX_STEPS":        {"engine", "max_steps"},
	"ENGINE_NODE_TIMEOUT":     {"engine", "node_timeout"},
	"LANGUAGES_DEFAULT":       {"languages", "default"},
	"LANGUAGES_SUPPORTED":     {"languages", "supported"},
	"STORE_DRIVER":            {"store", "driver"},
	"STORE_REDIS_ADDR":        {"store", "redis", "addr"},
	"STORE_REDIS_PASSWORD":    {"store", "redis", "password"},
	"STORE_REDIS_DB":          {"store", "redis", "db"},
	"STORE_REDIS_PREFIX":      {"store", "redis", "prefix"},
	"STORE_REDIS_TTL":         {"store", "redis", "ttl"},
	"STORE_REDIS_LOCKING":     {"store", "redis", "locking"},
	"STORE_SQLITE_DSN":        {"store", "sqlite", "dsn"},
	"STORE_ENCRYPTION_KEY":    {"store", "encryption", "key"},
	"STORE_FALLBACK_KEYS":     {"store", "encryption", "fallback_keys"},
	"STORE_REDACT_PII":        {"store", "redact_pii"},
	"STORE_PII_PATTERNS":      {"store", "pii_patterns"},
	"KNOWLEDGE_DIR":           {"knowledge", "dir"},
	"KNOWLEDGE_TOP_K":         {"knowledge", "top_k"},
	"LOG_LEVEL":               {"log", "level"},
	"LOG_FORMAT":              {"log", "format"},
}

// ApplyEnv overlays ORCHESTRA_* variables from environ (KEY=VALUE pairs) onto cfg.
// Values are weakly typed: "30s" decodes into durations, "a,b" into lists and
// "token=caller,token2=caller2" into the auth token map.
func ApplyEnv(cfg *Config, environ []string) error {
	overrides := map[string]any{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		path, known := envKeys[strings.TrimPrefix(key, EnvPrefix)]
		if !known {
			continue
		}
		var v any = value
		if slices.Equal(path, []string{"auth", "tokens"}) {
			v = parsePairs(value)
		}
		setPath(overrides, path, v)
	}
	if len(overrides) == 0 {
		return nil
	}

	// ZeroFields makes list and map overrides replace the current value instead of
	// overwriting it element by element.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// Validate checks the values that would otherwise fail late at request time.
func (c Config) Validate() error {
	var errs []error
	if c.Languages.Default == "" {
		errs = append(errs, errors.New("languages.default is required"))
	}
	if len(c.Languages.Supported) > 0 && !slices.Contains(c.Languages.Supported, c.Languages.Default) {
		errs = append(errs, fmt.Errorf("languages.default %q is not in languages.supported", c.Languages.Default))
	}
	if c.Engine.MaxSteps <= 0 {
		errs = append(errs, errors.New("engine.max_steps must be positive"))
	}
	if c.LLM.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("llm.retry.max_attempts must be positive"))
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, redis, sqlite", c.Store.Driver))
	}
	if c.Store.Encryption.Enabled() {
		if _, _, err := c.Store.Encryption.Decode(); err != nil {
			errs = append(errs, err)
		}
	} else if len(c.Store.Encryption.FallbackKeys) > 0 {
		errs = append(errs, errors.New("store.encryption.fallback_keys requires store.encryption.key"))
	}
	if c.Knowledge.Dir != "" && c.Knowledge.TopK <= 0 {
		errs = append(errs, errors.New("knowledge.top_k must be positive"))
	}
	return errors.Join(errs...)
}

func setPath(m map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

func parsePairs(s string) map[string]any {
	out := map[string]any{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}
