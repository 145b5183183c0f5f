package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/uiprime-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr      string        `env:"SERVER_ADDR" envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	CORSCfg      CORSConfig      `envPrefix:"CORS_"`
	RateLimitCfg RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	RedisCfg     RedisConfig     `envPrefix:"REDIS_"`

	// External service configurations
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	RAGCfg       RAGConfig       `envPrefix:"RAG_"`
	MailCfg      MailConfig      `envPrefix:"MAIL_"`

	ChatCfg ChatConfig `envPrefix:"CHAT_"`

	// Knowledge base for the chat prompt (loaded from JSON file)
	Knowledge Knowledge

	// Environment (set from flag, not from env var)
	Environment string
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	MaxAge         int      `env:"MAX_AGE" envDefault:"300"`
}

type RateLimitConfig struct {
	Backend         string        `env:"BACKEND" envDefault:"memory"` // memory | redis
	ContactLimit    int           `env:"CONTACT_LIMIT" envDefault:"3"`
	ContactWindow   time.Duration `env:"CONTACT_WINDOW" envDefault:"1m"`
	ChatLimit       int           `env:"CHAT_LIMIT" envDefault:"10"`
	ChatWindow      time.Duration `env:"CHAT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	// CIDRs whose X-Forwarded-For / X-Real-IP headers are trusted.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type RedisConfig struct {
	Addr         string        `env:"ADDR" envDefault:"localhost:6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB" envDefault:"0"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
}

type LLMConfig struct {
	HTTPClientConfig
	Model       string  `env:"MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"250"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.3"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider string        `env:"PROVIDER" envDefault:"openai"` // openai | ollama
	Model    string        `env:"MODEL" envDefault:"text-embedding-3-small"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"0s"` // 0 disables the redis cache
	// PullModel makes ollama download the model on first use.
	PullModel bool `env:"PULL_MODEL" envDefault:"false"`
}

type RAGConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	Provider      string        `env:"PROVIDER" envDefault:"pinecone"` // pinecone | milvus | memory
	TopK          int           `env:"TOP_K" envDefault:"3"`
	FailurePolicy string        `env:"FAILURE_POLICY" envDefault:"tolerant"` // tolerant | strict
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	// SeedFile is a JSON array of documents loaded into the memory index.
	SeedFile string         `env:"SEED_FILE"`
	Pinecone PineconeConfig `envPrefix:"PINECONE_"`
	Milvus   MilvusConfig   `envPrefix:"MILVUS_"`
}

type PineconeConfig struct {
	HTTPClientConfig
	IndexName  string `env:"INDEX_NAME"`
	Namespace  string `env:"NAMESPACE"`
	ControlURL string `env:"CONTROL_URL" envDefault:"https://api.pinecone.io"`
	APIVersion string `env:"API_VERSION" envDefault:"2025-01"`
}

type MilvusConfig struct {
	Address      string        `env:"ADDRESS" envDefault:"localhost:19530"`
	Username     string        `env:"USERNAME"`
	Password     string        `env:"PASSWORD"`
	Database     string        `env:"DATABASE"`
	Collection   string        `env:"COLLECTION" envDefault:"uiprime_docs"`
	VectorField  string        `env:"VECTOR_FIELD" envDefault:"embedding"`
	TextField    string        `env:"TEXT_FIELD" envDefault:"text"`
	OutputFields []string      `env:"METADATA_FIELDS" envSeparator:","`
	ConnTimeout  time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
}

type MailConfig struct {
	Host             string               `env:"HOST"`
	Port             int                  `env:"PORT" envDefault:"587"`
	Username         string               `env:"USERNAME"`
	Password         string               `env:"PASSWORD"`
	From             string               `env:"FROM" envDefault:"UIPrime <noreply@uiprime.com>"`
	Recipient        string               `env:"RECIPIENT"`
	TLSPolicy        string               `env:"TLS_POLICY" envDefault:"mandatory"` // mandatory | opportunistic | none
	Timeout          time.Duration        `env:"TIMEOUT" envDefault:"15s"`
	MaxContentLength int                  `env:"MAX_CONTENT_LENGTH" envDefault:"5000"`
	Retry            pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type ChatConfig struct {
	DefaultLanguage    string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	SupportedLanguages []string      `env:"SUPPORTED_LANGUAGES" envSeparator:"," envDefault:"en,ro"`
	RequireLanguage    bool          `env:"REQUIRE_LANGUAGE" envDefault:"true"`
	MaxQueryLength     int           `env:"MAX_QUERY_LENGTH" envDefault:"1000"`
	OutputFormat       string        `env:"OUTPUT_FORMAT" envDefault:"plain"` // plain | html
	KnowledgeFile      string        `env:"KNOWLEDGE_FILE" envDefault:"internal/config/knowledge.json"`
	GenerationTimeout  time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	MaxIdleConnsPerHost   int           `env:"MAX_IDLE_CONNS_PER_HOST" envDefault:"10"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// ErrMissingSetting marks a feature whose required setting is absent. The
// builder disables that feature instead of failing startup.
var ErrMissingSetting = errors.New("missing required setting")

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	return Load(*envFlag)
}

// Load parses the process environment. It does not read any .env file.
func Load(environment string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment
	applyProviderFallbacks(cfg)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	knowledge, err := loadKnowledge(cfg.ChatCfg.KnowledgeFile)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	cfg.Knowledge = knowledge

	return cfg, nil
}

// applyProviderFallbacks lets the conventional provider variables stand in
// for the prefixed ones.
func applyProviderFallbacks(cfg *Config) {
	if cfg.LLMCfg.Token == "" {
		cfg.LLMCfg.Token = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.EmbeddingCfg.Token == "" && cfg.EmbeddingCfg.Provider == "openai" {
		cfg.EmbeddingCfg.Token = cfg.LLMCfg.Token
	}
	if cfg.RAGCfg.Pinecone.Token == "" {
		cfg.RAGCfg.Pinecone.Token = os.Getenv("PINECONE_API_KEY")
	}
	if cfg.RAGCfg.Pinecone.IndexName == "" {
		cfg.RAGCfg.Pinecone.IndexName = os.Getenv("PINECONE_INDEX_NAME")
	}
}

// validateConfig checks settings that are fatal for the whole service.
// Per-feature secrets are checked by the feature Validate methods.
func validateConfig(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel))
	}

	if cfg.MaxBodyBytes < 1024 {
		errs = append(errs, fmt.Sprintf("MAX_BODY_BYTES must be at least 1024, got %d", cfg.MaxBodyBytes))
	}

	switch cfg.RateLimitCfg.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_BACKEND must be memory or redis, got %q", cfg.RateLimitCfg.Backend))
	}

	if cfg.RateLimitCfg.ContactLimit < 1 || cfg.RateLimitCfg.ChatLimit < 1 {
		errs = append(errs, "RATE_LIMIT_CONTACT_LIMIT and RATE_LIMIT_CHAT_LIMIT must be positive")
	}

	if cfg.RateLimitCfg.ContactWindow <= 0 || cfg.RateLimitCfg.ChatWindow <= 0 {
		errs = append(errs, "RATE_LIMIT_CONTACT_WINDOW and RATE_LIMIT_CHAT_WINDOW must be positive")
	}

	if cfg.ChatCfg.MaxQueryLength < 1 {
		errs = append(errs, fmt.Sprintf("CHAT_MAX_QUERY_LENGTH must be positive, got %d", cfg.ChatCfg.MaxQueryLength))
	}

	switch cfg.ChatCfg.OutputFormat {
	case "plain", "html":
	default:
		errs = append(errs, fmt.Sprintf("CHAT_OUTPUT_FORMAT must be plain or html, got %q", cfg.ChatCfg.OutputFormat))
	}

	if !slices.Contains(cfg.ChatCfg.SupportedLanguages, cfg.ChatCfg.DefaultLanguage) {
		errs = append(errs, fmt.Sprintf("CHAT_DEFAULT_LANGUAGE %q is not in CHAT_SUPPORTED_LANGUAGES", cfg.ChatCfg.DefaultLanguage))
	}

	if cfg.MailCfg.MaxContentLength < 1 {
		errs = append(errs, fmt.Sprintf("MAIL_MAX_CONTENT_LENGTH must be positive, got %d", cfg.MailCfg.MaxContentLength))
	}

	if cfg.LLMCfg.MaxTokens < 1 || cfg.LLMCfg.MaxTokens > 4096 {
		errs = append(errs, fmt.Sprintf("LLM_MAX_TOKENS must be between 1 and 4096, got %d", cfg.LLMCfg.MaxTokens))
	}

	if cfg.RAGCfg.TopK < 1 || cfg.RAGCfg.TopK > 100 {
		errs = append(errs, fmt.Sprintf("RAG_TOP_K must be between 1 and 100, got %d", cfg.RAGCfg.TopK))
	}

	switch cfg.RAGCfg.FailurePolicy {
	case "tolerant", "strict":
	default:
		errs = append(errs, fmt.Sprintf("RAG_FAILURE_POLICY must be tolerant or strict, got %q", cfg.RAGCfg.FailurePolicy))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Validate reports whether the chat feature can talk to its model.
func (c LLMConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("LLM_TOKEN (or OPENAI_API_KEY): %w", ErrMissingSetting)
	}
	if c.Model == "" {
		return fmt.Errorf("LLM_MODEL: %w", ErrMissingSetting)
	}
	return nil
}

func (c EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "openai":
		if c.Token == "" {
			return fmt.Errorf("EMBEDDING_TOKEN: %w", ErrMissingSetting)
		}
	case "ollama":
		if c.Url == "" {
			return fmt.Errorf("EMBEDDING_SERVICE_URL: %w", ErrMissingSetting)
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be openai or ollama, got %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("EMBEDDING_MODEL: %w", ErrMissingSetting)
	}
	return nil
}

// Validate checks the settings of the selected index provider. A disabled
// RAG stage is always valid.
func (c RAGConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Provider {
	case "pinecone":
		if c.Pinecone.Token == "" {
			return fmt.Errorf("RAG_PINECONE_TOKEN (or PINECONE_API_KEY): %w", ErrMissingSetting)
		}
		if c.Pinecone.IndexName == "" && c.Pinecone.Url == "" {
			return fmt.Errorf("RAG_PINECONE_INDEX_NAME or RAG_PINECONE_SERVICE_URL: %w", ErrMissingSetting)
		}
	case "milvus":
		if c.Milvus.Address == "" || c.Milvus.Collection == "" {
			return fmt.Errorf("RAG_MILVUS_ADDRESS and RAG_MILVUS_COLLECTION: %w", ErrMissingSetting)
		}
	case "memory":
	default:
		return fmt.Errorf("RAG_PROVIDER must be pinecone, milvus or memory, got %q", c.Provider)
	}

	return nil
}

// Validate reports whether the contact form can deliver mail.
func (c MailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("MAIL_HOST: %w", ErrMissingSetting)
	}
	if c.Recipient == "" {
		return fmt.Errorf("MAIL_RECIPIENT: %w", ErrMissingSetting)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("MAIL_PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("MAIL_TLS_POLICY must be mandatory, opportunistic or none, got %q", c.TLSPolicy)
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
