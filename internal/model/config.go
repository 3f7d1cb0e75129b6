package model

import "time"

// Config is the complete GigShield configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge" mapstructure:"knowledge"`
	Evidence     EvidenceConfig     `yaml:"evidence" mapstructure:"evidence"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StoreConfig selects and configures the case store
type StoreConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend"` // mongo or memory
	MongoURI string        `yaml:"mongo_uri" mapstructure:"mongo_uri"`
	Database string        `yaml:"database" mapstructure:"database"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig configures response caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, layered or redis
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// LLMConfig configures the language model provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // anthropic, openai, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// KnowledgeConfig configures the knowledge base and its vector index
type KnowledgeConfig struct {
	VectorURL      string `yaml:"vector_url" mapstructure:"vector_url"` // Qdrant REST endpoint, empty for keyword search
	Collection     string `yaml:"collection" mapstructure:"collection"`
	EmbeddingURL   string `yaml:"embedding_url" mapstructure:"embedding_url"` // Ollama endpoint
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	VectorSize     int    `yaml:"vector_size" mapstructure:"vector_size"`
	TopK           int    `yaml:"top_k" mapstructure:"top_k"`
}

// EvidenceConfig configures evidence uploads
type EvidenceConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxBytes int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// AuthConfig configures token issuing and verification
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// RateLimitingConfig limits language model calls per user
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes worker pools
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8000",
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://localhost:5174",
				"http://localhost:3000",
				"http://127.0.0.1:5173",
				"http://127.0.0.1:5174",
				"http://127.0.0.1:3000",
			},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Store: StoreConfig{
			Backend:  "mongo",
			MongoURI: "mongodb://localhost:27017",
			Database: "gigshield",
			Timeout:  10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "memory",
			TTL:       1 * time.Hour,
			Dir:       ".gigshield-cache",
			RedisAddr: "localhost:6379",
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			Timeout:   60,
			MaxTokens: 1024,
		},
		Knowledge: KnowledgeConfig{
			Collection:     "gigshield-knowledge",
			EmbeddingURL:   "http://localhost:11434",
			EmbeddingModel: "all-minilm",
			VectorSize:     384,
			TopK:           3,
		},
		Evidence: EvidenceConfig{
			Dir:      "./evidence",
			BaseURL:  "/evidence",
			MaxBytes: MaxEvidenceBytes,
		},
		Auth: AuthConfig{
			TokenTTL: 15 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 0.5,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
