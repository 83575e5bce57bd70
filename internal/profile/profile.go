package profile

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// DSN points to the PostgreSQL database holding the document corpus
	DSN string
	// Version is the current version of server
	Version string

	// AI configuration
	AIOpenAIAPIKey   string // RACKGUARD_AI_OPENAI_API_KEY
	AIOpenAIBaseURL  string // RACKGUARD_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIEmbeddingModel string // RACKGUARD_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AILLMModel       string // RACKGUARD_AI_LLM_MODEL (default: gpt-4o-mini)

	// EmbeddingRateLimit caps embedding API calls per second
	EmbeddingRateLimit float64 // RACKGUARD_AI_EMBEDDING_RATE (default: 10)

	// SessionTTLMinutes is how long an idle conversation session is kept
	SessionTTLMinutes int // RACKGUARD_SESSION_TTL_MINUTES (default: 30)
	// SessionCapacity bounds the number of concurrently tracked sessions
	SessionCapacity int // RACKGUARD_SESSION_CAPACITY (default: 1024)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled reports whether embedding and completion calls can be made.
func (p *Profile) IsAIEnabled() bool {
	return p.AIOpenAIAPIKey != "" || p.AIOpenAIBaseURL != "https://api.openai.com/v1"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Version is stamped at build time via -ldflags.
var Version = "dev"

// FromEnv loads configuration from RACKGUARD_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("RACKGUARD_MODE", "dev")
	p.Addr = os.Getenv("RACKGUARD_ADDR")
	p.DSN = os.Getenv("RACKGUARD_DSN")
	p.Version = Version
	if port, err := strconv.Atoi(os.Getenv("RACKGUARD_PORT")); err == nil && port > 0 {
		p.Port = port
	} else {
		p.Port = 8090
	}

	p.AIOpenAIAPIKey = os.Getenv("RACKGUARD_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("RACKGUARD_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIEmbeddingModel = getEnvOrDefault("RACKGUARD_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AILLMModel = getEnvOrDefault("RACKGUARD_AI_LLM_MODEL", "gpt-4o-mini")

	if rate, err := strconv.ParseFloat(os.Getenv("RACKGUARD_AI_EMBEDDING_RATE"), 64); err == nil && rate > 0 {
		p.EmbeddingRateLimit = rate
	}
	if ttl, err := strconv.Atoi(os.Getenv("RACKGUARD_SESSION_TTL_MINUTES")); err == nil && ttl > 0 {
		p.SessionTTLMinutes = ttl
	}
	if capacity, err := strconv.Atoi(os.Getenv("RACKGUARD_SESSION_CAPACITY")); err == nil && capacity > 0 {
		p.SessionCapacity = capacity
	}
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.DSN == "" {
		return errors.New("dsn is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.EmbeddingRateLimit <= 0 {
		p.EmbeddingRateLimit = 10
	}
	if p.SessionTTLMinutes <= 0 {
		p.SessionTTLMinutes = 30
	}
	if p.SessionCapacity <= 0 {
		p.SessionCapacity = 1024
	}
	return nil
}
