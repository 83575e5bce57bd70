package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rackguard/rackguard/internal/profile"
)

func TestNewConfigFromProfile(t *testing.T) {
	p := &profile.Profile{
		AIOpenAIAPIKey:     "sk-test",
		AIOpenAIBaseURL:    "https://api.openai.com/v1",
		AIEmbeddingModel:   "text-embedding-3-small",
		AILLMModel:         "gpt-4o-mini",
		EmbeddingRateLimit: 5,
	}

	cfg := NewConfigFromProfile(p)

	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, 5.0, cfg.Embedding.RateLimit)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{
				Embedding: EmbeddingConfig{Model: "text-embedding-3-small", APIKey: "sk-test"},
				LLM:       LLMConfig{Model: "gpt-4o-mini", APIKey: "sk-test"},
			},
			wantErr: false,
		},
		{
			name: "missing embedding model",
			cfg: Config{
				Embedding: EmbeddingConfig{APIKey: "sk-test"},
				LLM:       LLMConfig{Model: "gpt-4o-mini"},
			},
			wantErr: true,
		},
		{
			name: "missing API key",
			cfg: Config{
				Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
				LLM:       LLMConfig{Model: "gpt-4o-mini"},
			},
			wantErr: true,
		},
		{
			name: "missing LLM model",
			cfg: Config{
				Embedding: EmbeddingConfig{Model: "text-embedding-3-small", APIKey: "sk-test"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
