package llm

import (
	"fmt"
	"strings"
	"time"
)

// Config selects and configures a chat-completion provider.
type Config struct {
	Provider    string // groq, openai, ollama
	Model       string
	APIKey      string
	APIURL      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
}

const (
	defaultGroqURL   = "https://api.groq.com/openai/v1"
	defaultOpenAIURL = "https://api.openai.com/v1"
	defaultOllamaURL = "http://localhost:11434/v1"

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultTopP        = 1.0
	defaultTimeout     = 60 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.TopP == 0 {
		c.TopP = defaultTopP
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// NewProvider builds the provider named by cfg.Provider. All three speak
// the OpenAI chat-completions wire format and differ only in base URL and
// auth requirements.
func NewProvider(cfg Config) (Provider, error) {
	cfg.applyDefaults()
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groq provider requires an API key")
		}
		if cfg.APIURL == "" {
			cfg.APIURL = defaultGroqURL
		}
		return newOpenAICompatible("groq", cfg), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		if cfg.APIURL == "" {
			cfg.APIURL = defaultOpenAIURL
		}
		return newOpenAICompatible("openai", cfg), nil
	case "ollama":
		if cfg.APIURL == "" {
			cfg.APIURL = defaultOllamaURL
		}
		return newOpenAICompatible("ollama", cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
