package config

import (
	"time"

	"healthworks/api_assistant/pkg/config"
)

// Config holds all assistant service settings, loaded from the environment.
type Config struct {
	Port        string
	Environment string
	Version     string

	DatabaseURL string

	LLMProvider    string
	LLMModel       string
	LLMAPIKey      string
	LLMAPIURL      string
	LLMTemperature float64
	LLMMaxTokens   int

	AuthProvider    string
	SupabaseURL     string
	SupabaseAnonKey string
	JWTSecret       string

	MaxHistoryTurns int
	MaxToolRounds   int

	ChatRequestsPerHour int

	ReminderDispatchEnabled bool
	ReminderInterval        time.Duration
}

// Load reads the service configuration from the environment.
func Load() *Config {
	return &Config{
		Port:        config.GetEnv("PORT", "18050"),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
		Version:     config.GetEnv("VERSION", "dev"),

		DatabaseURL: config.RequireEnv("DATABASE_URL"),

		LLMProvider:    config.GetEnv("LLM_PROVIDER", "groq"),
		LLMModel:       config.GetEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMAPIKey:      config.GetEnv("LLM_API_KEY", ""),
		LLMAPIURL:      config.GetEnv("LLM_API_URL", ""),
		LLMTemperature: config.GetEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:   config.GetEnvInt("LLM_MAX_TOKENS", 1024),

		AuthProvider:    config.GetEnv("AUTH_PROVIDER", "gotrue"),
		SupabaseURL:     config.GetEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: config.GetEnv("SUPABASE_ANON_KEY", ""),
		JWTSecret:       config.GetEnv("JWT_SECRET", ""),

		MaxHistoryTurns: config.GetEnvInt("MAX_HISTORY_TURNS", 20),
		MaxToolRounds:   config.GetEnvInt("MAX_TOOL_ROUNDS", 5),

		ChatRequestsPerHour: config.GetEnvInt("CHAT_REQUESTS_PER_HOUR", 0),

		ReminderDispatchEnabled: config.GetEnvBool("REMINDER_DISPATCH_ENABLED", false),
		ReminderInterval:        config.GetEnvDuration("REMINDER_INTERVAL", time.Minute),
	}
}

// IsProduction reports whether the service runs in production mode. Error
// details are withheld from API responses in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MissingSettings lists required settings that are empty, for the config
// health check.
func (c *Config) MissingSettings() []string {
	var missing []string
	if c.LLMAPIKey == "" && c.LLMProvider != "ollama" {
		missing = append(missing, "LLM_API_KEY")
	}
	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	default:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
	}
	return missing
}
