package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName    = "venture-pulse"
	configType    = "yaml"
	configFileEnv = "VENTURE_PULSE_CONFIG"
)

type Config struct {
	Port                string
	PostgresURL         string
	VentureStore        string
	SessionBackend      string
	RedisURL            string
	BadgerPath          string
	SessionTTL          time.Duration
	SessionSecretsKey   string
	LLMMode             string
	LLMProvider         string
	LLMModel            string
	LLMBaseURL          string
	LLMFallbackProvider string
	LLMFallbackModel    string
	LLMFallbackBaseURL  string
	OpenAIAPIKey        string
	OpenRouterAPIKey    string
	GeminiAPIKey        string
	LLMTemperature      float32
	LLMMaxTokens        int
	AgentMaxRounds      int
	HistoryWindow       int
	SummaryThreshold    int
	SummaryKeep         int
	AnalystPromptPath   string
	QueryRatePerMinute  int
	LogLevel            string
}

var defaults = map[string]any{
	"PORT":                  "8000",
	"POSTGRES_URL":          "",
	"POSTGRES_USER":         "venture",
	"POSTGRES_PASSWORD":     "venture",
	"POSTGRES_HOST":         "localhost",
	"POSTGRES_PORT":         "5432",
	"POSTGRES_DB":           "venture_pulse",
	"VENTURE_STORE":         "postgres",
	"SESSION_BACKEND":       "redis",
	"REDIS_URL":             "redis://localhost:6379/0",
	"BADGER_PATH":           "data/sessions",
	"SESSION_TTL":           "24h",
	"SESSION_SECRETS_KEY":   "",
	"LLM_MODE":              "remote",
	"LLM_PROVIDER":          "openai",
	"LLM_MODEL":             "gpt-4.1",
	"LLM_BASE_URL":          "",
	"LLM_FALLBACK_PROVIDER": "",
	"LLM_FALLBACK_MODEL":    "",
	"LLM_FALLBACK_BASE_URL": "",
	"OPENAI_API_KEY":        "",
	"OPENROUTER_API_KEY":    "",
	"GEMINI_API_KEY":        "",
	"LLM_TEMPERATURE":       0.3,
	"LLM_MAX_TOKENS":        1024,
	"AGENT_MAX_ROUNDS":      5,
	"HISTORY_WINDOW":        20,
	"SUMMARY_THRESHOLD":     0,
	"SUMMARY_KEEP":          10,
	"ANALYST_PROMPT_PATH":   "",
	"QUERY_RATE_PER_MINUTE": 30,
	"LOG_LEVEL":             "info",
}

// Load reads configuration from the environment and an optional
// venture-pulse.yaml in the working directory. VENTURE_PULSE_CONFIG points at
// an explicit file, which must then exist.
func Load() (Config, error) {
	return LoadWith(viper.New())
}

func LoadWith(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if explicit := strings.TrimSpace(v.GetString(configFileEnv)); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	postgresURL := v.GetString("POSTGRES_URL")
	if postgresURL == "" {
		postgresURL = buildPostgresURL(v)
	}
	cfg := Config{
		Port:                v.GetString("PORT"),
		PostgresURL:         postgresURL,
		VentureStore:        strings.ToLower(strings.TrimSpace(v.GetString("VENTURE_STORE"))),
		SessionBackend:      strings.ToLower(strings.TrimSpace(v.GetString("SESSION_BACKEND"))),
		RedisURL:            v.GetString("REDIS_URL"),
		BadgerPath:          v.GetString("BADGER_PATH"),
		SessionTTL:          v.GetDuration("SESSION_TTL"),
		SessionSecretsKey:   v.GetString("SESSION_SECRETS_KEY"),
		LLMMode:             v.GetString("LLM_MODE"),
		LLMProvider:         v.GetString("LLM_PROVIDER"),
		LLMModel:            v.GetString("LLM_MODEL"),
		LLMBaseURL:          v.GetString("LLM_BASE_URL"),
		LLMFallbackProvider: v.GetString("LLM_FALLBACK_PROVIDER"),
		LLMFallbackModel:    v.GetString("LLM_FALLBACK_MODEL"),
		LLMFallbackBaseURL:  v.GetString("LLM_FALLBACK_BASE_URL"),
		OpenAIAPIKey:        v.GetString("OPENAI_API_KEY"),
		OpenRouterAPIKey:    v.GetString("OPENROUTER_API_KEY"),
		GeminiAPIKey:        v.GetString("GEMINI_API_KEY"),
		LLMTemperature:      float32(v.GetFloat64("LLM_TEMPERATURE")),
		LLMMaxTokens:        v.GetInt("LLM_MAX_TOKENS"),
		AgentMaxRounds:      v.GetInt("AGENT_MAX_ROUNDS"),
		HistoryWindow:       v.GetInt("HISTORY_WINDOW"),
		SummaryThreshold:    v.GetInt("SUMMARY_THRESHOLD"),
		SummaryKeep:         v.GetInt("SUMMARY_KEEP"),
		AnalystPromptPath:   v.GetString("ANALYST_PROMPT_PATH"),
		QueryRatePerMinute:  v.GetInt("QUERY_RATE_PER_MINUTE"),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.VentureStore {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported VENTURE_STORE %q", c.VentureStore)
	}
	switch c.SessionBackend {
	case "redis", "badger", "memory":
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func buildPostgresURL(v *viper.Viper) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		v.GetString("POSTGRES_USER"),
		v.GetString("POSTGRES_PASSWORD"),
		v.GetString("POSTGRES_HOST"),
		v.GetString("POSTGRES_PORT"),
		v.GetString("POSTGRES_DB"),
	)
}
