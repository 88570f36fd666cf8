package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	APIMaxConnections  int
	APIMaxInFlight     int
	APIRateLimitRPS    float64
	APIRateLimitBurst  int
	APIMaxUploadBytes  int64
	APIShutdownTimeout time.Duration
	SpeakByDefault     bool

	RecordsPath             string
	RecordsSheet            string
	RecordsColumnMap        string
	RecordsPostgresDSN      string
	RecordsRefreshOnRequest bool
	RecordsRefreshSchedule  string

	LLMProvider       string
	ExtractionTimeout time.Duration
	LLMHTTPTimeout    time.Duration

	OllamaURL      string
	OllamaGenModel string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIChatModel   string
	OpenAISTTModel    string
	OpenAISTTLanguage string
	OpenAITTSModel    string
	OpenAITTSVoice    string
	OpenAIHTTPTimeout time.Duration

	AudioStore       string
	AudioStoragePath string
	AudioTTL         time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	NATSURL            string
	NATSLookupSubject  string
	NATSRecordsSubject string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerOpenTimeout  time.Duration
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		APIMaxConnections:  mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIMaxInFlight:     mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIRateLimitRPS:    mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst:  mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxUploadBytes:  int64(mustEnvInt("API_MAX_UPLOAD_BYTES", 25<<20)),
		APIShutdownTimeout: mustEnvDuration("API_SHUTDOWN_TIMEOUT", 10*time.Second),
		SpeakByDefault:     mustEnvBool("TTS_ENABLED", true),

		RecordsPath:             mustEnv("RECORDS_PATH", "./data/orders.xlsx"),
		RecordsSheet:            mustEnv("RECORDS_SHEET", ""),
		RecordsColumnMap:        mustEnv("RECORDS_COLUMN_MAP", ""),
		RecordsPostgresDSN:      mustEnv("RECORDS_POSTGRES_DSN", ""),
		RecordsRefreshOnRequest: mustEnvBool("RECORDS_REFRESH_ON_REQUEST", true),
		RecordsRefreshSchedule:  mustEnv("RECORDS_REFRESH_SCHEDULE", "@every 1m"),

		LLMProvider:       mustEnv("LLM_PROVIDER", "ollama"),
		ExtractionTimeout: mustEnvDuration("EXTRACTION_TIMEOUT", 15*time.Second),
		LLMHTTPTimeout:    mustEnvDuration("LLM_HTTP_TIMEOUT", 30*time.Second),

		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		GeminiAPIKey:  mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:   mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: mustEnv("GEMINI_BASE_URL", ""),

		OpenAIAPIKey:      mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     mustEnv("OPENAI_BASE_URL", ""),
		OpenAIChatModel:   mustEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAISTTModel:    mustEnv("OPENAI_STT_MODEL", "whisper-1"),
		OpenAISTTLanguage: mustEnv("OPENAI_STT_LANGUAGE", "en"),
		OpenAITTSModel:    mustEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:    mustEnv("OPENAI_TTS_VOICE", "alloy"),
		OpenAIHTTPTimeout: mustEnvDuration("OPENAI_HTTP_TIMEOUT", 60*time.Second),

		AudioStore:       mustEnv("AUDIO_STORE", "localfs"),
		AudioStoragePath: mustEnv("AUDIO_STORAGE_PATH", "./data/audio"),
		AudioTTL:         mustEnvDuration("AUDIO_TTL", 30*time.Minute),
		RedisAddr:        mustEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    mustEnv("REDIS_PASSWORD", ""),
		RedisDB:          mustEnvInt("REDIS_DB", 0),

		NATSURL:            mustEnv("NATS_URL", ""),
		NATSLookupSubject:  mustEnv("NATS_LOOKUP_SUBJECT", "orders.lookup.completed"),
		NATSRecordsSubject: mustEnv("NATS_RECORDS_SUBJECT", "records.changed"),

		RetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 2),
		RetryInitialBackoff: mustEnvDuration("RESILIENCE_RETRY_INITIAL_BACKOFF", 150*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("RESILIENCE_RETRY_MAX_BACKOFF", time.Second),
		BreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		BreakerOpenTimeout:  mustEnvDuration("RESILIENCE_BREAKER_OPEN_TIMEOUT", 20*time.Second),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
