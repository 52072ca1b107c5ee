package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Ai       AIConfig
	Session  SessionConfig
	Intake   IntakeConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
	LogSQL             bool
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	Geoapify     string
	GoogleGemini string
	OpenAI       string
}

type AIConfig struct {
	LLMProvider    string // "openai" or "ollama"
	LLMModel       string
	LLMBaseURL     string
	LLMMaxTokens   int
	LLMTemperature float64
	VisionModel    string
}

type SessionConfig struct {
	Secret          string
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxMessages     int
}

type IntakeConfig struct {
	CollaboratorTimeout time.Duration
	QuickOptionsFile    string
	MaxUploadBytes      int64
	ReplyChunkRunes     int
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
			LogSQL:             getEnvAsBool("DB_LOG_SQL", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "ERABU"),
		},
		Keys: APIKeys{
			Geoapify:     getEnv("GEOAPIFY_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "openai"),
			LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
			LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
			LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			VisionModel:    getEnv("VISION_MODEL", "gemini-2.5-flash"),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", getEnv("JWT_SECRET", "")),
			IdleTTL:         time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
			MaxMessages:     getEnvAsInt("MAX_MESSAGES_CACHED", 50),
		},
		Intake: IntakeConfig{
			CollaboratorTimeout: getEnvAsDuration("COLLABORATOR_TIMEOUT", 30*time.Second),
			QuickOptionsFile:    getEnv("QUICK_OPTIONS_FILE", ""),
			MaxUploadBytes:      int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
			ReplyChunkRunes:     getEnvAsInt("REPLY_CHUNK_RUNES", 4),
		},
	}

	if cfg.Session.Secret == "" {
		if cfg.IsProduction() {
			log.Fatal("SESSION_SECRET must be set in production")
		}
		log.Println("Warn: SESSION_SECRET not set, using an insecure development secret")
		cfg.Session.Secret = "dev-session-secret"
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
