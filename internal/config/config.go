package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// AI provider
	AIProvider    string // "openai" | "gemini" | "ollama"
	AIModel       string
	AIMaxTokens   int
	AIMaxRetries  int
	OpenAIAPIKey  string
	GeminiAPIKey  string
	OllamaBaseURL string

	// YouTube
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
	YouTubeCategory     string
	YouTubePrivacy      string

	// Storage
	StoragePath string

	// Workers
	WorkerCount int

	// Scheduler
	AutoGenerateEnabled bool
	AutoUploadEnabled   bool
	DefaultDuration     int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),

		AIProvider:    getEnvOrDefault("AI_PROVIDER", "openai"),
		AIModel:       getEnvOrDefault("AI_MODEL", ""),
		AIMaxTokens:   getEnvAsIntOrDefault("AI_MAX_TOKENS", 2000),
		AIMaxRetries:  getEnvAsIntOrDefault("AI_MAX_RETRIES", 3),
		OpenAIAPIKey:  getEnvOrDefault("OPENAI_API_KEY", ""),
		GeminiAPIKey:  getEnvOrDefault("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434"),

		YouTubeClientID:     getEnvOrDefault("YOUTUBE_CLIENT_ID", ""),
		YouTubeClientSecret: getEnvOrDefault("YOUTUBE_CLIENT_SECRET", ""),
		YouTubeRefreshToken: getEnvOrDefault("YOUTUBE_REFRESH_TOKEN", ""),
		YouTubeCategory:     getEnvOrDefault("YOUTUBE_DEFAULT_CATEGORY", "22"),
		YouTubePrivacy:      getEnvOrDefault("YOUTUBE_DEFAULT_PRIVACY", "private"),

		StoragePath: getEnvOrDefault("STORAGE_PATH", "./storage"),
		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 5),

		AutoGenerateEnabled: getEnvAsBoolOrDefault("AUTO_GENERATION_ENABLED", true),
		AutoUploadEnabled:   getEnvAsBoolOrDefault("AUTO_UPLOAD_ENABLED", true),
		DefaultDuration:     getEnvAsIntOrDefault("VIDEO_DEFAULT_DURATION", 300),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
