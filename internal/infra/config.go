package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded once at process start.
// It is passed by reference into every component; nothing below cmd/ reads
// the environment directly.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	StoragePath    string
	StorageBaseURL string

	GeminiAPIKey    string
	GeminiBaseURL   string
	GeminiTextModel string
	GeminiImgModel  string

	DashScopeAPIKey  string
	DashScopeBaseURL string
	DashScopeModel   string

	VideoAPIKey  string
	VideoBaseURL string
	VideoModel   string

	GenTimeout    time.Duration
	GenMaxRetries int
	BatchWorkers  int
	// GenRateLimit caps generation requests per client per minute; zero
	// disables the limiter.
	GenRateLimit int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTextModel: getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImgModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),

		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		DashScopeModel:   getEnv("DASHSCOPE_MODEL", "wan2.2-t2i-flash"),

		VideoAPIKey:  os.Getenv("VIDEO_API_KEY"),
		VideoBaseURL: getEnv("VIDEO_BASE_URL", "https://api.klingai.com/v1"),
		VideoModel:   getEnv("VIDEO_MODEL", "kling-v1-6"),

		GenTimeout:    time.Second * time.Duration(getEnvInt("GEN_TIMEOUT_SECONDS", 120)),
		GenMaxRetries: getEnvInt("GEN_MAX_RETRIES", 3),
		BatchWorkers:  getEnvInt("BATCH_WORKERS", 4),
		GenRateLimit:  getEnvInt("GEN_RATE_LIMIT_PER_MINUTE", 30),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GenMaxRetries < 0 {
		return nil, fmt.Errorf("GEN_MAX_RETRIES must be >= 0")
	}
	if cfg.GenTimeout <= 0 {
		return nil, fmt.Errorf("GEN_TIMEOUT_SECONDS must be > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
