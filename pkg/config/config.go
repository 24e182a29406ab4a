package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	AppEnv             string
	LogLevel           string
	BaseURL            string
	FallbackURL        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string
	IPHashKey          string
	RedisURL           string
	TrustProxy         bool // take client IPs from X-Forwarded-For / X-Real-IP

	ScanWorkers     int
	ScanBuffer      int
	RedirectRate    float64 // requests per second per client IP, 0 disables limiting
	RedirectBurst   int
	MonitorInterval time.Duration
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:qrtrackr.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BaseURL:            baseURL,
		FallbackURL:        getEnv("FALLBACK_URL", baseURL+"/"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", baseURL+"/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		FrontendURL:        getEnv("FRONTEND_URL", baseURL+"/dashboard"),
		AllowedEmails:      splitList(getEnv("ALLOWED_EMAILS", "")),
		IPHashKey:          getEnv("IP_HASH_KEY", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		TrustProxy:         getEnv("TRUST_PROXY", "") == "true",
		ScanWorkers:        getEnvInt("SCAN_WORKERS", 2),
		ScanBuffer:         getEnvInt("SCAN_BUFFER", 256),
		RedirectRate:       getEnvFloat("REDIRECT_RATE", 5),
		RedirectBurst:      getEnvInt("REDIRECT_BURST", 20),
		MonitorInterval:    getEnvDuration("MONITOR_INTERVAL", 0),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
