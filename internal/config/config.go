package config

import (
	"os"
	"strings"
)

type Config struct {
	ListenAddr     string
	DBPath         string
	StorageBackend string
	PhotoBackend   string
	PhotoPath      string

	AdminUser         string
	AdminPasswordHash string
	AdminPassword     string
	CSRFKey           string
	SecureCookies     bool

	NotifyBackend string
	NotifyTo      []string
	NotifyFrom    string
	ResendAPIKey  string
	AWSRegion     string

	LogLevel  string
	LogFile   string
	LogFormat string
}

func Load() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "/data/canary.db"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "sqlite"),
		PhotoBackend:      getEnv("PHOTO_BACKEND", "inline"),
		PhotoPath:         getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "user"),
		CSRFKey:           getEnv("CSRF_KEY", ""),
		SecureCookies:     os.Getenv("SECURE_COOKIES") == "1" || os.Getenv("SECURE_COOKIES") == "true",
		NotifyBackend:     getEnv("NOTIFY_BACKEND", "none"),
		NotifyTo:          splitList(getEnv("NOTIFY_TO", "")),
		NotifyFrom:        getEnv("NOTIFY_FROM", ""),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		AWSRegion:         getEnv("AWS_REGION", "ap-northeast-1"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
