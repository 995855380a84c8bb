package config

import (
	"os"
	"strings"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// ApplyEnv overrides file values with environment variables. Deployment
// secrets are expected to arrive this way rather than through the file.
//
//	ZB_ADDR, DB_DRIVER, DB_PATH, DATABASE_URL, JWT_SECRET, ADMIN_EMAILS (comma separated),
//	TZ_NAME, TEAMS_WEBHOOK_URL, REDIS_ADDR, IDEMPOTENCY_PATH, TRACING_EXPORTER, LOG_LEVEL
func (c *Config) ApplyEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyEnv()
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("ZB_ADDR", c.Server.Addr)
	c.Storage.Driver = getEnv("DB_DRIVER", c.Storage.Driver)
	c.Storage.SQLitePath = getEnv("DB_PATH", c.Storage.SQLitePath)
	c.Storage.PostgresDSN = getEnv("DATABASE_URL", c.Storage.PostgresDSN)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		var patterns []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		c.Auth.AdminEmails = patterns
	}
	c.Timeline.Timezone = getEnv("TZ_NAME", c.Timeline.Timezone)
	c.Notify.TeamsWebhookURL = getEnv("TEAMS_WEBHOOK_URL", c.Notify.TeamsWebhookURL)
	c.Notify.RedisAddr = getEnv("REDIS_ADDR", c.Notify.RedisAddr)
	c.Idempotency.Path = getEnv("IDEMPOTENCY_PATH", c.Idempotency.Path)
	c.Tracing.Exporter = getEnv("TRACING_EXPORTER", c.Tracing.Exporter)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}
