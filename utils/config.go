package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

type Config struct {
	DatabaseURL    string
	Port           string
	ServiceToken   string
	AllowedOrigins []string
	RewardTimezone *time.Location
	LogMode        string

	RedisAddr    string
	RedisChannel string

	SyncServiceURL string
	SyncPath       string
	SyncInterval   time.Duration

	PruneCron string

	R2 R2Config
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           envOr("PORT", "5300"),
		ServiceToken:   os.Getenv("GAME_SERVICE_TOKEN"),
		AllowedOrigins: splitList(envOr("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogMode:        envOr("LOG_MODE", "dev"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisChannel:   envOr("REDIS_CHANNEL", "reward-notifications"),
		SyncServiceURL: os.Getenv("SYNC_SERVICE_URL"),
		SyncPath:       envOr("SYNC_PATH", "/api/v1/public/profiles"),
		PruneCron:      envOr("PRUNE_CRON", "5 0 * * *"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.ServiceToken == "" {
		return nil, fmt.Errorf("GAME_SERVICE_TOKEN environment variable not set")
	}

	loc, err := time.LoadLocation(envOr("REWARD_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid REWARD_TIMEZONE: %w", err)
	}
	cfg.RewardTimezone = loc

	interval, err := time.ParseDuration(envOr("SYNC_INTERVAL", "5m"))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL %q", os.Getenv("SYNC_INTERVAL"))
	}
	cfg.SyncInterval = interval

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
