package utils

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for key, value := range map[string]string{
		"DATABASE_URL":       "postgres://localhost/rewards",
		"GAME_SERVICE_TOKEN": "token",
		"PORT":               "",
		"ALLOWED_ORIGINS":    "",
		"REWARD_TIMEZONE":    "",
		"SYNC_INTERVAL":      "",
		"REDIS_ADDR":         "",
		"R2_BUCKET_NAME":     "",
	} {
		t.Setenv(key, value)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "5300" || cfg.RewardTimezone != time.UTC || cfg.SyncInterval != 5*time.Minute {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.R2.Enabled() {
		t.Fatal("R2 enabled without credentials")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://a.test , ,https://b.test")
	t.Setenv("REWARD_TIMEZONE", "Europe/Berlin")
	t.Setenv("SYNC_INTERVAL", "90s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RewardTimezone.String() != "Europe/Berlin" || cfg.SyncInterval != 90*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {"DATABASE_URL": ""},
		"missing token":    {"GAME_SERVICE_TOKEN": ""},
		"bad timezone":     {"REWARD_TIMEZONE": "Mars/Olympus"},
		"bad interval":     {"SYNC_INTERVAL": "soon"},
		"zero interval":    {"SYNC_INTERVAL": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
