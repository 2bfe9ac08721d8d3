package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"coworking/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("COWORKING_TEST_TOKEN", "test_token")

	yamlContent := `
telegram:
  bot_token: "${COWORKING_TEST_TOKEN}"
remote:
  base_url: "http://api.local:8000"
  timeout: 3s
poll:
  interval: 2s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telegram.BotToken != "test_token" {
		t.Errorf("expected bot_token test_token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("expected remote timeout 3s, got %s", cfg.Remote.Timeout)
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %s", cfg.Poll.Interval)
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("expected bot config to be valid: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Remote: RemoteConfig{BaseURL: "https://api.example.org"}},
			wantErr: false,
		},
		{
			name:    "missing base url",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "relative base url",
			cfg:     Config{Remote: RemoteConfig{BaseURL: "/api"}},
			wantErr: true,
		},
		{
			name: "negative poll interval",
			cfg: Config{
				Remote: RemoteConfig{BaseURL: "https://api.example.org"},
				Poll:   PollConfig{Interval: -time.Second},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBot(t *testing.T) {
	for _, token := range []string{"", "YOUR_BOT_TOKEN_HERE"} {
		cfg := Config{Telegram: TelegramConfig{BotToken: token}}
		if err := cfg.ValidateBot(); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Poll.Interval != models.DefaultPollInterval {
		t.Errorf("expected default poll interval %s, got %s", models.DefaultPollInterval, cfg.Poll.Interval)
	}
	if cfg.Remote.Timeout != models.DefaultRemoteTimeout {
		t.Errorf("expected default remote timeout %s, got %s", models.DefaultRemoteTimeout, cfg.Remote.Timeout)
	}
	if cfg.Auth.LoginPath != "/auth/jwt/login" || cfg.Auth.CheckPath != "/htoya/" || cfg.Auth.CookieName != "bonds" {
		t.Errorf("unexpected auth defaults: %+v", cfg.Auth)
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.API.GRPC.Port != 8081 {
		t.Errorf("expected default grpc port 8081, got %d", cfg.API.GRPC.Port)
	}
	if cfg.Monitoring.PrometheusPort != 0 {
		t.Errorf("prometheus port should stay unset while disabled, got %d", cfg.Monitoring.PrometheusPort)
	}
	if cfg.RabbitMQ.Queue != "coworking.booking.created" {
		t.Errorf("unexpected default queue %q", cfg.RabbitMQ.Queue)
	}
	if cfg.Bot.RateLimitMessages != models.RateLimitMessages {
		t.Errorf("expected default rate limit messages %d, got %d", models.RateLimitMessages, cfg.Bot.RateLimitMessages)
	}
}
