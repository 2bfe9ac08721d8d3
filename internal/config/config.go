package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"coworking/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Remote     RemoteConfig     `yaml:"remote"`
	Auth       AuthConfig       `yaml:"auth"`
	Poll       PollConfig       `yaml:"poll"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Bot        BotConfig        `yaml:"bot"`
	SpacesFile string           `yaml:"spaces_file"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

// RemoteConfig points at the coworking REST API.
type RemoteConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ServiceToken string        `yaml:"service_token"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type AuthConfig struct {
	LoginPath  string `yaml:"login_path"`
	CheckPath  string `yaml:"check_path"`
	CookieName string `yaml:"cookie_name"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// APIGRPCConfig включает grpc.health.v1 для балансировщиков.
type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

// Load reads configPath, expanding ${VARS} from the environment and an optional .env file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks settings shared by every binary.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return errors.New("remote.base_url is required")
	}
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote.base_url must be an absolute URL, got %q", c.Remote.BaseURL)
	}
	if c.Poll.Interval < 0 {
		return errors.New("poll.interval must not be negative")
	}
	return nil
}

// ValidateBot checks the settings only the Telegram client needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "coworking"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = models.DefaultRemoteTimeout
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = models.DefaultPollInterval
	}
	if c.Auth.LoginPath == "" {
		c.Auth.LoginPath = "/auth/jwt/login"
	}
	if c.Auth.CheckPath == "" {
		c.Auth.CheckPath = "/htoya/"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "bonds"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = models.DefaultSessionTTL
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "coworking.booking.created"
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}
