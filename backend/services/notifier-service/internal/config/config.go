package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "avacharge/backend/libs/config"
)

// HTTPConfig holds the listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

// RedisConfig points at the station document store.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"NOTIFIER_REDIS_ADDR"`
	Password  string `yaml:"password" env:"NOTIFIER_REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"NOTIFIER_REDIS_DB"`
	KeyPrefix string `yaml:"keyPrefix" env:"NOTIFIER_REDIS_PREFIX"`
}

// DatabaseConfig enables the notification log when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"NOTIFIER_POSTGRES_DSN"`
}

// WebhookConfig describes the Teams incoming webhook.
type WebhookConfig struct {
	URL            string  `yaml:"url" env:"TEAMS_WEBHOOK_URL"`
	Timeout       time.Duration `yaml:"timeout" env:"NOTIFIER_WEBHOOK_TIMEOUT"`
	RatePerSecond float64       `yaml:"ratePerSecond" env:"NOTIFIER_WEBHOOK_RATE"`
	Summary       string        `yaml:"summary" env:"NOTIFIER_WEBHOOK_SUMMARY"`
	ThemeColor    string        `yaml:"themeColor" env:"NOTIFIER_WEBHOOK_THEME"`
}

// ResetConfig guards /reset-daily. SecretHash is a bcrypt hash; a key matching either is accepted.
type ResetConfig struct {
	Secret      string `yaml:"secret" env:"RESET_SECRET"`
	SecretHash  string `yaml:"secretHash" env:"RESET_SECRET_HASH"`
	Concurrency int    `yaml:"concurrency" env:"RESET_CONCURRENCY"`
}

// PushConfig controls POST /notify.
type PushConfig struct {
	JWTSecret    string `yaml:"jwtSecret" env:"NOTIFY_JWT_SECRET"`
	StrictStatus bool   `yaml:"strictStatus" env:"NOTIFY_STRICT_STATUS"`
}

// RulesConfig bounds the "ending soon" window (open interval, seconds before session end).
type RulesConfig struct {
	EndingSoonLowerSeconds int `yaml:"endingSoonLowerSeconds" env:"ENDING_SOON_LOWER_SECONDS"`
	EndingSoonUpperSeconds int `yaml:"endingSoonUpperSeconds" env:"ENDING_SOON_UPPER_SECONDS"`
}

// ScheduleConfig holds cron specs. An empty spec disables the job.
type ScheduleConfig struct {
	Poll       string `yaml:"poll" env:"POLL_SCHEDULE"`
	DailyReset string `yaml:"dailyReset" env:"DAILY_RESET_SCHEDULE"`
	Timezone   string `yaml:"timezone" env:"SCHEDULE_TIMEZONE"`
}

// MQTTConfig enables the MQTT mirror when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker" env:"MQTT_BROKER"`
	Topic    string `yaml:"topic" env:"MQTT_TOPIC"`
	ClientID string `yaml:"clientId" env:"MQTT_CLIENT_ID"`
}

// WebSocketConfig tunes the live alert feed. An empty AllowedOrigins accepts any origin.
type WebSocketConfig struct {
	PingIntervalSeconds int      `yaml:"pingIntervalSeconds" env:"NOTIFIER_WS_PING_INTERVAL"`
	WriteTimeoutSeconds int      `yaml:"writeTimeoutSeconds" env:"NOTIFIER_WS_WRITE_TIMEOUT"`
	AllowedOrigins      []string `yaml:"allowedOrigins" env:"NOTIFIER_WS_ALLOWED_ORIGINS"`
}

// Config defines notifier service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Reset     ResetConfig     `yaml:"reset"`
	Push      PushConfig      `yaml:"push"`
	Rules     RulesConfig     `yaml:"rules"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// Defaults returns the configuration used before file and env overrides.
func Defaults() *Config {
	return &Config{
		HTTP:  HTTPConfig{Port: "3000"},
		Redis: RedisConfig{Addr: "localhost:6379", KeyPrefix: "stations"},
		Webhook: WebhookConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 4,
			Summary:       "AvaCharge Admin",
			ThemeColor:    "0076D7",
		},
		Reset: ResetConfig{Concurrency: 8},
		Rules: RulesConfig{
			EndingSoonLowerSeconds: 240,
			EndingSoonUpperSeconds: 360,
		},
		Schedule: ScheduleConfig{
			Poll:     "@every 1m",
			Timezone: "UTC",
		},
		MQTT: MQTTConfig{
			Topic:    "avacharge/notifications",
			ClientID: "avacharge-notifier",
		},
		WebSocket: WebSocketConfig{
			PingIntervalSeconds: 30,
			WriteTimeoutSeconds: 10,
		},
	}
}

// Load reads configuration via the shared helper (CONFIG_FILE) and validates it.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML path; an empty path falls back to CONFIG_FILE.
func LoadFile(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read applies defaults, file and env without validating. Commands that only touch the
// store use it so they run without a webhook configured.
func Read(path string) (*Config, error) {
	cfg := Defaults()

	var err error
	if path != "" {
		err = libconfig.LoadConfigFile(path, cfg)
	} else {
		err = libconfig.LoadConfig(cfg)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Webhook.URL) == "" {
		return errors.New("config: webhook url required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("config: redis addr required")
	}
	if c.Rules.EndingSoonLowerSeconds < 0 || c.Rules.EndingSoonUpperSeconds <= c.Rules.EndingSoonLowerSeconds {
		return fmt.Errorf("config: ending soon window (%ds, %ds) is empty",
			c.Rules.EndingSoonLowerSeconds, c.Rules.EndingSoonUpperSeconds)
	}
	if c.Webhook.Timeout <= 0 {
		return fmt.Errorf("config: webhook timeout must be positive, got %s", c.Webhook.Timeout)
	}
	if c.Webhook.RatePerSecond < 0 {
		return errors.New("config: webhook rate must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// EndingSoonWindow returns the window bounds as durations.
func (c *Config) EndingSoonWindow() (lower, upper time.Duration) {
	return time.Duration(c.Rules.EndingSoonLowerSeconds) * time.Second,
		time.Duration(c.Rules.EndingSoonUpperSeconds) * time.Second
}

// PingInterval returns websocket ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WebSocket.PingIntervalSeconds) * time.Second
}

// WriteTimeout returns websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WebSocket.WriteTimeoutSeconds) * time.Second
}
