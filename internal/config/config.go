package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sync     SyncConfig     `yaml:"sync"`
	HTTP     HTTPConfig     `yaml:"http"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// RedditConfig drives strategy selection: MockMode wins, then client
// credentials, then the public JSON endpoints.
type RedditConfig struct {
	Username     string `yaml:"username"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
	MockMode     bool   `yaml:"mock_mode"`

	// Hosts are tried in order for every public fetch; old.reddit.com
	// is less aggressively filtered than www.
	Hosts []string `yaml:"hosts"`

	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	MinDelay        time.Duration `yaml:"min_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	MaxCommentPages int           `yaml:"max_comment_pages"`
}

type ScheduleConfig struct {
	Cron       string        `yaml:"cron"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type SyncConfig struct {
	UploadURL string `yaml:"upload_url"`
	APIKey    string `yaml:"api_key"`
}

type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Reddit.Username == "" {
		c.Reddit.Username = "BriteCo_Insurance"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "comment-tracker/1.0"
	}
	if len(c.Reddit.Hosts) == 0 {
		c.Reddit.Hosts = []string{"https://old.reddit.com", "https://www.reddit.com"}
	}
	if c.Reddit.Timeout == 0 {
		c.Reddit.Timeout = 30 * time.Second
	}
	if c.Reddit.MaxAttempts == 0 {
		c.Reddit.MaxAttempts = 3
	}
	if c.Reddit.InitialBackoff == 0 {
		c.Reddit.InitialBackoff = 10 * time.Second
	}
	if c.Reddit.MinDelay == 0 {
		c.Reddit.MinDelay = 1500 * time.Millisecond
	}
	if c.Reddit.MaxDelay == 0 {
		c.Reddit.MaxDelay = 3500 * time.Millisecond
	}
	if c.Reddit.MaxCommentPages == 0 {
		c.Reddit.MaxCommentPages = 5
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 8 * * *"
	}
	if c.Schedule.RunTimeout == 0 {
		c.Schedule.RunTimeout = 30 * time.Minute
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
