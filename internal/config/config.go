package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hubmirror/internal/domain"
	"hubmirror/internal/hubspot"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	HubSpot  HubSpotConfig  `yaml:"hubspot"`
	Importer ImporterConfig `yaml:"importer"`
	Sync     SyncConfig     `yaml:"sync"`
	Media    MediaConfig    `yaml:"media"`
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

type HTTPConfig struct {
	Addr       string `yaml:"addr"`
	AdminToken string `yaml:"admin_token"`
}

// RabbitMQConfig is optional; an empty URL disables post events.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type HubSpotConfig struct {
	BaseURL      string        `yaml:"base_url"`
	PageSize     int           `yaml:"page_size"`
	MaxPosts     int           `yaml:"max_posts"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// ImporterConfig seeds the importer settings; the settings surface can
// override every field at runtime.
type ImporterConfig struct {
	APIToken   string `yaml:"api_token"`
	PostType   string `yaml:"post_type"`
	PostStatus string `yaml:"post_status"`
}

type SyncConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   string        `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type MediaConfig struct {
	Dir             string        `yaml:"dir"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HubSpot.BaseURL == "" {
		c.HubSpot.BaseURL = hubspot.DefaultBaseURL
	}
	if c.HubSpot.PageSize == 0 {
		c.HubSpot.PageSize = 50
	}
	if c.HubSpot.MaxPosts == 0 {
		c.HubSpot.MaxPosts = 500
	}
	if c.HubSpot.FetchTimeout == 0 {
		c.HubSpot.FetchTimeout = 30 * time.Second
	}
	if c.HubSpot.ProbeTimeout == 0 {
		c.HubSpot.ProbeTimeout = 15 * time.Second
	}
	if c.Importer.PostType == "" {
		c.Importer.PostType = "post"
	}
	if c.Importer.PostStatus == "" {
		c.Importer.PostStatus = string(domain.StatusDraft)
	}
	if c.Sync.Interval == "" {
		c.Sync.Interval = string(domain.IntervalDaily)
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 5 * time.Minute
	}
	if c.Media.Dir == "" {
		c.Media.Dir = "media"
	}
	if c.Media.DownloadTimeout == 0 {
		c.Media.DownloadTimeout = 30 * time.Second
	}
	if c.RabbitMQ.URL != "" {
		if c.RabbitMQ.Exchange == "" {
			c.RabbitMQ.Exchange = "hubmirror"
		}
		if c.RabbitMQ.RoutingKey == "" {
			c.RabbitMQ.RoutingKey = "posts"
		}
		if c.RabbitMQ.QueueName == "" {
			c.RabbitMQ.QueueName = "mirrored_posts"
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if !domain.Status(c.Importer.PostStatus).Valid() {
		return fmt.Errorf("invalid post_status %q", c.Importer.PostStatus)
	}
	if !domain.Interval(c.Sync.Interval).Valid() {
		return fmt.Errorf("invalid sync interval %q", c.Sync.Interval)
	}
	return nil
}

// Settings returns the importer defaults seeded from the config file.
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		APIToken:    c.Importer.APIToken,
		PostType:    c.Importer.PostType,
		PostStatus:  domain.Status(c.Importer.PostStatus),
		SyncEnabled: c.Sync.Enabled,
		Interval:    domain.Interval(c.Sync.Interval),
	}
}
