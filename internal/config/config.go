package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	WhatsApp struct {
		Enabled         bool   `yaml:"enabled"`
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		SenderID        string `yaml:"sender_id"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"whatsapp"`

	Payments struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"payments"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Notifications struct {
		Enabled             bool    `yaml:"enabled"`
		CheckIntervalMin    int     `yaml:"check_interval_minutes"`
		ReminderHoursBefore int     `yaml:"reminder_hours_before"`
		MaxConcurrentSends  int     `yaml:"max_concurrent_sends"`
		RetentionDays       int     `yaml:"retention_days"`
		RatePerSecond       float64 `yaml:"rate_per_second"`
		Burst               int     `yaml:"burst"`
	} `yaml:"notifications"`

	Scheduling struct {
		MaxAvailabilityDaysRange int    `yaml:"max_availability_days_range"`
		TrialDays                int    `yaml:"trial_days"`
		GraceDays                int    `yaml:"grace_days"`
		Timezone                 string `yaml:"timezone"`
		BillingRefreshHour       int    `yaml:"billing_refresh_hour"`
	} `yaml:"scheduling"`

	Reports struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"reports"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/studioflow.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ServerPort() int {
	if c.Server.Port <= 0 {
		return 8080
	}
	return c.Server.Port
}

func (c *Config) NotificationCheckInterval() time.Duration {
	if c.Notifications.CheckIntervalMin <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Notifications.CheckIntervalMin) * time.Minute
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// MaxAvailabilityRange bounds the date window an availability query may ask
// for, keeping a single request from scanning a whole year of assignments.
func (c *Config) MaxAvailabilityRange() int {
	if c.Scheduling.MaxAvailabilityDaysRange <= 0 {
		return 90
	}
	return c.Scheduling.MaxAvailabilityDaysRange
}

func (c *Config) TrialDays() int {
	if c.Scheduling.TrialDays <= 0 {
		return 14
	}
	return c.Scheduling.TrialDays
}

func (c *Config) GraceDays() int {
	if c.Scheduling.GraceDays <= 0 {
		return 7
	}
	return c.Scheduling.GraceDays
}

func (c *Config) BillingTimezone() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil || c.Scheduling.Timezone == "" {
		return time.UTC
	}
	return loc
}

func (c *Config) WhatsAppCacheTTL() time.Duration {
	if c.WhatsApp.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.WhatsApp.CacheTTLSeconds) * time.Second
}
