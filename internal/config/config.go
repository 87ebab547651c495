package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	Database  DatabaseConfig  `yaml:"database"`
	Leads     LeadsConfig     `yaml:"leads"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Dev          bool          `yaml:"dev"` // serve templates from disk
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	CookieName string        `yaml:"cookie_name"`
	MaxAge     time.Duration `yaml:"max_age"`
	Secure     bool          `yaml:"secure"`
}

// AuthConfig controls how session tokens are trusted. With an empty
// VerifyKey tokens are decoded without signature checks.
type AuthConfig struct {
	VerifyKey string `yaml:"verify_key"`
}

type MailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	To       string        `yaml:"to"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig is optional; without a URL the lead archive is disabled.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type LeadsConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	EncryptionKey string        `yaml:"encryption_key"`
}

type RateLimitConfig struct {
	Contact LimitConfig `yaml:"contact"`
	Forms   LimitConfig `yaml:"forms"`
}

type LimitConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
}

// Load reads .env (if present), the YAML file at path (if any) and
// environment overrides, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL: "https://mbnakomapis-production.up.railway.app/api",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			CookieName: "token",
			MaxAge:     30 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Host:    "smtp.gmail.com",
			Port:    587,
			Timeout: 15 * time.Second,
		},
		Leads: LeadsConfig{
			BatchSize:     50,
			FlushInterval: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Contact: LimitConfig{Rate: 5, Window: 10 * time.Minute},
			Forms:   LimitConfig{Rate: 30, Window: time.Minute},
		},
	}
}

func expandEnvVars(s string) string {
	return os.ExpandEnv(s)
}

func applyEnvOverrides(cfg *Config) {
	str := map[string]*string{
		"MBNAKOM_HOST":           &cfg.Server.Host,
		"MBNAKOM_BACKEND_URL":    &cfg.Backend.BaseURL,
		"MBNAKOM_DATABASE_URL":   &cfg.Database.URL,
		"MBNAKOM_VERIFY_KEY":     &cfg.Auth.VerifyKey,
		"MBNAKOM_ENCRYPTION_KEY": &cfg.Leads.EncryptionKey,
		"SMTP_USER":              &cfg.Mail.Username,
		"SMTP_PASS":              &cfg.Mail.Password,
		"CONTACT_EMAIL":          &cfg.Mail.To,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("MBNAKOM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MBNAKOM_DEV"); v != "" {
		if dev, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Dev = dev
		}
	}
	if v := os.Getenv("MBNAKOM_SECURE_COOKIES"); v != "" {
		if secure, err := strconv.ParseBool(v); err == nil {
			cfg.Session.Secure = secure
		}
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("backend.base_url %q must be an http(s) URL", c.Backend.BaseURL))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	if c.Session.MaxAge <= 0 {
		errs = append(errs, errors.New("session.max_age must be positive"))
	}
	if c.Mail.Port <= 0 {
		errs = append(errs, errors.New("mail.port must be positive"))
	}
	if c.Database.URL != "" {
		if c.Leads.BatchSize <= 0 {
			errs = append(errs, errors.New("leads.batch_size must be positive"))
		}
		if c.Leads.FlushInterval <= 0 {
			errs = append(errs, errors.New("leads.flush_interval must be positive"))
		}
	}
	for name, l := range map[string]LimitConfig{"contact": c.RateLimit.Contact, "forms": c.RateLimit.Forms} {
		if l.Rate < 0 || (l.Rate > 0 && l.Window <= 0) {
			errs = append(errs, fmt.Errorf("rate_limit.%s needs a non-negative rate and a positive window", name))
		}
	}
	return errors.Join(errs...)
}

// MailConfigured reports whether SMTP credentials and a recipient are set.
func (c *Config) MailConfigured() bool {
	return c.Mail.Username != "" && c.Mail.Password != "" && c.Mail.To != ""
}

// LeadsEnabled reports whether the lead archive should be started.
func (c *Config) LeadsEnabled() bool {
	return c.Database.URL != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) MigrationsSource() string {
	return "file://migrations"
}

func (c *Config) DatabaseURLForMigrate() string {
	url := c.Database.URL
	if !strings.Contains(url, "sslmode=") {
		if strings.Contains(url, "?") {
			url += "&sslmode=disable"
		} else {
			url += "?sslmode=disable"
		}
	}
	return url
}
