// Package config loads the assistant's settings from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SecretPrefix marks a value stored in the system keyring under the name
// that follows it, e.g. "keyring:whatsapp_token".
const SecretPrefix = "keyring:"

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds the HTTP gateway settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// WhatsAppConfig holds the WhatsApp Cloud API credentials.
type WhatsAppConfig struct {
	APIBase       string `mapstructure:"api_base" yaml:"api_base"`
	PhoneNumberID string `mapstructure:"phone_number_id" yaml:"phone_number_id"`
	AccessToken   string `mapstructure:"access_token" yaml:"access_token"`
	VerifyToken   string `mapstructure:"verify_token" yaml:"verify_token"`
}

// Enabled reports whether outbound WhatsApp delivery is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.PhoneNumberID != "" && c.AccessToken != ""
}

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// IMAPConfig holds the inbound mailbox settings.
type IMAPConfig struct {
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	Password        string `mapstructure:"password" yaml:"password"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// EmailConfig groups the mail transports.
type EmailConfig struct {
	Subject string     `mapstructure:"subject" yaml:"subject"`
	SMTP    SMTPConfig `mapstructure:"smtp" yaml:"smtp"`
	IMAP    IMAPConfig `mapstructure:"imap" yaml:"imap"`
}

// SchedulerConfig holds the periodic job settings.
type SchedulerConfig struct {
	ReminderIntervalSec int `mapstructure:"reminder_interval_sec" yaml:"reminder_interval_sec"`
	OverdueIntervalSec  int `mapstructure:"overdue_interval_sec" yaml:"overdue_interval_sec"`
	DigestCheckSec      int `mapstructure:"digest_check_sec" yaml:"digest_check_sec"`
	ReminderBatch       int `mapstructure:"reminder_batch" yaml:"reminder_batch"`

	// DigestTime is the users' local time of the daily digest, "HH:MM".
	DigestTime      string `mapstructure:"digest_time" yaml:"digest_time"`
	DigestWindowMin int    `mapstructure:"digest_window_min" yaml:"digest_window_min"`
}

// HealthConfig holds the optional self health ping.
type HealthConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	IntervalSec int    `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Config is the top-level application configuration.
type Config struct {
	Timezone  string          `mapstructure:"timezone" yaml:"timezone"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp" yaml:"whatsapp"`
	Email     EmailConfig     `mapstructure:"email" yaml:"email"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Health    HealthConfig    `mapstructure:"health" yaml:"health"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// DefaultPath returns ~/.config/taskassistant/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskassistant", "config.yaml")
}

// DefaultDatabasePath returns ~/.config/taskassistant/assistant.db.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultPath()), "assistant.db")
}

var defaults = map[string]any{
	"timezone":                        "America/Mexico_City",
	"server.addr":                     ":3000",
	"whatsapp.api_base":               "https://graph.facebook.com/v20.0",
	"whatsapp.phone_number_id":        "",
	"whatsapp.access_token":           "",
	"whatsapp.verify_token":           "",
	"email.subject":                   "Tu asistente de tareas",
	"email.smtp.host":                 "",
	"email.smtp.port":                 "587",
	"email.smtp.username":             "",
	"email.smtp.password":             "",
	"email.smtp.from":                 "",
	"email.smtp.tls":                  false,
	"email.imap.host":                 "",
	"email.imap.port":                 "993",
	"email.imap.username":             "",
	"email.imap.password":             "",
	"email.imap.tls":                  true,
	"email.imap.mailbox":              "INBOX",
	"email.imap.poll_interval_sec":    120,
	"scheduler.reminder_interval_sec": 300,
	"scheduler.overdue_interval_sec":  3600,
	"scheduler.digest_check_sec":      60,
	"scheduler.reminder_batch":        100,
	"scheduler.digest_time":           "08:00",
	"scheduler.digest_window_min":     60,
	"health.url":                      "",
	"health.interval_sec":             600,
	"logging.level":                   "info",
	"logging.development":             false,
}

// envAliases are the environment names accepted besides ASSISTANT_*.
var envAliases = map[string]string{
	"whatsapp.access_token":    "WHATSAPP_ACCESS_TOKEN",
	"whatsapp.verify_token":    "WHATSAPP_VERIFY_TOKEN",
	"whatsapp.phone_number_id": "WHATSAPP_PHONE_NUMBER_ID",
	"whatsapp.api_base":        "WHATSAPP_API_URL",
	"timezone":                 "TIMEZONE",
	"health.url":               "HEALTH_PING_URL",
	"database.path":            "DATABASE_PATH",
	"server.addr":              "ADDR",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("database.path", DefaultDatabasePath())

	v.SetEnvPrefix("ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		_ = v.BindEnv(key, "ASSISTANT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias)
	}
	return v
}

// Load reads configuration from the YAML file at path, with environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return decode(v, path)
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
}

func decode(v *viper.Viper, path string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, _, err := ParseClock(c.Scheduler.DigestTime); err != nil {
		return err
	}
	return nil
}

// Location returns the default timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Watch calls onChange with the reloaded configuration whenever the file
// at path changes. Reloads that fail to parse are reported to onError and
// otherwise ignored.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v, path)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// Save writes cfg to a YAML file at path, creating parent directories if
// needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("timezone", cfg.Timezone)
	v.Set("database", cfg.Database)
	v.Set("server", cfg.Server)
	v.Set("whatsapp", cfg.WhatsApp)
	v.Set("email", cfg.Email)
	v.Set("scheduler", cfg.Scheduler)
	v.Set("health", cfg.Health)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// ParseClock parses "HH:MM" into an hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ResolveSecrets replaces every secret written as SecretPrefix+name with
// lookup(name).
func (c *Config) ResolveSecrets(lookup func(name string) (string, error)) error {
	secrets := []*string{
		&c.WhatsApp.AccessToken,
		&c.WhatsApp.VerifyToken,
		&c.Email.SMTP.Password,
		&c.Email.IMAP.Password,
	}
	for _, s := range secrets {
		name, ok := strings.CutPrefix(*s, SecretPrefix)
		if !ok {
			continue
		}
		value, err := lookup(name)
		if err != nil {
			return fmt.Errorf("resolving secret %q: %w", name, err)
		}
		*s = value
	}
	return nil
}

// Seconds converts a seconds setting to a duration, using fallback for
// non-positive values.
func Seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
