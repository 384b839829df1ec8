package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"payadmin/internal/types"
)

const (
	defaultAPIBaseURL      = "http://127.0.0.1:8000/api/v1"
	defaultTimeoutSeconds  = 15
	defaultPollSeconds     = 30
	defaultPageSize        = 20
	defaultSandboxAddress  = "127.0.0.1:8000"
	defaultAccessTTLSecond = 900
	envPrefix              = "PAYADMIN"
)

type Config struct {
	API           APIConfig           `json:"api" toml:"api"`
	Polling       PollingConfig       `json:"polling" toml:"polling"`
	Transfers     TransfersConfig     `json:"transfers" toml:"transfers"`
	Notifications NotificationsConfig `json:"notifications" toml:"notifications"`
	Logging       LoggingConfig       `json:"logging" toml:"logging"`
	Metrics       MetricsConfig       `json:"metrics" toml:"metrics"`
	Sandbox       SandboxConfig       `json:"sandbox" toml:"sandbox"`
}

type APIConfig struct {
	BaseURL        string `json:"base_url" toml:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds"`
	Email          string `json:"email" toml:"email"`
	// Password is only ever read from the environment.
	Password string `json:"-" toml:"-"`
}

type PollingConfig struct {
	IntervalSeconds int `json:"interval_seconds" toml:"interval_seconds"`
}

type TransfersConfig struct {
	PageSize            int   `json:"page_size" toml:"page_size"`
	ValidateTransitions *bool `json:"validate_transitions" toml:"validate_transitions"`
}

type NotificationsConfig struct {
	types.NotificationSettings
	Telegram TelegramConfig `json:"telegram" toml:"telegram"`
}

type TelegramConfig struct {
	Token  string `json:"token" toml:"token"`
	ChatID int64  `json:"chat_id" toml:"chat_id"`
}

type LoggingConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

type MetricsConfig struct {
	Address string `json:"address" toml:"address"`
}

type SandboxConfig struct {
	Address          string `json:"address" toml:"address"`
	DBPath           string `json:"db_path" toml:"db_path"`
	JWTSecret        string `json:"jwt_secret" toml:"jwt_secret"`
	AccessTTLSeconds int    `json:"access_ttl_seconds" toml:"access_ttl_seconds"`
}

func Default() Config {
	validate := true
	return Config{
		API: APIConfig{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Polling: PollingConfig{
			IntervalSeconds: defaultPollSeconds,
		},
		Transfers: TransfersConfig{
			PageSize:            defaultPageSize,
			ValidateTransitions: &validate,
		},
		Notifications: NotificationsConfig{
			NotificationSettings: types.DefaultNotificationSettings(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Sandbox: SandboxConfig{
			Address:          defaultSandboxAddress,
			AccessTTLSeconds: defaultAccessTTLSecond,
		},
	}
}

// Load reads ~/.payadmin/config.toml and applies PAYADMIN_* environment
// overrides. A missing file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	cfg.Notifications.NotificationSettings = types.NormalizeNotificationSettings(cfg.Notifications.NotificationSettings)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{"api_url", "log_level", "email", "password", "telegram_token", "telegram_chat_id", "metrics_addr"} {
		_ = v.BindEnv(key)
	}
	if v.IsSet("api_url") {
		cfg.API.BaseURL = v.GetString("api_url")
	}
	if v.IsSet("log_level") {
		cfg.Logging.Level = v.GetString("log_level")
	}
	if v.IsSet("email") {
		cfg.API.Email = v.GetString("email")
	}
	if v.IsSet("password") {
		cfg.API.Password = v.GetString("password")
	}
	if v.IsSet("telegram_token") {
		cfg.Notifications.Telegram.Token = v.GetString("telegram_token")
	}
	if v.IsSet("telegram_chat_id") {
		cfg.Notifications.Telegram.ChatID = v.GetInt64("telegram_chat_id")
	}
	if v.IsSet("metrics_addr") {
		cfg.Metrics.Address = v.GetString("metrics_addr")
	}
}

// Encode renders the config as TOML, as printed by `payadmin config`.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) APIBaseURL() string {
	url := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if url == "" {
		return defaultAPIBaseURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return url
}

func (c Config) RequestTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	if c.Polling.IntervalSeconds <= 0 {
		return defaultPollSeconds * time.Second
	}
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

func (c Config) PageSize() int {
	if c.Transfers.PageSize <= 0 {
		return defaultPageSize
	}
	return c.Transfers.PageSize
}

func (c Config) ValidateTransitions() bool {
	if c.Transfers.ValidateTransitions == nil {
		return true
	}
	return *c.Transfers.ValidateTransitions
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) LogFormat() string {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		return "console"
	}
	return format
}

func (c Config) MetricsAddress() string {
	return strings.TrimSpace(c.Metrics.Address)
}

func (c Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.Notifications.Telegram.Token) != "" && c.Notifications.Telegram.ChatID != 0
}

func (c Config) SandboxAddress() string {
	addr := strings.TrimSpace(c.Sandbox.Address)
	if addr == "" {
		return defaultSandboxAddress
	}
	return addr
}

func (c Config) SandboxAccessTTL() time.Duration {
	if c.Sandbox.AccessTTLSeconds <= 0 {
		return defaultAccessTTLSecond * time.Second
	}
	return time.Duration(c.Sandbox.AccessTTLSeconds) * time.Second
}

// SandboxDBPath resolves the sandbox sqlite path. Relative paths are placed in
// the data directory.
func (c Config) SandboxDBPath() (string, error) {
	path := strings.TrimSpace(c.Sandbox.DBPath)
	if path == "" {
		return SandboxDBPath()
	}
	return resolveConfigPath(path)
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if path == ":memory:" || filepath.IsAbs(path) {
		return path, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
