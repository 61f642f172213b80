package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "wbot"
)

// ConfigDir returns the standard config directory for wbot.
// Windows: %APPDATA%\wbot\
// macOS/Linux: ~/.config/wbot/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/wbot/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	// Language of every user-facing reply ("es", "en")
	Language string `yaml:"language,omitempty" env:"WBOT_LANGUAGE"`

	// ScratchDir holds one workspace per in-flight request
	ScratchDir string `yaml:"scratch_dir,omitempty" env:"WBOT_SCRATCH_DIR"`

	// BirthdaysFile is the JSON list written by `.bd`
	BirthdaysFile string `yaml:"birthdays_file,omitempty" env:"WBOT_BIRTHDAYS_FILE"`

	Log       LogConfig       `yaml:"log,omitempty"`
	Providers ProvidersConfig `yaml:"providers,omitempty"`
	Retry     RetryConfig     `yaml:"retry,omitempty"`
	Pipeline  PipelineConfig  `yaml:"pipeline,omitempty"`
	Telegram  TelegramConfig  `yaml:"telegram,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
}

// LogConfig selects zerolog output
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `yaml:"level,omitempty" env:"WBOT_LOG_LEVEL"`

	// Format is "console" or "json"
	Format string `yaml:"format,omitempty" env:"WBOT_LOG_FORMAT"`
}

// APIConfig describes one third-party media gateway
type APIConfig struct {
	BaseURL string `yaml:"base_url,omitempty" env:"API_URL"`
	APIKey  string `yaml:"api_key,omitempty" env:"API_KEY"`
}

// ProvidersConfig holds every upstream the pipeline may call
type ProvidersConfig struct {
	Primary     APIConfig `yaml:"primary,omitempty"`
	Secondary   APIConfig `yaml:"secondary,omitempty" envPrefix:"FALLBACK_"`
	Alternative APIConfig `yaml:"alternative,omitempty" envPrefix:"ALTERNATIVE_"`

	// Timeout bounds a single provider call
	Timeout time.Duration `yaml:"timeout,omitempty" env:"WBOT_PROVIDER_TIMEOUT"`

	// ToolPath is the yt-dlp compatible extraction tool
	ToolPath string `yaml:"tool_path,omitempty" env:"WBOT_TOOL_PATH"`

	// DownloadTimeout bounds one direct file transfer
	DownloadTimeout time.Duration `yaml:"download_timeout,omitempty" env:"WBOT_DOWNLOAD_TIMEOUT"`

	// ToolTimeout bounds one run of the extraction tool
	ToolTimeout time.Duration `yaml:"tool_timeout,omitempty" env:"WBOT_TOOL_TIMEOUT"`

	// UserAgent is sent on every outbound HTTP request
	UserAgent string `yaml:"user_agent,omitempty"`
}

// RetryConfig is the per-provider retry plan
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts,omitempty" env:"WBOT_RETRY_MAX_ATTEMPTS"`
	Delay         time.Duration `yaml:"delay,omitempty" env:"WBOT_RETRY_DELAY"`
	Exponential   bool          `yaml:"exponential,omitempty" env:"WBOT_RETRY_EXPONENTIAL"`
	MaxDelay      time.Duration `yaml:"max_delay,omitempty"`
	RetryNotFound *bool         `yaml:"retry_not_found,omitempty"`
}

// PipelineConfig tunes acquisition, delivery and the confirmation dialogue
type PipelineConfig struct {
	// InlineLimitMB is the size at which videos are sent as documents
	InlineLimitMB float64 `yaml:"inline_limit_mb,omitempty" env:"WBOT_INLINE_LIMIT_MB"`

	// ForceReencode transcodes even when the container already matches
	ForceReencode bool `yaml:"force_reencode,omitempty" env:"WBOT_FORCE_REENCODE"`

	// ConfirmTTL is how long a confirmation prompt stays answerable
	ConfirmTTL time.Duration `yaml:"confirm_ttl,omitempty" env:"WBOT_CONFIRM_TTL"`

	// StatusInterval is the animation tick of progress messages
	StatusInterval time.Duration `yaml:"status_interval,omitempty"`

	// MaxConcurrent is the number of pipelines running at once
	MaxConcurrent int `yaml:"max_concurrent,omitempty" env:"WBOT_MAX_CONCURRENT"`
}

// TelegramConfig holds the bot login for the messaging channel
type TelegramConfig struct {
	AppID       int    `yaml:"app_id,omitempty" env:"TELEGRAM_APP_ID"`
	AppHash     string `yaml:"app_hash,omitempty" env:"TELEGRAM_APP_HASH"`
	BotToken    string `yaml:"bot_token,omitempty" env:"TELEGRAM_BOT_TOKEN"`
	SessionFile string `yaml:"session_file,omitempty" env:"TELEGRAM_SESSION_FILE"`
}

// ServerConfig holds HTTP server settings for `wbot run`
type ServerConfig struct {
	// Port is the HTTP listen port (default: 3000)
	Port int `yaml:"port,omitempty" env:"PORT"`

	// Disabled skips the liveness server entirely
	Disabled bool `yaml:"disabled,omitempty" env:"WBOT_SERVER_DISABLED"`

	// APIKey protects the /api/jobs routes when set (X-API-Key header)
	APIKey string `yaml:"api_key,omitempty" env:"WBOT_SERVER_API_KEY"`
}

// InlineLimitBytes converts the configured threshold to bytes.
func (p PipelineConfig) InlineLimitBytes() int64 {
	return int64(p.InlineLimitMB * 1024 * 1024)
}

// ShouldRetryNotFound defaults to true when unset.
func (r RetryConfig) ShouldRetryNotFound() bool {
	if r.RetryNotFound == nil {
		return true
	}
	return *r.RetryNotFound
}

// DefaultScratchDir returns the default scratch root
func DefaultScratchDir() string {
	return filepath.Join(os.TempDir(), AppDirName)
}

// DefaultBirthdaysFile returns ~/.config/wbot/birthdays.json
func DefaultBirthdaysFile() string {
	dir, err := ConfigDir()
	if err != nil {
		return "birthdays.json"
	}
	return filepath.Join(dir, "birthdays.json")
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Language:      "es",
		ScratchDir:    DefaultScratchDir(),
		BirthdaysFile: DefaultBirthdaysFile(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Providers: ProvidersConfig{
			Timeout:         30 * time.Second,
			DownloadTimeout: 10 * time.Minute,
			ToolPath:        "yt-dlp",
			ToolTimeout:     5 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       time.Second,
			MaxDelay:    10 * time.Second,
		},
		Pipeline: PipelineConfig{
			InlineLimitMB:  15,
			ConfirmTTL:     30 * time.Second,
			StatusInterval: 800 * time.Millisecond,
			MaxConcurrent:  4,
		},
		Telegram: TelegramConfig{
			SessionFile: filepath.Join(filepath.Dir(DefaultBirthdaysFile()), "session.json"),
		},
		Server: ServerConfig{
			Port: 3000,
		},
	}
}

// applyDefaults fills every zero field a partial config file left out
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.ScratchDir == "" {
		c.ScratchDir = d.ScratchDir
	}
	if c.BirthdaysFile == "" {
		c.BirthdaysFile = d.BirthdaysFile
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Providers.Timeout <= 0 {
		c.Providers.Timeout = d.Providers.Timeout
	}
	if c.Providers.DownloadTimeout <= 0 {
		c.Providers.DownloadTimeout = d.Providers.DownloadTimeout
	}
	if c.Providers.ToolPath == "" {
		c.Providers.ToolPath = d.Providers.ToolPath
	}
	if c.Providers.ToolTimeout <= 0 {
		c.Providers.ToolTimeout = d.Providers.ToolTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.Delay <= 0 {
		c.Retry.Delay = d.Retry.Delay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if c.Pipeline.InlineLimitMB <= 0 {
		c.Pipeline.InlineLimitMB = d.Pipeline.InlineLimitMB
	}
	if c.Pipeline.ConfirmTTL <= 0 {
		c.Pipeline.ConfirmTTL = d.Pipeline.ConfirmTTL
	}
	if c.Pipeline.StatusInterval <= 0 {
		c.Pipeline.StatusInterval = d.Pipeline.StatusInterval
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		c.Pipeline.MaxConcurrent = d.Pipeline.MaxConcurrent
	}
	if c.Telegram.SessionFile == "" {
		c.Telegram.SessionFile = d.Telegram.SessionFile
	}
	if c.Server.Port <= 0 {
		c.Server.Port = d.Server.Port
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/wbot/config.yml
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a config from an explicit path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.expandPaths()

	return cfg, nil
}

func (c *Config) expandPaths() {
	c.ScratchDir = expandPath(c.ScratchDir)
	c.BirthdaysFile = expandPath(c.BirthdaysFile)
	c.Telegram.SessionFile = expandPath(c.Telegram.SessionFile)
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// Both separators are accepted so a config written on Windows still loads elsewhere.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/wbot/config.yml
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveFile(cfg, configPath)
}

// SaveFile writes the config to path, creating its directory
func SaveFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# wbot configuration file\n# Run 'wbot init' to regenerate with defaults\n# Environment variables (and .env) override these values\n\n"
	content := header + string(data)

	return os.WriteFile(path, []byte(content), 0644)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return ConfigFileName
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads config if it exists, otherwise returns defaults
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
	}
	return cfg
}
