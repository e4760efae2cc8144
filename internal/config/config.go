package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/MimeLyc/chapter-translator/pkg/icron"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

// Config holds all application configuration.
// Values come from an optional config file and environment variables,
// environment taking precedence.
//
// Environment Variables:
// Storage:
// - DATA_DIR: Directory for the database and settings (default: /app/data)
// - NOVEL_STORAGE: Root of downloaded chapter content (default: $DATA_DIR/novels)
// - SETTINGS_FILE: Translation settings file (default: $DATA_DIR/settings.json)
//
// On-device models:
// - MODELS_DIR: Installed model files (default: $DATA_DIR/models)
// - MODEL_REPOSITORY_URL: Where model files are downloaded from (optional)
// - LOCAL_ENGINE_URL: Local translation engine (default: http://127.0.0.1:5000)
//
// Online fallback:
// - ONLINE_API_URL: Translation endpoint (default: Google Translate v2)
// - ONLINE_API_KEY: API key sent with each request (optional)
// - ONLINE_TIMEOUT: Request timeout in seconds (default: 30)
//
// Translate:
// - DEFAULT_TARGET_LANG: Target language when none was chosen (default: es)
// - RETRY_CRON: Schedule for retrying chapters waiting on content (default: */5 * * * *)
// - JOB_WORKERS: Parallel chapter jobs (default: 1)
//
// System:
// - HTTP_ADDR: API listen address (default: :8080)
// - LOG_LEVEL: debug, info, warn, error (default: info)
type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Models    ModelsConfig    `json:"models"`
	Online    OnlineConfig    `json:"online"`
	Translate TranslateConfig `json:"translate"`
	HTTP      HTTPConfig      `json:"http"`
	System    SystemConfig    `json:"system"`
}

type StorageConfig struct {
	DataDir      string `json:"data_dir"`
	NovelStorage string `json:"novel_storage"`
	SettingsFile string `json:"settings_file"`
}

type ModelsConfig struct {
	Dir           string `json:"dir"`
	RepositoryURL string `json:"repository_url"`
	EngineURL     string `json:"engine_url"`
}

// OnlineConfig configures the networked fallback provider.
type OnlineConfig struct {
	APIURL  string `json:"api_url"`
	APIKey  string `json:"-"`
	Timeout int    `json:"timeout"`
}

func (c OnlineConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type TranslateConfig struct {
	DefaultTargetLanguage language.Tag `json:"default_target_language"`
	RetryCron             string       `json:"retry_cron"`
	Workers               int          `json:"workers"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type SystemConfig struct {
	LogLevel string `json:"log_level"`
}

// DBPath is the SQLite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "chapters.db")
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithDataDir(dir string) Option {
	return func(c *Config) {
		if strings.TrimSpace(dir) != "" {
			c.Storage.DataDir = dir
		}
	}
}

func WithHTTPAddr(addr string) Option {
	return func(c *Config) {
		if strings.TrimSpace(addr) != "" {
			c.HTTP.Addr = addr
		}
	}
}

// NewFromEnv builds a Config from environment variables only.
func NewFromEnv(opts ...Option) (*Config, error) {
	return Load("", opts...)
}

// Load builds a Config from configFile (if set) overlaid with environment variables.
func Load(configFile string, opts ...Option) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file %s: %w", configFile, err)
			}
		}
	}

	config := &Config{
		Storage: StorageConfig{
			DataDir:      v.GetString("data_dir"),
			NovelStorage: getString(v, "novel_storage", ""),
			SettingsFile: getString(v, "settings_file", ""),
		},
		Models: ModelsConfig{
			Dir:           getString(v, "models_dir", ""),
			RepositoryURL: v.GetString("model_repository_url"),
			EngineURL:     v.GetString("local_engine_url"),
		},
		Online: OnlineConfig{
			APIURL:  v.GetString("online_api_url"),
			APIKey:  v.GetString("online_api_key"),
			Timeout: v.GetInt("online_timeout"),
		},
		Translate: TranslateConfig{
			DefaultTargetLanguage: parseTag(v.GetString("default_target_lang"), language.Spanish),
			RetryCron:             v.GetString("retry_cron"),
			Workers:               v.GetInt("job_workers"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http_addr"),
		},
		System: SystemConfig{
			LogLevel: v.GetString("log_level"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}
	config.deriveDataPaths()

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config loaded: data_dir=%s novels=%s models=%s online=%s",
		config.Storage.DataDir, config.Storage.NovelStorage, config.Models.Dir, config.Online.APIURL)
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "/app/data")
	v.SetDefault("local_engine_url", "http://127.0.0.1:5000")
	v.SetDefault("online_api_url", "https://translation.googleapis.com/language/translate/v2")
	v.SetDefault("online_timeout", 30)
	v.SetDefault("default_target_lang", DefaultTargetLang)
	v.SetDefault("retry_cron", "*/5 * * * *")
	v.SetDefault("job_workers", 1)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
}

// getString returns the value for key, or def when it is unset or blank.
func getString(v *viper.Viper, key, def string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	return def
}

// deriveDataPaths places unset storage locations under the data dir.
func (c *Config) deriveDataPaths() {
	if c.Storage.NovelStorage == "" {
		c.Storage.NovelStorage = filepath.Join(c.Storage.DataDir, "novels")
	}
	if c.Storage.SettingsFile == "" {
		c.Storage.SettingsFile = filepath.Join(c.Storage.DataDir, "settings.json")
	}
	if c.Models.Dir == "" {
		c.Models.Dir = filepath.Join(c.Storage.DataDir, "models")
	}
}

func parseTag(value string, def language.Tag) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return tag
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if strings.TrimSpace(c.Online.APIURL) == "" {
		return fmt.Errorf("ONLINE_API_URL is required")
	}
	if c.Online.Timeout < 1 {
		return fmt.Errorf("ONLINE_TIMEOUT must be greater than 0")
	}
	if c.Translate.Workers < 1 {
		return fmt.Errorf("JOB_WORKERS must be greater than 0")
	}
	if _, err := icron.Parse(c.Translate.RetryCron); err != nil {
		return fmt.Errorf("invalid RETRY_CRON: %w", err)
	}
	return nil
}
