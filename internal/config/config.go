package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sarvam   SarvamConfig   `mapstructure:"sarvam"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Classify ClassifyConfig `mapstructure:"classify"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Actions  ActionsConfig  `mapstructure:"actions"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite (default) or postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

// StorageConfig configures the optional S3-compatible object storage used by
// the archive action. Archiving stays local-only when Enabled is false.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// SarvamConfig holds the remote API surface shared by extraction and
// classification.
type SarvamConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	ParseURL    string        `mapstructure:"parse_url"` // base URL of the parse-job API
	ChatURL     string        `mapstructure:"chat_url"`  // chat-completions endpoint
	Model       string        `mapstructure:"model"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type ExtractConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

type ClassifyConfig struct {
	MaxTextChars int `mapstructure:"max_text_chars"`
}

type PipelineConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ActionsConfig struct {
	DryRun     bool   `mapstructure:"dry_run"`
	TrashDir   string `mapstructure:"trash_dir"`
	ArchiveDir string `mapstructure:"archive_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from an optional yaml file, a .env file if
// present, and the environment, in increasing precedence.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/retention.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "retention-archive")
	v.SetDefault("sarvam.parse_url", "https://api.sarvam.ai/parse")
	v.SetDefault("sarvam.chat_url", "https://api.sarvam.ai/v1/chat/completions")
	v.SetDefault("sarvam.model", "sarvam-m")
	v.SetDefault("sarvam.http_timeout", 60*time.Second)
	v.SetDefault("sarvam.max_retries", 3)
	v.SetDefault("extract.poll_interval", 2*time.Second)
	v.SetDefault("extract.poll_timeout", 10*time.Minute)
	v.SetDefault("classify.max_text_chars", 2000)
	v.SetDefault("pipeline.concurrency", 5)
	v.SetDefault("actions.dry_run", true)
	v.SetDefault("actions.trash_dir", ".trash")
	v.SetDefault("actions.archive_dir", ".archive")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("sarvam.api_key", "SARVAM_API_KEY")
	v.BindEnv("sarvam.parse_url", "SARVAM_PARSE_URL")
	v.BindEnv("sarvam.chat_url", "SARVAM_CHAT_URL")
	v.BindEnv("sarvam.model", "SARVAM_MODEL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("database.password", "DATABASE_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate returns configuration errors that would prevent remote calls.
// An empty slice means the configuration is usable.
func (c *Config) Validate() []string {
	var errs []string
	if c.Sarvam.APIKey == "" {
		errs = append(errs, "SARVAM_API_KEY is not set")
	}
	if !strings.HasPrefix(c.Sarvam.ParseURL, "http") {
		errs = append(errs, "sarvam.parse_url is not a valid URL")
	}
	if !strings.HasPrefix(c.Sarvam.ChatURL, "http") {
		errs = append(errs, "sarvam.chat_url is not a valid URL")
	}
	return errs
}
