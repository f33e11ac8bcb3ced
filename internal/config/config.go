// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	CatchUp     CatchUpConfig     `mapstructure:"catchup"`
	News        NewsConfig        `mapstructure:"news"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RedisConfig は分散ロック用。Addrが空ならプロセス内ロックを使う
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RatePerSec  float64       `mapstructure:"rate_per_sec"`
	Burst       int           `mapstructure:"burst"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

type CatchUpConfig struct {
	WindowDays int      `mapstructure:"window_days"`
	FetchLimit int      `mapstructure:"fetch_limit"`
	Regions    []string `mapstructure:"regions"`
	Schedule   string   `mapstructure:"schedule"`
}

type NewsConfig struct {
	Schedule  string `mapstructure:"schedule"`
	ListLimit int    `mapstructure:"list_limit"`
}

type ProgressionConfig struct {
	SilverThreshold    int    `mapstructure:"silver_threshold"`
	GoldThreshold      int    `mapstructure:"gold_threshold"`
	PromoteGoldCount   int    `mapstructure:"promote_gold_count"`
	PromoteSilverCount int    `mapstructure:"promote_silver_count"`
	MaxUpdateRetries   int    `mapstructure:"max_update_retries"`
	LeaderboardLimit   int    `mapstructure:"leaderboard_limit"`
	LeagueBoardLimit   int    `mapstructure:"league_board_limit"`
	Timezone           string `mapstructure:"timezone"`
}

type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Location resolves the progression timezone, falling back to UTC.
func (c ProgressionConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("Unknown progression timezone, using UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second) // 生成を待つリクエストがある
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", DefaultLogLevel)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Content-Type", "X-Admin-Key", "X-Request-Id"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 10*time.Second)

	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.timeout", 60*time.Second)
	v.SetDefault("gemini.rate_per_sec", 1.0)
	v.SetDefault("gemini.burst", 2)
	v.SetDefault("gemini.max_retries", 0) // 自動リトライはしない。必要なら明示的に有効化

	v.SetDefault("catchup.window_days", DefaultCatchUpWindowDays)
	v.SetDefault("catchup.fetch_limit", DefaultCatchUpFetchLimit)
	v.SetDefault("catchup.regions", []string{"india"})
	v.SetDefault("catchup.schedule", "@hourly")

	v.SetDefault("news.schedule", "0 6 * * *")
	v.SetDefault("news.list_limit", 50)

	v.SetDefault("progression.silver_threshold", 100)
	v.SetDefault("progression.gold_threshold", 500)
	v.SetDefault("progression.promote_gold_count", 5)
	v.SetDefault("progression.promote_silver_count", 10)
	v.SetDefault("progression.max_update_retries", 5)
	v.SetDefault("progression.leaderboard_limit", 10)
	v.SetDefault("progression.league_board_limit", 20)
	v.SetDefault("progression.timezone", "UTC")

	v.SetDefault("metrics.enabled", true)
}

// LoadConfig reads config.yaml from path (or the working directory), then
// overlays environment variables (APP_ prefix, e.g. APP_SERVER_PORT).
func LoadConfig(path string) (*Config, error) {
	// .env はローカル開発用。無くてもエラーにしない
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// よく使われる名前の環境変数も受け付ける
	_ = v.BindEnv("gemini.api_key", "APP_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("database.url", "APP_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "APP_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("admin.api_key", "APP_ADMIN_API_KEY", "ADMIN_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Warn("Config file not found. Using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	slog.Info("Config loaded successfully",
		"port", cfg.Server.Port,
		"gemini_model", cfg.Gemini.Model,
		"redis_enabled", cfg.Redis.Addr != "",
		"catchup_regions", cfg.CatchUp.Regions,
	)
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		slog.Warn("Database URL is not set in config.")
	}
	p := c.Progression
	if p.SilverThreshold <= 0 || p.GoldThreshold <= p.SilverThreshold {
		return fmt.Errorf("invalid league thresholds: silver=%d gold=%d", p.SilverThreshold, p.GoldThreshold)
	}
	if p.PromoteGoldCount < 0 || p.PromoteSilverCount < 0 {
		return fmt.Errorf("promotion counts must not be negative")
	}
	if c.CatchUp.WindowDays <= 0 || c.CatchUp.FetchLimit <= 0 {
		return fmt.Errorf("catchup window_days and fetch_limit must be positive")
	}
	return nil
}
