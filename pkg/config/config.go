package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built from defaults, then the optional YAML file named by
// DESK_CONFIG, then environment variables.
type Config struct {
	SalesAPI SalesAPIConfig `yaml:"sales_api"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

type SalesAPIConfig struct {
	Backend   string        `yaml:"backend"`
	BasePath  string        `yaml:"base_path"`
	Timeout   time.Duration `yaml:"timeout"`
	CSRFPath  string        `yaml:"csrf_path"`
	ProbePath string        `yaml:"probe_path"`
	LoginPath string        `yaml:"login_path"`
}

type DatabaseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Name         string `yaml:"name"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	MaxPoolConns int    `yaml:"max_pool_conns"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Profile    string        `yaml:"profile"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BaseURL joins the backend origin and the sales API prefix.
func (sc *SalesAPIConfig) BaseURL() string {
	base := strings.Trim(sc.BasePath, "/")
	if base == "" {
		return strings.TrimRight(sc.Backend, "/")
	}
	return strings.TrimRight(sc.Backend, "/") + "/" + base
}

func (dc *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s pool_max_conns=%d",
		dc.Host,
		dc.Port,
		dc.Name,
		dc.User,
		dc.Password,
		dc.MaxPoolConns,
	)
}

func (rc *RedisConfig) Enabled() bool {
	return rc.Addr != ""
}

func (lc *LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func Default() *Config {
	return &Config{
		SalesAPI: SalesAPIConfig{
			Backend:   "http://localhost:8000",
			BasePath:  "/api/sales/",
			Timeout:   15 * time.Second,
			CSRFPath:  "csrf/",
			ProbePath: "bookings/?limit=1",
			LoginPath: "login/",
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         "5432",
			Name:         "excursiondesk",
			User:         "postgres",
			MaxPoolConns: 4,
		},
		Redis: RedisConfig{
			Profile:    "default",
			SessionTTL: 12 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func NewConfig() (*Config, error) {
	return Load(os.Getenv("DESK_CONFIG"))
}

// Load reads the YAML file at path, if any, and applies environment
// overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.applySalesAPIEnv(); err != nil {
		return nil, fmt.Errorf("sales api config error: %w", err)
	}
	if err := cfg.applyDatabaseEnv(); err != nil {
		return nil, fmt.Errorf("database config error: %w", err)
	}
	if err := cfg.applyRedisEnv(); err != nil {
		return nil, fmt.Errorf("redis config error: %w", err)
	}
	cfg.Log.Level = getEnvOrDefault("DESK_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("DESK_LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applySalesAPIEnv() error {
	timeout, err := getDurationFromEnv("DESK_TIMEOUT", c.SalesAPI.Timeout.String())
	if err != nil {
		return fmt.Errorf("timeout parse error: %w", err)
	}

	c.SalesAPI.Backend = getEnvOrDefault("DESK_BACKEND", c.SalesAPI.Backend)
	c.SalesAPI.BasePath = getEnvOrDefault("DESK_SALES_BASE", c.SalesAPI.BasePath)
	c.SalesAPI.Timeout = timeout
	c.SalesAPI.CSRFPath = getEnvOrDefault("DESK_CSRF_PATH", c.SalesAPI.CSRFPath)
	c.SalesAPI.ProbePath = getEnvOrDefault("DESK_PROBE_PATH", c.SalesAPI.ProbePath)
	c.SalesAPI.LoginPath = getEnvOrDefault("DESK_LOGIN_PATH", c.SalesAPI.LoginPath)
	return nil
}

func (c *Config) applyDatabaseEnv() error {
	maxConns, err := strconv.Atoi(getEnvOrDefault("MAX_CONNS", strconv.Itoa(c.Database.MaxPoolConns)))
	if err != nil {
		return fmt.Errorf("max connections parse error: %w", err)
	}
	enabled, err := strconv.ParseBool(getEnvOrDefault("DESK_SNAPSHOTS", strconv.FormatBool(c.Database.Enabled)))
	if err != nil {
		return fmt.Errorf("snapshots flag parse error: %w", err)
	}

	c.Database.Enabled = enabled
	c.Database.Host = getEnvOrDefault("POSTGRES_HOST", c.Database.Host)
	c.Database.Port = getEnvOrDefault("POSTGRES_PORT", c.Database.Port)
	c.Database.Name = getEnvOrDefault("POSTGRES_DB", c.Database.Name)
	c.Database.User = getEnvOrDefault("POSTGRES_USER", c.Database.User)
	c.Database.Password = getEnvOrDefault("POSTGRES_PASSWORD", c.Database.Password)
	c.Database.MaxPoolConns = maxConns
	return nil
}

func (c *Config) applyRedisEnv() error {
	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", strconv.Itoa(c.Redis.DB)))
	if err != nil {
		return fmt.Errorf("redis db parse error: %w", err)
	}
	ttl, err := getDurationFromEnv("DESK_SESSION_TTL", c.Redis.SessionTTL.String())
	if err != nil {
		return fmt.Errorf("session ttl parse error: %w", err)
	}

	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = db
	c.Redis.Profile = getEnvOrDefault("DESK_PROFILE", c.Redis.Profile)
	c.Redis.SessionTTL = ttl
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationFromEnv(key, defaultValue string) (time.Duration, error) {
	return time.ParseDuration(getEnvOrDefault(key, defaultValue))
}
