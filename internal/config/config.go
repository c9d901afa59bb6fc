// Package config handles loading and validating gateway configuration from an
// optional YAML file, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joao-brasil/collectflow/pkg/datasource"
)

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AuthConfig holds the accepted API keys.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig holds the per-client request limits.
type RateLimitConfig struct {
	ReadLimit  int           `yaml:"read_limit"`
	WriteLimit int           `yaml:"write_limit"`
	Window     time.Duration `yaml:"window"`
}

// RedisConfig holds the rate limiter store. An empty address keeps the
// limiter on local counters.
type RedisConfig struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// LoggingConfig holds the log sink configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Stdout bool   `yaml:"stdout"`
	Path   string `yaml:"path"`
}

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Database  datasource.DataSource `yaml:"database"`
	Auth      AuthConfig            `yaml:"auth"`
	RateLimit RateLimitConfig       `yaml:"rate_limit"`
	Redis     RedisConfig           `yaml:"redis"`
	Logging   LoggingConfig         `yaml:"logging"`
}

// Load reads the .env file of the working directory if present, then path if
// not empty, then applies environment overrides. A missing database DSN is
// not an error here; the pool reports it on first use.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{
		Logging: LoggingConfig{Stdout: true},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with the recognized environment variables.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("SQLSERVER_DSN"); ok {
		c.Database.DSN = v
	}
	if v, ok := os.LookupEnv("DB_DRIVER"); ok {
		c.Database.Driver = v
	}
	if v, ok := os.LookupEnv("DB_POOL_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DB_POOL_SIZE: %w", err)
		}
		c.Database.MaxConnections = n
	}
	if v, ok := os.LookupEnv("DB_ACQUIRE_TIMEOUT"); ok {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("DB_ACQUIRE_TIMEOUT: %w", err)
		}
		c.Database.AcquireTimeout = d
	}
	if v, ok := os.LookupEnv("API_KEYS"); ok {
		c.Auth.APIKeys = splitList(v)
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("LOG_TO_STDOUT"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("LOG_TO_STDOUT: %w", err)
		}
		c.Logging.Stdout = b
	}
	if v, ok := os.LookupEnv("LOG_PATH"); ok {
		c.Logging.Path = v
	}
	if v, ok := os.LookupEnv("ENVIRONMENT"); ok {
		c.Server.Environment = v
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	return nil
}

// validate checks value ranges. It runs after applyDefaults.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port out of range: %d", c.Server.MetricsPort)
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1, got %d", c.Database.MaxConnections)
	}
	if c.Database.AcquireTimeout < 0 {
		return fmt.Errorf("database.acquire_timeout must not be negative")
	}
	if c.RateLimit.ReadLimit < 1 || c.RateLimit.WriteLimit < 1 {
		return fmt.Errorf("rate_limit limits must be at least 1")
	}
	switch c.Logging.Level {
	case "DEBUG", "INFO", "WARNING", "WARN", "ERROR", "CRITICAL":
	default:
		return fmt.Errorf("logging.level %q is not one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.Logging.Level)
	}
	return nil
}

// applyDefaults fills in reasonable defaults for unset optional fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000"}
	}

	if c.Database.Name == "" {
		c.Database.Name = "default"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = datasource.DefaultDriver
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = datasource.DefaultMaxConnections
	}
	if c.Database.ConnectionTimeout == 0 {
		c.Database.ConnectionTimeout = 30 * time.Second
	}

	if c.RateLimit.ReadLimit == 0 {
		c.RateLimit.ReadLimit = 100
	}
	if c.RateLimit.WriteLimit == 0 {
		c.RateLimit.WriteLimit = 10
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}

	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 2 * time.Second
	}
	if c.Redis.ProbeInterval == 0 {
		c.Redis.ProbeInterval = 10 * time.Second
	}

	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Path == "" {
		c.Logging.Path = "logs/app.log"
	}
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// parseDuration accepts Go durations ("5s") and bare seconds ("5").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
