package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. MEDIPASS_SERVER_PORT.
const EnvPrefix = "MEDIPASS"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
	RateLimit       float64       `mapstructure:"rate_limit" split_words:"true"`
	RateBurst       int           `mapstructure:"rate_burst" split_words:"true"`
}

type SchedulingConfig struct {
	DefaultDuration   int    `mapstructure:"default_duration" split_words:"true"`
	AllowPastBookings bool   `mapstructure:"allow_past_bookings" split_words:"true"`
	Location          string `mapstructure:"location"`
}

type StorageConfig struct {
	// Driver is "file" or "postgres".
	Driver           string        `mapstructure:"driver"`
	DataDir          string        `mapstructure:"data_dir" split_words:"true"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN is the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	// URL empty disables event publishing.
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	// AuditFile is where the worker appends the audit trail; empty means stdout.
	AuditFile string `mapstructure:"audit_file" split_words:"true"`
}

// BootstrapConfig creates the first administrator when the directory is empty.
type BootstrapConfig struct {
	AdminLogin  string `mapstructure:"admin_login" split_words:"true"`
	AdminSecret string `mapstructure:"admin_secret" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("scheduling.default_duration", 30)
	v.SetDefault("scheduling.allow_past_bookings", false)
	v.SetDefault("scheduling.location", "Local")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.snapshot_interval", 5*time.Minute)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "medipass")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.channel", "medipass.consultations")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.expiry", 8*time.Hour)
	v.SetDefault("jwt.issuer", "medipass-api")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yml from path (or ".", "./config" when empty), applies
// defaults, then MEDIPASS_* environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "file", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the scheduling time zone used to read date-time inputs.
func (c *Config) Location() (*time.Location, error) {
	name := c.Scheduling.Location
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling location %q: %w", name, err)
	}
	return loc, nil
}
