// Package config loads the trainer-hub configuration from defaults, an
// optional YAML file and TRAINER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override:
// database.url is read from TRAINER_DATABASE_URL.
const EnvPrefix = "TRAINER"

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tracing   TracingConfig   `mapstructure:"tracing"`

	// Location is the loaded Calendar.Timezone.
	Location *time.Location `mapstructure:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Environment     Environment   `mapstructure:"environment"`
	Version         string        `mapstructure:"version"`
	LogLevel        string        `mapstructure:"log_level"`  // debug, info, warn, error
	LogFormat       string        `mapstructure:"log_format"` // json, console
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CalendarConfig fixes the zone every date and week boundary is computed in.
type CalendarConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// DatabaseConfig selects and tunes the store.
type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"` // postgres, sqlite
	URL           string `mapstructure:"url"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MinConns      int32  `mapstructure:"min_conns"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

// RedisConfig holds Redis connection settings. Redis is optional.
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	RankingTTL time.Duration `mapstructure:"ranking_ttl"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

// SchedulerConfig holds the reconciliation schedules.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Lookback     time.Duration `mapstructure:"lookback"`
	WeeklyCron   string        `mapstructure:"weekly_cron"`
	MonthlyCron  string        `mapstructure:"monthly_cron"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

// LedgerConfig holds the domain tunables.
type LedgerConfig struct {
	VoiceMinDuration time.Duration `mapstructure:"voice_min_duration"`
	RankingLimit     int           `mapstructure:"ranking_limit"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AdminKeyHash   string        `mapstructure:"admin_key_hash"` // bcrypt hash of X-Admin-Key
}

// KafkaConfig enables forwarding domain events to a topic.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load reads configuration. An empty path searches for config.yaml in
// ./config and the working directory; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "trainer-hub")
	v.SetDefault("app.environment", string(EnvDevelopment))
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.shutdown_timeout", 30*time.Second)

	v.SetDefault("calendar.timezone", "Asia/Seoul")

	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "trainer.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.run_migrations", true)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ranking_ttl", 30*time.Second)
	v.SetDefault("redis.lock_ttl", 10*time.Minute)

	// Scheduler
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.poll_interval", 30*time.Second)
	v.SetDefault("scheduler.lookback", 40*24*time.Hour)
	v.SetDefault("scheduler.weekly_cron", "0 23 * * 0")
	v.SetDefault("scheduler.monthly_cron", "10 0 1 * *")
	v.SetDefault("scheduler.job_timeout", 30*time.Minute)
	v.SetDefault("scheduler.retry_delay", 5*time.Minute)

	v.SetDefault("ledger.voice_min_duration", 15*time.Minute)
	v.SetDefault("ledger.ranking_limit", 5)

	// HTTP
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.request_timeout", 10*time.Second)
	v.SetDefault("http.admin_key_hash", "")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "trainer.events")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 0.1)
}

// Validate checks the configuration and loads the calendar location.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil || c.Calendar.Timezone == "" {
		errs = append(errs, fmt.Sprintf("calendar.timezone %q is not a valid IANA zone", c.Calendar.Timezone))
	} else {
		c.Location = loc
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, "database.url is required for the postgres driver")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			errs = append(errs, "database.sqlite_path is required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be postgres or sqlite", c.Database.Driver))
	}

	for key, spec := range map[string]string{
		"scheduler.weekly_cron":  c.Scheduler.WeeklyCron,
		"scheduler.monthly_cron": c.Scheduler.MonthlyCron,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Sprintf("%s %q: %v", key, spec, err))
		}
	}
	for key, d := range map[string]time.Duration{
		"scheduler.poll_interval":   c.Scheduler.PollInterval,
		"scheduler.lookback":        c.Scheduler.Lookback,
		"scheduler.job_timeout":     c.Scheduler.JobTimeout,
		"ledger.voice_min_duration": c.Ledger.VoiceMinDuration,
		"redis.ranking_ttl":         c.Redis.RankingTTL,
		"redis.lock_ttl":            c.Redis.LockTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got %s", key, d))
		}
	}
	if c.Ledger.RankingLimit < 1 {
		errs = append(errs, fmt.Sprintf("ledger.ranking_limit must be at least 1, got %d", c.Ledger.RankingLimit))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, "kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.IsProduction() && c.HTTP.AdminKeyHash == "" {
		errs = append(errs, "http.admin_key_hash is required in production")
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
