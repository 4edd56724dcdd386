package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Armtek   ArmtekConfig   `mapstructure:"armtek"`
	Details  DetailsConfig  `mapstructure:"details"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

// BackendConfig points at the Elizabeth backend API and carries the account
// used to obtain access tokens.
type BackendConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"`
}

// ArmtekConfig holds supplier-portal scraping configuration.
type ArmtekConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	Proxies              []string `mapstructure:"proxies"`

	// Page readiness loop: how often the page is re-checked and how long
	// before the scraper gives up without posting anything.
	ReadyCheckIntervalMS int `mapstructure:"ready_check_interval_ms"`
	ReadyTimeoutMS       int `mapstructure:"ready_timeout_ms"`
	SettleDelayMS        int `mapstructure:"settle_delay_ms"`
	CrossTimeoutMS       int `mapstructure:"cross_timeout_ms"`

	// Slot release after a scrape. Failure keeps the slot a little longer so
	// an operator can glance at the logs when debugging interactively.
	SuccessCloseDelayMS int `mapstructure:"success_close_delay_ms"`
	FailureCloseDelayMS int `mapstructure:"failure_close_delay_ms"`
}

func (c ArmtekConfig) ReadyCheckInterval() time.Duration {
	return time.Duration(c.ReadyCheckIntervalMS) * time.Millisecond
}

func (c ArmtekConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutMS) * time.Millisecond
}

func (c ArmtekConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func (c ArmtekConfig) CrossTimeout() time.Duration {
	return time.Duration(c.CrossTimeoutMS) * time.Millisecond
}

func (c ArmtekConfig) SuccessCloseDelay() time.Duration {
	return time.Duration(c.SuccessCloseDelayMS) * time.Millisecond
}

func (c ArmtekConfig) FailureCloseDelay() time.Duration {
	return time.Duration(c.FailureCloseDelayMS) * time.Millisecond
}

// DetailsConfig tunes the correlation/polling workflow.
type DetailsConfig struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms"`
	PollTimeoutMS  int `mapstructure:"poll_timeout_ms"`
	GraceDelayMS   int `mapstructure:"grace_delay_ms"`
	JobsLimit      int `mapstructure:"jobs_limit"`

	// "local" runs scrapes in-process; "queue" hands jobs to a remote agent
	// over Redis streams.
	DispatchMode string `mapstructure:"dispatch_mode"`
}

func (c DetailsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c DetailsConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

func (c DetailsConfig) GraceDelay() time.Duration {
	return time.Duration(c.GraceDelayMS) * time.Millisecond
}

// DatabaseConfig holds the characteristics-archive database connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details for the scrape task queue.
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

// AgentConfig tunes the queue-consuming scraper agent.
type AgentConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("backend.base_url", "http://127.0.0.1:8000/api/v1")
	viper.SetDefault("backend.email", "")
	viper.SetDefault("backend.password", "")
	viper.SetDefault("backend.timeout", 30)

	viper.SetDefault("armtek.base_url", "https://etp.armtek.ru")
	viper.SetDefault("armtek.timeout", 30)
	viper.SetDefault("armtek.max_retries", 3)
	viper.SetDefault("armtek.max_requests_per_second", 2)
	viper.SetDefault("armtek.ready_check_interval_ms", 1000)
	viper.SetDefault("armtek.ready_timeout_ms", 120000)
	viper.SetDefault("armtek.settle_delay_ms", 250)
	viper.SetDefault("armtek.cross_timeout_ms", 8000)
	viper.SetDefault("armtek.success_close_delay_ms", 1000)
	viper.SetDefault("armtek.failure_close_delay_ms", 5000)

	viper.SetDefault("details.poll_interval_ms", 1500)
	viper.SetDefault("details.poll_timeout_ms", 60000)
	viper.SetDefault("details.grace_delay_ms", 5000)
	viper.SetDefault("details.jobs_limit", 50)
	viper.SetDefault("details.dispatch_mode", "local")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "elizabeth")
	viper.SetDefault("database.user", "elizabeth_user")
	viper.SetDefault("database.password", "elizabeth_pass")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.consumer_group", "elizabeth_agent")
	viper.SetDefault("redis.min_idle_time", 120)

	viper.SetDefault("agent.max_workers", 4)
}
