package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger    `mapstructure:"logger"`
	DB        Database  `mapstructure:"database"`
	API       API       `mapstructure:"api"`
	Auth      Auth      `mapstructure:"auth"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Executor  Executor  `mapstructure:"executor"`
	Notifier  Notifier  `mapstructure:"notifier"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port              int           `mapstructure:"port"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	RequestBurst      int           `mapstructure:"request_burst"`
	UserCacheTTL      time.Duration `mapstructure:"user_cache_ttl"`
}

type Auth struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

type Scheduler struct {
	PollSpec       string        `mapstructure:"poll_spec"`
	Concurrency    int64         `mapstructure:"concurrency"`
	MaxConcurrency int64         `mapstructure:"max_concurrency"`
	LeaseTTL       time.Duration `mapstructure:"lease_ttl"`
	RetryOffset    int           `mapstructure:"retry_offset_hours"`
}

type Executor struct {
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type Notifier struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   int64  `mapstructure:"telegram_chat_id"`
}

const (
	defaultPollSpec       = "@every 1m"
	defaultConcurrency    = 5
	maxConcurrencyCeiling = 10
	defaultLeaseTTL       = 30 * time.Second
	defaultRetryOffset    = 1
	defaultSendTimeout    = 10 * time.Second
	defaultTokenDuration  = 24 * time.Hour
)

func Load() (*Config, error) {
	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Scheduler.PollSpec == "" {
		c.Scheduler.PollSpec = defaultPollSpec
	}
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = defaultConcurrency
	}
	if c.Scheduler.MaxConcurrency <= 0 || c.Scheduler.MaxConcurrency > maxConcurrencyCeiling {
		c.Scheduler.MaxConcurrency = maxConcurrencyCeiling
	}
	if c.Scheduler.Concurrency > c.Scheduler.MaxConcurrency {
		c.Scheduler.Concurrency = c.Scheduler.MaxConcurrency
	}
	if c.Scheduler.LeaseTTL <= 0 {
		c.Scheduler.LeaseTTL = defaultLeaseTTL
	}
	if c.Scheduler.RetryOffset <= 0 {
		c.Scheduler.RetryOffset = defaultRetryOffset
	}
	if c.Executor.SendTimeout <= 0 {
		c.Executor.SendTimeout = defaultSendTimeout
	}
	// The lease must outlive a full HTTP attempt plus the follow-up DB writes,
	// otherwise a second poller can claim a task that is still legitimately running.
	if c.Scheduler.LeaseTTL <= c.Executor.SendTimeout {
		c.Scheduler.LeaseTTL = c.Executor.SendTimeout + defaultLeaseTTL
	}
	if c.Auth.TokenDuration <= 0 {
		c.Auth.TokenDuration = defaultTokenDuration
	}
	if c.API.Port == 0 {
		c.API.Port = 3000
	}
	if c.API.RequestsPerSecond <= 0 {
		c.API.RequestsPerSecond = 10
	}
	if c.API.RequestBurst <= 0 {
		c.API.RequestBurst = 20
	}
	if c.API.UserCacheTTL <= 0 {
		c.API.UserCacheTTL = 5 * time.Minute
	}
}
