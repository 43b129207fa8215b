package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config top-level struct. Values come from the yaml file; environment
// variables override them.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Log       LogConfig       `yaml:"log"`
	Mail      MailConfig      `yaml:"mail"`
}

type ServerConfig struct {
	Port int `yaml:"port" env:"SERVER_PORT"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn" env:"POSTGRES_DSN"`
	Password string `yaml:"-" env:"POSTGRES_PASSWORD"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps" env:"RATELIMIT_RPS"`
	Burst int `yaml:"burst" env:"RATELIMIT_BURST"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// MailConfig selects the mail transport: "redis" queues jobs, "log" only logs.
type MailConfig struct {
	Transport string `yaml:"transport" env:"MAIL_TRANSPORT"`
}

// Load reads yaml file then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Postgres.Password != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + cfg.Postgres.Password
	}
	cfg.applyDefaults()
	return &cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 50
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 100
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "wallet-events"
	}
	if c.Mail.Transport == "" {
		c.Mail.Transport = "log"
	}
}

func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.Mail.Transport != "log" && c.Mail.Transport != "redis" {
		return fmt.Errorf("mail.transport must be log or redis, got %q", c.Mail.Transport)
	}
	return nil
}
