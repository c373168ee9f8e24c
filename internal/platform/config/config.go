package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	strs "signup/pkg/platform/strings"
)

// EnvPrefix namespaces environment variables: SIGNUP_MIRROR_ENDPOINT maps to
// mirror.endpoint.
const EnvPrefix = "SIGNUP"

// Config is the full service configuration.
type Config struct {
	Addr           string         `mapstructure:"addr"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	Log            LogConfig      `mapstructure:"log"`
	Database       DatabaseConfig `mapstructure:"database"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Session        SessionConfig  `mapstructure:"session"`
	Mirror         MirrorConfig   `mapstructure:"mirror"`
	Phone          PhoneConfig    `mapstructure:"phone"`
	CORS           CORSConfig     `mapstructure:"cors"`
	Admin          AdminConfig    `mapstructure:"admin"`
	Tracing        TracingConfig  `mapstructure:"tracing"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the authoritative store. An empty URL keeps
// registrations in memory.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig configures the session store. An empty URL keeps sessions in
// process memory.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MirrorConfig configures the best-effort analytics copy. With neither an
// endpoint nor Kafka brokers the mirror is disabled.
type MirrorConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	Source           string        `mapstructure:"source"`
	QueueSize        int           `mapstructure:"queue_size"`
	Timeout          time.Duration `mapstructure:"timeout"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	Kafka            KafkaConfig   `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether any mirror sink is configured.
func (m MirrorConfig) Enabled() bool {
	return m.Endpoint != "" || len(m.Kafka.Brokers) > 0
}

type PhoneConfig struct {
	CountryCode string `mapstructure:"country_code"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// AdminConfig guards the read-back endpoints. An empty token disables them.
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	source, err := os.Hostname()
	if err != nil || source == "" {
		source = "signup"
	}
	return Config{
		Addr:           ":8080",
		RequestTimeout: 15 * time.Second,
		Log:            LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Session: SessionConfig{TTL: 2 * time.Hour},
		Mirror: MirrorConfig{
			Source:           source,
			QueueSize:        1024,
			Timeout:          5 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  time.Minute,
			Kafka:            KafkaConfig{Topic: "registrations"},
		},
		Phone: PhoneConfig{CountryCode: "98"},
		CORS:  CORSConfig{Origins: []string{"http://localhost:5173"}},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("addr", d.Addr)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("redis.url", d.Redis.URL)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("mirror.endpoint", d.Mirror.Endpoint)
	v.SetDefault("mirror.source", d.Mirror.Source)
	v.SetDefault("mirror.queue_size", d.Mirror.QueueSize)
	v.SetDefault("mirror.timeout", d.Mirror.Timeout)
	v.SetDefault("mirror.breaker_threshold", d.Mirror.BreakerThreshold)
	v.SetDefault("mirror.breaker_cooldown", d.Mirror.BreakerCooldown)
	v.SetDefault("mirror.kafka.brokers", d.Mirror.Kafka.Brokers)
	v.SetDefault("mirror.kafka.topic", d.Mirror.Kafka.Topic)
	v.SetDefault("phone.country_code", d.Phone.CountryCode)
	v.SetDefault("cors.origins", d.CORS.Origins)
	v.SetDefault("admin.token", d.Admin.Token)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
}

// Load reads .env (if present), the optional config file and SIGNUP_*
// environment variables, in increasing precedence.
func Load(v *viper.Viper, configFile string) (Config, error) {
	_ = godotenv.Load()

	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORS.Origins = strs.SplitList(cfg.CORS.Origins)
	cfg.Mirror.Kafka.Brokers = strs.SplitList(cfg.Mirror.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Mirror.Endpoint != "" {
		u, err := url.Parse(c.Mirror.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("mirror.endpoint must be an http(s) URL, got %q", c.Mirror.Endpoint)
		}
	}
	if c.Mirror.Endpoint != "" && len(c.Mirror.Kafka.Brokers) > 0 {
		return errors.New("configure either mirror.endpoint or mirror.kafka.brokers, not both")
	}
	if len(c.Mirror.Kafka.Brokers) > 0 && c.Mirror.Kafka.Topic == "" {
		return errors.New("mirror.kafka.topic is required with mirror.kafka.brokers")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	return nil
}
