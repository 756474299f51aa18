package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Name string `mapstructure:"name"`
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	CNB CNBConfig `mapstructure:"cnb"`

	Fallback FallbackConfig `mapstructure:"fallback"`

	Postgres PostgresConfig `mapstructure:"postgres"`
}

type CNBConfig struct {
	Host                 string        `mapstructure:"host"`
	Timeout              time.Duration `mapstructure:"timeout"`
	Charset              string        `mapstructure:"charset"`
	DayCount             int           `mapstructure:"day_count"`
	CacheYesterdayBefore string        `mapstructure:"cache_yesterday_before"`
	OfflineCache         bool          `mapstructure:"offline_cache"`
	ValidDaysMax         int           `mapstructure:"valid_days_max"`
	SizeCacheOlder       int           `mapstructure:"size_cache_older"`
	WarmupCurrencies     []string      `mapstructure:"warmup_currencies"`
	WarmupSchedule       string        `mapstructure:"warmup_schedule"`
}

type FallbackConfig struct {
	// Backend is one of file, postgres or redis.
	Backend  string        `mapstructure:"backend"`
	File     string        `mapstructure:"file"`
	RedisURL string        `mapstructure:"redis_url"`
	RedisTTL time.Duration `mapstructure:"redis_ttl"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	DBName   string `mapstructure:"dbname"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

var configPaths = []string{".", "./config", "../config", "../../config"}

func LoadConfig() (*Config, error) {
	return load(configPaths...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cnb-rates")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("cnb.host", "www.cnb.cz")
	v.SetDefault("cnb.timeout", "30s")
	v.SetDefault("cnb.charset", "utf-8")
	v.SetDefault("cnb.day_count", 8)
	v.SetDefault("cnb.cache_yesterday_before", "14:00")
	v.SetDefault("cnb.offline_cache", true)
	v.SetDefault("cnb.valid_days_max", 60)
	v.SetDefault("cnb.size_cache_older", 500)
	v.SetDefault("cnb.warmup_currencies", []string{"USD", "EUR"})
	v.SetDefault("cnb.warmup_schedule", "CRON_TZ=Europe/Prague 35 14 * * 1-5")

	v.SetDefault("fallback.backend", "file")
	v.SetDefault("fallback.file", "")
	v.SetDefault("fallback.redis_url", "redis://localhost:6379/0")
	v.SetDefault("fallback.redis_ttl", "720h")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.dbname", "cnb")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "disable")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
