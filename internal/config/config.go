package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Backend   Backend   `mapstructure:"backend"`
	Auth      Auth      `mapstructure:"auth"`
	Redis     Redis     `mapstructure:"redis"`
	Analytics Analytics `mapstructure:"analytics"`
	OTP       OTP       `mapstructure:"otp"`
	Logger    Logger    `mapstructure:"logger"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database holds the configuration for the database.
type Database struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// Backend holds the configuration for the managed backend REST API.
// When Enabled, trades are read and written through it instead of the local database.
type Backend struct {
	Enabled        bool    `mapstructure:"enabled"`
	URL            string  `mapstructure:"url"`
	APIKey         string  `mapstructure:"api_key"`
	Table          string  `mapstructure:"table"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Auth holds the configuration for verifying session tokens.
type Auth struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Redis holds the configuration for the cache. Without an address an in-memory cache is used.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Analytics holds calendar settings for aggregation.
type Analytics struct {
	Timezone  string `mapstructure:"timezone"`
	WeekStart string `mapstructure:"week_start"` // "sunday" or "monday"
}

// OTP holds the configuration for one-time codes gating destructive actions.
type OTP struct {
	Length int           `mapstructure:"length"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Location resolves the configured timezone, falling back to the process local zone.
func (a Analytics) Location() (*time.Location, error) {
	if a.Timezone == "" || strings.EqualFold(a.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

// FirstWeekday returns the weekday the calendar grid starts on.
func (a Analytics) FirstWeekday() time.Weekday {
	if strings.EqualFold(a.WeekStart, "monday") {
		return time.Monday
	}
	return time.Sunday
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tradertrackr.db")
	v.SetDefault("backend.table", "trades")
	v.SetDefault("backend.rate_limit", 10) // requests per second
	v.SetDefault("backend.rate_limit_burst", 5)
	v.SetDefault("analytics.timezone", "Local")
	v.SetDefault("analytics.week_start", "sunday")
	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	// AutomaticEnv only applies to keys viper already knows about.
	v.SetDefault("backend.enabled", false)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}
