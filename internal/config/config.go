package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the runtime settings of the blog backend.
type Config struct {
	AppPort     string
	DBDriver    string
	DatabaseDSN string
	RabbitMQURL string
	TokenTTL    time.Duration // Zero means tokens never expire
	BcryptCost  int
	LogLevel    logrus.Level

	SuperuserUsername string
	SuperuserEmail    string
	SuperuserPassword string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "blog.db")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("TOKEN_TTL", "0s")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SUPERUSER_USERNAME", "")
	v.SetDefault("SUPERUSER_EMAIL", "")
	v.SetDefault("SUPERUSER_PASSWORD", "")
}

// Load reads the configuration from v, which is expected to have
// environment variables enabled.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		AppPort:           v.GetString("APP_PORT"),
		DBDriver:          v.GetString("DB_DRIVER"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		BcryptCost:        v.GetInt("BCRYPT_COST"),
		SuperuserUsername: v.GetString("SUPERUSER_USERNAME"),
		SuperuserEmail:    v.GetString("SUPERUSER_EMAIL"),
		SuperuserPassword: v.GetString("SUPERUSER_PASSWORD"),
	}

	level, err := logrus.ParseLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.TokenTTL < 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must not be negative, got %s", cfg.TokenTTL)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return cfg, nil
}

// BootstrapSuperuser reports whether a superuser should be ensured at startup.
func (c Config) BootstrapSuperuser() bool {
	return c.SuperuserUsername != "" && c.SuperuserPassword != ""
}
