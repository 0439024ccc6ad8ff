package config_test

import (
	"testing"
	"time"

	"blog/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.BootstrapSuperuser())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUPERUSER_USERNAME", "admin")
	t.Setenv("SUPERUSER_PASSWORD", "adminpassword123")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.BootstrapSuperuser())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "DB_DRIVER", "oracle"},
		{"negative ttl", "TOKEN_TTL", "-1h"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bcrypt cost too high", "BCRYPT_COST", "99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load(viper.New())
			assert.Error(t, err)
		})
	}
}
