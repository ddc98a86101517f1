package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App   AppConfig
	Auth  AuthConfig
	Log   LogConfig
	Redis RedisConfig
}

type AppConfig struct {
	Name string
	Host string
	Port string

	// Backend API the gateway proxies socket events to.
	BackendURL    string
	BackendSecret string
	SocketPassKey string

	// How long already-open sockets keep working after a shutdown signal.
	DrainGrace time.Duration
}

// AuthConfig holds the static application credentials every mobile client
// must present at connection time.
type AuthConfig struct {
	Key    string
	Secret string
}

type LogConfig struct {
	Level string
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_NAME", "socket-gateway")
	viper.SetDefault("APP_HOST", "")
	viper.SetDefault("APP_PORT", "9090")
	viper.SetDefault("BACKEND_URL", "http://backend-dev")
	viper.SetDefault("APP_SECRET", "")
	viper.SetDefault("APP_SOCKET_PASS_KEY", "")
	viper.SetDefault("APP_ACCESS_KEY", "")
	viper.SetDefault("APP_ACCESS_SECRET", "")
	viper.SetDefault("APP_DRAIN_GRACE", 4*time.Second)
	viper.SetDefault("LOG_LEVEL", "debug")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	viper.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:          viper.GetString("APP_NAME"),
			Host:          viper.GetString("APP_HOST"),
			Port:          viper.GetString("APP_PORT"),
			BackendURL:    viper.GetString("BACKEND_URL"),
			BackendSecret: viper.GetString("APP_SECRET"),
			SocketPassKey: viper.GetString("APP_SOCKET_PASS_KEY"),
			DrainGrace:    viper.GetDuration("APP_DRAIN_GRACE"),
		},
		Auth: AuthConfig{
			Key:    viper.GetString("APP_ACCESS_KEY"),
			Secret: viper.GetString("APP_ACCESS_SECRET"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Redis: RedisConfig{
			Host:        viper.GetString("REDIS_HOST"),
			Port:        viper.GetString("REDIS_PORT"),
			Password:    viper.GetString("REDIS_PASSWORD"),
			DB:          viper.GetInt("REDIS_DB"),
			DialTimeout: viper.GetDuration("REDIS_DIAL_TIMEOUT"),
		},
	}

	if cfg.App.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}

	return cfg, nil
}
