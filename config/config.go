package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration time.Duration
	ServerPort    string

	LogLevel  string
	LogFormat string
	LogFile   string

	CORSOrigins     []string
	SeedDemo        bool
	BcryptCost      int
	MetricsEnabled  bool
	StartDateWindow time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "postgresql://postgres@localhost:5432/issuehub")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("SEED_DEMO", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("START_DATE_WINDOW_DAYS", 30)
}

// Load reads configuration from the environment, optionally layered over the
// YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTExpiration:   v.GetDuration("JWT_EXPIRATION"),
		ServerPort:      v.GetString("SERVER_PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		LogFile:         v.GetString("LOG_FILE"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		SeedDemo:        v.GetBool("SEED_DEMO"),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		MetricsEnabled:  v.GetBool("METRICS_ENABLED"),
		StartDateWindow: time.Duration(v.GetInt("START_DATE_WINDOW_DAYS")) * 24 * time.Hour,
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.JWTExpiration <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION must be positive, got %s", cfg.JWTExpiration)
	}
	if cfg.StartDateWindow <= 0 {
		return nil, errors.New("START_DATE_WINDOW_DAYS must be positive")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
