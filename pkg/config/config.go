package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database   DatabaseConfig
	LocalStore LocalStoreConfig
	Redis      RedisConfig
	Sync       SyncConfig
	Offline    OfflineConfig
	CORS       CORSConfig
	Log        LogConfig
}

// DatabaseConfig points at the authoritative remote PostgreSQL store.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// LocalStoreConfig locates the on-device SQLite cache.
type LocalStoreConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	ReadTTL  time.Duration
}

// SyncConfig tunes the reconciliation engine.
type SyncConfig struct {
	Interval       time.Duration
	RemoteTimeout  time.Duration
	RetryThreshold int
	ProbeInterval  time.Duration
	DownloadOnBoot bool
}

// OfflineConfig seeds the data service behaviour flags.
type OfflineConfig struct {
	UseOffline bool
	AutoSync   bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.LocalStore = LocalStoreConfig{
		Path: v.GetString("LOCAL_STORE_PATH"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		ReadTTL:  parseDuration(v.GetString("REDIS_READ_TTL"), time.Minute),
	}

	cfg.Sync = SyncConfig{
		Interval:       parseDuration(v.GetString("SYNC_INTERVAL"), 30*time.Second),
		RemoteTimeout:  parseDuration(v.GetString("SYNC_REMOTE_TIMEOUT"), 10*time.Second),
		RetryThreshold: v.GetInt("SYNC_RETRY_THRESHOLD"),
		ProbeInterval:  parseDuration(v.GetString("SYNC_PROBE_INTERVAL"), 5*time.Second),
		DownloadOnBoot: v.GetBool("SYNC_DOWNLOAD_ON_BOOT"),
	}

	cfg.Offline = OfflineConfig{
		UseOffline: v.GetBool("OFFLINE_FIRST"),
		AutoSync:   v.GetBool("AUTO_SYNC"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("LOCAL_STORE_PATH", ".schoolsync/local.db")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_READ_TTL", "1m")

	v.SetDefault("SYNC_INTERVAL", "30s")
	v.SetDefault("SYNC_REMOTE_TIMEOUT", "10s")
	v.SetDefault("SYNC_RETRY_THRESHOLD", 5)
	v.SetDefault("SYNC_PROBE_INTERVAL", "5s")
	v.SetDefault("SYNC_DOWNLOAD_ON_BOOT", true)

	v.SetDefault("OFFLINE_FIRST", false)
	v.SetDefault("AUTO_SYNC", true)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
