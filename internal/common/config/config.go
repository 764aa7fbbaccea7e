package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string  `toml:"port"`
	Environment  string  `toml:"env"`
	ReadTimeout  int     `toml:"read_timeout"`
	WriteTimeout int     `toml:"write_timeout"`
	DBPath       string  `toml:"db_path"`
	ExportDir    string  `toml:"export_dir"`
	SessionTTL   int     `toml:"session_ttl_minutes"`
	DefaultLat   float64 `toml:"default_lat"`
	DefaultLon   float64 `toml:"default_lon"`
	AutoConnect  bool    `toml:"auto_connect"`
	MapLayer     string  `toml:"map_layer"`

	CORSOrigins  []string `toml:"cors_origins"`
	SessionRate  float64  `toml:"session_rate"`
	SessionBurst int      `toml:"session_burst"`
}

func defaults() *Config {
	return &Config{
		Port:         "3000",
		Environment:  "development",
		ReadTimeout:  10,
		WriteTimeout: 10,
		DBPath:       "data/db/survey.db",
		SessionTTL:   240,
		DefaultLat:   31.6904,
		DefaultLon:   -106.4245,
		AutoConnect:  true,
		MapLayer:     "hybrid",
		CORSOrigins:  []string{"*"},
		SessionRate:  1,
		SessionBurst: 10,
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем TOML-файл
// из SURVEY_CONFIG (если задан), затем переменные окружения.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SURVEY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.DBPath = getEnv("SURVEY_DB_PATH", cfg.DBPath)
	cfg.ExportDir = getEnv("SURVEY_EXPORT_DIR", cfg.ExportDir)
	cfg.SessionTTL = getEnvAsInt("SESSION_TTL_MINUTES", cfg.SessionTTL)
	cfg.DefaultLat = getEnvAsFloat("DEFAULT_LAT", cfg.DefaultLat)
	cfg.DefaultLon = getEnvAsFloat("DEFAULT_LON", cfg.DefaultLon)
	cfg.AutoConnect = getEnvAsBool("AUTO_CONNECT", cfg.AutoConnect)
	cfg.MapLayer = getEnv("MAP_LAYER", cfg.MapLayer)
	cfg.CORSOrigins = getEnvAsList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.SessionRate = getEnvAsFloat("SESSION_RATE", cfg.SessionRate)
	cfg.SessionBurst = getEnvAsInt("SESSION_BURST", cfg.SessionBurst)

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsList читает список через запятую.
func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
