package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	MigrationsPath string
	TelegramToken  string // пустой - уведомления отключены

	RedisAddr     string // пустой - только кэш в памяти
	RedisPassword string
	RedisDB       int

	CalendarCacheSize int
	CalendarCacheTTL  time.Duration

	AgendaHour  int
	Location    *time.Location // часовой пояс "настенного" времени занятий
	StrictLunch bool
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    getEnv("ENV", "development"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CalendarCacheSize, err = getInt("CALENDAR_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.CalendarCacheSize <= 0 {
		return nil, fmt.Errorf("CALENDAR_CACHE_SIZE must be positive, got %d", cfg.CalendarCacheSize)
	}
	if cfg.AgendaHour, err = getInt("AGENDA_HOUR", 20); err != nil {
		return nil, err
	}
	if cfg.AgendaHour < 0 || cfg.AgendaHour > 23 {
		return nil, fmt.Errorf("AGENDA_HOUR must be between 0 and 23, got %d", cfg.AgendaHour)
	}

	ttl := getEnv("CALENDAR_CACHE_TTL", "10m")
	if cfg.CalendarCacheTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("CALENDAR_CACHE_TTL: invalid duration %q: %w", ttl, err)
	}
	if cfg.CalendarCacheTTL <= 0 {
		return nil, fmt.Errorf("CALENDAR_CACHE_TTL must be positive, got %s", cfg.CalendarCacheTTL)
	}

	zone := getEnv("LOCATION", "Local")
	if cfg.Location, err = time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("LOCATION: unknown time zone %q: %w", zone, err)
	}

	if v := os.Getenv("STRICT_LUNCH"); v != "" {
		if cfg.StrictLunch, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("STRICT_LUNCH: invalid bool %q: %w", v, err)
		}
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
