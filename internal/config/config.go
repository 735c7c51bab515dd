package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	StoreDriver           string
	DatabasePath          string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	SeedAdminUsername     string
	SeedAdminPassword     string
	BackupDir             string
	Timezone              string
	PhoneRegion           string
	LogLevel              string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabasePath:          getEnv("DATABASE_PATH", "data/warehouse.db"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SeedAdminUsername:     strings.ToLower(strings.TrimSpace(getEnv("SEED_ADMIN_USERNAME", "admin"))),
		SeedAdminPassword:     os.Getenv("SEED_ADMIN_PASSWORD"),
		BackupDir:             getEnv("BACKUP_DIR", "backups"),
		Timezone:              getEnv("TIMEZONE", "Asia/Baghdad"),
		PhoneRegion:           strings.ToUpper(getEnv("PHONE_REGION", "IQ")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
	cfg.StoreDriver = resolveDriver(os.Getenv("STORE_DRIVER"), cfg.DatabaseURL)

	return cfg
}

func resolveDriver(raw string, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case DriverMemory:
		return DriverMemory
	case DriverPostgres:
		return DriverPostgres
	case DriverSQLite:
		return DriverSQLite
	}
	if databaseURL != "" {
		return DriverPostgres
	}
	return DriverSQLite
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// Location resolves Timezone, falling back to the process local zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
