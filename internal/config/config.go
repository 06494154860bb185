package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPPort string

	// DBDriver selects the store backend: "sqlite" (file-backed, default)
	// or "postgres". DBDSN is a file path for sqlite and a connection URL
	// for postgres.
	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// RateInterval is the minimum gap between accepted mutating operations
	// per account.
	RateInterval time.Duration

	BackupDir      string
	BackupInterval time.Duration
}

func Load() Config {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	return Config{
		Env:            get("APP_ENV", "dev"),
		HTTPPort:       get("HTTP_PORT", "8080"),
		DBDriver:       get("DB_DRIVER", "sqlite"),
		DBDSN:          get("DB_DSN", "bank.db"),
		JWTSecret:      get("JWT_SECRET", "changeme-secret"),
		JWTIssuer:      get("JWT_ISSUER", "simplebank"),
		TokenTTL:       minutes("TOKEN_TTL_MIN", 30),
		RateInterval:   time.Duration(intEnv("RATE_LIMIT_INTERVAL_MS", 2000)) * time.Millisecond,
		BackupDir:      get("BACKUP_DIR", "."),
		BackupInterval: minutes("BACKUP_INTERVAL_MIN", 60),
	}
}

func get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func minutes(key string, def int) time.Duration {
	return time.Duration(intEnv(key, def)) * time.Minute
}
