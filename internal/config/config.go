package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// DatabaseURL selects the Postgres-backed state store; empty runs
	// on the in-memory store (state is lost on restart).
	DatabaseURL string

	HTTPAddr  string
	JWTSecret string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL: getenv("DATABASE_URL", ""),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret"),
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
