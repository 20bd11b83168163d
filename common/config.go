package common

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the process-wide settings read once at startup.
type Config struct {
	DBFile    string
	JWTSecret string
	Port      string
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment only")
	}

	cfg := &Config{
		DBFile:    os.Getenv("sqlite_db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Port:      os.Getenv("PORT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	return cfg
}
