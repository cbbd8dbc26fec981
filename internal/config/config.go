package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	ServerPort   string
	KafkaBrokers []string
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:       getenv("DB_HOST", "localhost"),
		DBPort:       getenv("DB_PORT", "5432"),
		DBUser:       getenv("DB_USER", "postgres"),
		DBPassword:   getenv("DB_PASSWORD", "password"),
		DBName:       getenv("DB_NAME", "pharmacy_ledger"),
		DBSSLMode:    getenv("DB_SSLMODE", "disable"),
		ServerPort:   getenv("SERVER_PORT", "8080"),
		KafkaBrokers: getList("KAFKA_BROKERS"),
	}
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
