package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	FromFormat  string
	ToFormat    string
	Lenient     bool
	ASCIISpaces bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		FromFormat:  getEnv("MSGCONV_FROM", "fluent"),
		ToFormat:    getEnv("MSGCONV_TO", "mf2"),
		Lenient:     getEnvBool("MSGCONV_LENIENT", false),
		ASCIISpaces: getEnvBool("MSGCONV_ASCII_SPACES", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
