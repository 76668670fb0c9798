package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL            string
	HTTPPort               string
	LogLevel               string
	JWTSecret              string
	ModelPath              string
	BootstrapDefaultAdmin  bool
	ClassifyTimeoutSeconds int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		DatabaseURL:            getEnv("DATABASE_URL", "eurosat.db"),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		ModelPath:              getEnv("MODEL_PATH", ""),
		BootstrapDefaultAdmin:  getEnvAsBool("BOOTSTRAP_DEFAULT_ADMIN", true),
		ClassifyTimeoutSeconds: getEnvAsInt("CLASSIFY_TIMEOUT_SECONDS", 30),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
