package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the incident reporter service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Connection pool cap
	DBMaxOpenConns int

	// Server configuration
	Port string

	// Push channel configuration
	HeartbeatInterval time.Duration

	// Optional RabbitMQ mirror of report lifecycle events.
	// Disabled when AMQP_URL is empty.
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "incidents"),

		DBMaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Keep-alive frame interval for open push channels
		HeartbeatInterval: getDurationEnv("HEARTBEAT_INTERVAL", 25*time.Second),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "report_events"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "report.lifecycle"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
