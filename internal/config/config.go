package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	APIKey            string
	GatewayAuthSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PipelineConcurrency     int
	PipelineJobTimeout      time.Duration
	PipelineMaxAttempts     int
	PipelineBaseDelay       time.Duration
	PipelineBackoffMultiple float64
	PipelineFailedRetention int

	HealthErrorRateCritical float64
	HealthErrorRateDegraded float64
	HealthLatencyCritical   time.Duration
	HealthLatencyDegraded   time.Duration

	BatchChunkSize  int
	BatchChunkPause time.Duration

	GatewayRefreshInterval time.Duration

	InsightWindowSize    int
	InsightSeasonalRatio float64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "retailpulse"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		APIKey:            strings.TrimSpace(getenv("API_KEY", "")),
		GatewayAuthSecret: strings.TrimSpace(getenv("GATEWAY_AUTH_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "retailpulse"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 30),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 10),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		PipelineConcurrency:     getenvInt("PIPELINE_CONCURRENCY", 4),
		PipelineJobTimeout:      getenvDuration("PIPELINE_JOB_TIMEOUT", 30*time.Second),
		PipelineMaxAttempts:     getenvInt("PIPELINE_MAX_ATTEMPTS", 3),
		PipelineBaseDelay:       getenvDuration("PIPELINE_BASE_DELAY", 5*time.Second),
		PipelineBackoffMultiple: getenvFloat("PIPELINE_BACKOFF_MULTIPLIER", 2.0),
		PipelineFailedRetention: getenvInt("PIPELINE_FAILED_RETENTION", 100),

		HealthErrorRateCritical: getenvFloat("HEALTH_ERROR_RATE_CRITICAL", 0.10),
		HealthErrorRateDegraded: getenvFloat("HEALTH_ERROR_RATE_DEGRADED", 0.05),
		HealthLatencyCritical:   getenvDuration("HEALTH_LATENCY_CRITICAL", 5*time.Second),
		HealthLatencyDegraded:   getenvDuration("HEALTH_LATENCY_DEGRADED", 2500*time.Millisecond),

		BatchChunkSize:  getenvInt("BATCH_CHUNK_SIZE", 25),
		BatchChunkPause: getenvDuration("BATCH_CHUNK_PAUSE", 200*time.Millisecond),

		GatewayRefreshInterval: getenvDuration("GATEWAY_REFRESH_INTERVAL", 30*time.Second),

		InsightWindowSize:    getenvInt("INSIGHT_WINDOW_SIZE", 100),
		InsightSeasonalRatio: getenvFloat("INSIGHT_SEASONAL_RATIO", 0.3),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
