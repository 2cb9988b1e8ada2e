// Package config provides centralized default values for the Tenuto deletion
// service, overridable through the environment or a .env file.
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database
	DBDriver                 string
	DBPath                   string
	TursoDatabaseURL         string
	TursoAuthToken           string
	BackupDirectory          string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// Deletion Engine
	ResolverMaxDepth     int
	ResolverBatchSize    int
	ResolverCacheEntries int
	ExecuteChunkSize     int
	ExecuteConcurrency   int

	// Impact Thresholds
	ImpactCriticalCount int
	ImpactHighCount     int
	ImpactMediumCount   int

	// Orphan Cleanup Risk Thresholds
	OrphanMediumThreshold int
	OrphanHighThreshold   int

	// Registry Retention
	OperationRetention    time.Duration
	NotificationRetention time.Duration
	RegistrySweepInterval time.Duration

	// Auth
	JWTSecret         string
	AdminPasswordHash string

	// Alerts
	AlertEmailTo string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "tenuto.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")
	BackupDirectory = getEnvString("BACKUP_DIRECTORY", "backups")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// Deletion Engine
	ResolverMaxDepth = getEnvInt("RESOLVER_MAX_DEPTH", 3)
	ResolverBatchSize = getEnvInt("RESOLVER_BATCH_SIZE", 50)
	ResolverCacheEntries = getEnvInt("RESOLVER_CACHE_ENTRIES", 1000)
	ExecuteChunkSize = getEnvInt("EXECUTE_CHUNK_SIZE", 25)
	ExecuteConcurrency = getEnvInt("EXECUTE_CONCURRENCY", 3)

	// Impact Thresholds
	ImpactCriticalCount = getEnvInt("IMPACT_CRITICAL_COUNT", 100)
	ImpactHighCount = getEnvInt("IMPACT_HIGH_COUNT", 50)
	ImpactMediumCount = getEnvInt("IMPACT_MEDIUM_COUNT", 10)

	// Orphan Cleanup Risk Thresholds
	OrphanMediumThreshold = getEnvInt("ORPHAN_MEDIUM_THRESHOLD", 100)
	OrphanHighThreshold = getEnvInt("ORPHAN_HIGH_THRESHOLD", 500)

	// Registry Retention
	OperationRetention = getEnvDuration("OPERATION_RETENTION", time.Hour)
	NotificationRetention = getEnvDuration("NOTIFICATION_RETENTION", 10*time.Minute)
	RegistrySweepInterval = getEnvDuration("REGISTRY_SWEEP_INTERVAL", 5*time.Minute)

	// Auth
	JWTSecret = getEnvString("JWT_SECRET", "")
	AdminPasswordHash = getEnvString("ADMIN_PASSWORD_HASH", "")

	// Alerts
	AlertEmailTo = getEnvString("ALERT_EMAIL_TO", "")
}
