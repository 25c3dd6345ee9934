package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// Identity
	JWTSecret       string
	IdentityURL     string // remote identity authority; empty = validate JWTs locally
	IdentityTimeout time.Duration
	SessionCacheTTL time.Duration

	// Storage
	StorageBackend    string // "local" or "ftp"
	StorageRoot       string
	MaxUploadBytes    int64
	AllowedExtensions []string // empty = allow all

	// FTP backend
	FTPHost     string
	FTPPort     int
	FTPUser     string
	FTPPassword string
	FTPRoot     string

	// Quota
	DefaultQuotaBytes int64
	QuotaResyncEvery  time.Duration // 0 disables the resync sweep

	// API
	APIPort    int
	AdminToken string // empty disables the admin endpoints
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a timestamp-based approach if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32) // 64 character hex string
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Sessions will not validate across restarts.")
	}

	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	storageBackend := getEnv("STORAGE_BACKEND", "local")
	if storageBackend != "local" && storageBackend != "ftp" {
		log.Printf("WARNING: unknown STORAGE_BACKEND %q - falling back to local", storageBackend)
		storageBackend = "local"
	}

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "filedock"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "filedock"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// Identity
		JWTSecret:       jwtSecret,
		IdentityURL:     getEnv("IDENTITY_URL", ""),
		IdentityTimeout: time.Duration(getEnvInt("IDENTITY_TIMEOUT_SECONDS", 5)) * time.Second,
		SessionCacheTTL: time.Duration(getEnvInt("SESSION_CACHE_TTL_SECONDS", 300)) * time.Second,

		// Storage
		StorageBackend:    storageBackend,
		StorageRoot:       getEnv("STORAGE_ROOT", "./data/files"),
		MaxUploadBytes:    getEnvInt64("MAX_UPLOAD_BYTES", 512*1024*1024), // 512MB
		AllowedExtensions: getEnvList("ALLOWED_EXTENSIONS"),

		// FTP backend
		FTPHost:     getEnv("FTP_HOST", ""),
		FTPPort:     getEnvInt("FTP_PORT", 21),
		FTPUser:     getEnv("FTP_USER", ""),
		FTPPassword: getEnv("FTP_PASSWORD", ""),
		FTPRoot:     getEnv("FTP_ROOT", "/files"),

		// Quota
		DefaultQuotaBytes: getEnvInt64("DEFAULT_QUOTA_BYTES", 10*1024*1024*1024), // 10GB
		QuotaResyncEvery:  time.Duration(getEnvInt("QUOTA_RESYNC_MINUTES", 60)) * time.Minute,

		// API
		APIPort:    getEnvInt("API_PORT", 8080),
		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList parses a comma-separated env var into lowercased entries.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
