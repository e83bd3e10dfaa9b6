package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB     DBConfig
	MinIO  MinIOConfig
	JWT    JWTConfig
	Server ServerConfig
	Admin  AdminConfig
	Vault  VaultConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port string
}

// AdminConfig controls the bootstrap administrator. A registration with the
// admin email is promoted to the admin role and verified immediately.
type AdminConfig struct {
	Email    string
	Password string
}

// VaultConfig tunes the sensitive-field reveal window and the PIN gate's
// clear delay after a rejected entry.
type VaultConfig struct {
	RevealWindow       time.Duration
	PinClearDelay      time.Duration
	ExpirySoonDays     int
	SessionLockMaxIdle time.Duration
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "deshiwallet"),
			Password: getEnv("DB_PASSWORD", "deshiwallet_secret"),
			Name:     getEnv("DB_NAME", "deshiwallet"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "deshiwallet"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "deshiwallet_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "deshiwallet"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@deshiwallet.local"),
			Password: getEnv("ADMIN_PASSWORD", "admin123"),
		},
		Vault: VaultConfig{
			RevealWindow:       getEnvAsDuration("VAULT_REVEAL_WINDOW", 10*time.Second),
			PinClearDelay:      getEnvAsDuration("VAULT_PIN_CLEAR_DELAY", 300*time.Millisecond),
			ExpirySoonDays:     getEnvAsInt("VAULT_EXPIRY_SOON_DAYS", 30),
			SessionLockMaxIdle: getEnvAsDuration("VAULT_SESSION_LOCK_MAX_IDLE", 24*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
