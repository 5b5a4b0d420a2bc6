package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the portal gateway
type Config struct {
	Port        string
	Origin      string
	Environment string
	LogLevel    string
	LoginPath   string
	API         APIConfig
	Session     SessionConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	// LogoutOnUnauthorized clears the caller's session when the backend answers 401.
	LogoutOnUnauthorized bool
	// ExpireSessions makes the guard reject sessions whose JWT has expired.
	ExpireSessions bool
	Location       *time.Location
	StatusCase     string
	// CacheTTL bounds how long fetched appointments are served from memory.
	CacheTTL time.Duration
}

// APIConfig holds the backend API connection details
type APIConfig struct {
	BaseURL    string
	AuthScheme string
	Timeout    time.Duration
}

// SessionConfig holds session store settings
type SessionConfig struct {
	Store      string
	CookieName string
	TTL        time.Duration
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds redis connection details
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "portal"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisTLS, err := strconv.ParseBool(getEnv("REDIS_TLS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TLS: %w", err)
	}
	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
		TLS:      redisTLS,
	}

	timeoutSeconds, err := strconv.Atoi(getEnv("API_TIMEOUT_SECONDS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT_SECONDS: %w", err)
	}

	sessionTTLHours, err := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %w", err)
	}

	store := strings.ToLower(getEnv("SESSION_STORE", "memory"))
	switch store {
	case "memory", "mysql", "redis":
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE: %q", store)
	}

	logoutOnUnauthorized, err := strconv.ParseBool(getEnv("LOGOUT_ON_UNAUTHORIZED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGOUT_ON_UNAUTHORIZED: %w", err)
	}

	expireSessions, err := strconv.ParseBool(getEnv("EXPIRE_SESSIONS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRE_SESSIONS: %w", err)
	}

	loc, err := time.LoadLocation(getEnv("PORTAL_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORTAL_TIMEZONE: %w", err)
	}

	cacheSeconds, err := strconv.Atoi(getEnv("APPOINTMENT_CACHE_SECONDS", "300"))
	if err != nil || cacheSeconds <= 0 {
		return nil, fmt.Errorf("invalid APPOINTMENT_CACHE_SECONDS: %q", getEnv("APPOINTMENT_CACHE_SECONDS", ""))
	}

	statusCase := strings.ToLower(getEnv("APPOINTMENT_STATUS_CASE", "upper"))
	if statusCase != "upper" && statusCase != "title" {
		return nil, fmt.Errorf("invalid APPOINTMENT_STATUS_CASE: %q", statusCase)
	}

	return &Config{
		Port:        getEnv("PORT", "3000"),
		Origin:      getEnv("ORIGIN", "http://localhost:5173"),
		Environment: getEnv("NODE_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LoginPath:   getEnv("LOGIN_PATH", "/login"),
		API: APIConfig{
			BaseURL:    strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/"),
			AuthScheme: getEnv("API_AUTH_SCHEME", ""),
			Timeout:    time.Duration(timeoutSeconds) * time.Second,
		},
		Session: SessionConfig{
			Store:      store,
			CookieName: getEnv("SESSION_COOKIE_NAME", "portal_session"),
			TTL:        time.Duration(sessionTTLHours) * time.Hour,
		},
		Database:             dbConfig,
		Redis:                redisConfig,
		LogoutOnUnauthorized: logoutOnUnauthorized,
		ExpireSessions:       expireSessions,
		Location:             loc,
		StatusCase:           statusCase,
		CacheTTL:             time.Duration(cacheSeconds) * time.Second,
	}, nil
}

// IsDevelopment reports whether the gateway runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
