// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds settings for the gateway HTTP server
type ServerConfig struct {
	Port int
	Host string
}

// BackendConfig holds settings for the platform REST API the engine talks to
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DiscussionConfig tunes per-discussion behavior
type DiscussionConfig struct {
	PageSize       int
	ReconcileDelay time.Duration
	ActorTimeout   time.Duration
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Backend        *BackendConfig
	Discussion     *DiscussionConfig
	JWTSecret      string
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default gateway settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port: 8080,
		Host: "0.0.0.0",
	}
}

// DefaultDiscussionConfig provides default discussion tuning
func DefaultDiscussionConfig() *DiscussionConfig {
	return &DiscussionConfig{
		PageSize:       20,
		ReconcileDelay: 3 * time.Second,
		ActorTimeout:   5 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from the usual locations
	envLocations := []string{
		".env",       // Current directory
		"../../.env", // Project root when running from cmd/engine
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		// Silent failure if no .env exists, which is fine
		_ = godotenv.Load()
	}

	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	backendConfig := &BackendConfig{
		BaseURL:        getEnvOrDefault("BACKEND_URL", ""),
		RequestTimeout: 10 * time.Second,
	}
	if backendConfig.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable is required")
	}
	backendConfig.BaseURL = strings.TrimRight(backendConfig.BaseURL, "/")

	if timeoutStr := os.Getenv("BACKEND_TIMEOUT_SECONDS"); timeoutStr != "" {
		if secs, err := strconv.Atoi(timeoutStr); err == nil && secs > 0 {
			backendConfig.RequestTimeout = time.Duration(secs) * time.Second
		}
	}

	discussionConfig := DefaultDiscussionConfig()

	if sizeStr := os.Getenv("COMMENT_PAGE_SIZE"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
			discussionConfig.PageSize = size
		}
	}

	if delayStr := os.Getenv("RECONCILE_DELAY_MS"); delayStr != "" {
		if ms, err := strconv.Atoi(delayStr); err == nil && ms >= 0 {
			discussionConfig.ReconcileDelay = time.Duration(ms) * time.Millisecond
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	config := &Config{
		Server:         serverConfig,
		Backend:        backendConfig,
		Discussion:     discussionConfig,
		JWTSecret:      jwtSecret,
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
