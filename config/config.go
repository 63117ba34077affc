package config

import (
	"os"
	"time"
)

// Config holds all configuration for the FarmPulse service.
type Config struct {
	// Server configuration
	Port string

	// Groq configuration
	GroqAPIKey       string
	GroqModel        string
	InferenceTimeout time.Duration

	// Supabase configuration
	SupabaseDBURL   string
	SupabaseAuthURL string
	SupabaseAnonKey string

	// Firebase Realtime Database configuration
	FirebaseDatabaseURL string
	FirebaseAuthToken   string
	FirebaseRootPath    string

	// Session configuration
	JWTSecret string
	TokenTTL  time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
		GroqModel:        getEnv("GROQ_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		InferenceTimeout: getDurationEnv("INFERENCE_TIMEOUT", 90*time.Second),

		SupabaseDBURL:   getEnv("SUPABASE_DB_URL", ""),
		SupabaseAuthURL: getEnv("SUPABASE_AUTH_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),

		FirebaseDatabaseURL: getEnv("FIREBASE_DATABASE_URL", ""),
		FirebaseAuthToken:   getEnv("FIREBASE_AUTH_TOKEN", ""),
		FirebaseRootPath:    getEnv("FIREBASE_ROOT_PATH", "FarmPulse"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDurationEnv("TOKEN_TTL", 24*time.Hour),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
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
