package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backends selectable with TASKS_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendNeo4j    = "neo4j"
)

// Config holds everything main needs to wire the application.
type Config struct {
	Addr    string
	Backend string

	SupabaseURL     string
	SupabaseAnonKey string
	TaskTable       string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	SessionSecret  string
	CookieSecure   bool
	JWTSecret      string
	AccessTokenTTL time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, seeds variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            getenv("HTTP_ADDR", ":8080"),
		Backend:         getenv("TASKS_BACKEND", BackendSupabase),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		TaskTable:       getenv("SUPABASE_TASK_TABLE", "Task"),
		Neo4jURI:        getenv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:       getenv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   os.Getenv("NEO4J_PASSWORD"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
	}

	ttl, err := time.ParseDuration(getenv("ACCESS_TOKEN_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	cfg.AccessTokenTTL = ttl

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = secure
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings required by the chosen backend are set.
func (c Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	switch c.Backend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return errors.New("SUPABASE_URL is required")
		}
		if c.SupabaseAnonKey == "" {
			return errors.New("SUPABASE_ANON_KEY is required")
		}
	case BackendNeo4j:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for the neo4j backend")
		}
		if c.AccessTokenTTL <= 0 {
			return errors.New("ACCESS_TOKEN_TTL must be positive")
		}
	default:
		return fmt.Errorf("unknown TASKS_BACKEND %q", c.Backend)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
