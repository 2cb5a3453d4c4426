// Package config loads application configuration from the environment.
//
// CONFIGURATION SOURCES (highest priority last):
//  1. Built-in defaults — safe for local development
//  2. A .env file in the working directory, if present
//  3. Real environment variables
//
// godotenv.Load only sets variables that aren't already set, so real env vars
// always win over the .env file. The .env file is a development convenience;
// production deployments set the environment directly.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// devSecret is the fallback signing key when SECRET_KEY is unset.
// Fine for local hacking, useless in production — Load warns loudly about it.
const devSecret = "dev-unsafe-secret-key-change-me"

// Config holds everything the server needs to start.
type Config struct {
	Addr         string // listen address, e.g. ":8080"
	DBPath       string // SQLite database file, or ":memory:"
	SecretKey    string // signs session tokens and flash cookies
	PostsPerPage int    // pagination size for the index
	TemplateDir  string // HTML templates
	StaticDir    string // stylesheet and friends
	LogLevel     slog.Level
}

// Load reads the configuration. It never fails on a missing .env file — that
// file is optional — but does fail on values that parse but make no sense
// (e.g. POSTS_PER_PAGE=0).
func Load(logger *slog.Logger) (Config, error) {
	// Ignore the error: a missing .env file is the normal case.
	_ = godotenv.Load()

	cfg := Config{
		Addr:         getEnv("ADDR", ":8080"),
		DBPath:       getEnv("DB_PATH", "data/miniblog.db"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		TemplateDir:  getEnv("TEMPLATE_DIR", "web/templates"),
		StaticDir:    getEnv("STATIC_DIR", "web/static"),
		PostsPerPage: 5,
		LogLevel:     slog.LevelInfo,
	}

	if cfg.SecretKey == "" {
		logger.Warn("SECRET_KEY not set — using an insecure development key; " +
			"set SECRET_KEY=$(openssl rand -hex 32) in production")
		cfg.SecretKey = devSecret
	}

	if v := os.Getenv("POSTS_PER_PAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("config: invalid POSTS_PER_PAGE %q", v)
		}
		cfg.PostsPerPage = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", v, err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

// getEnv returns the environment variable or a default when unset.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
