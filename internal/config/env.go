// Package config provides configuration helpers for go-argus commands.
// Configuration is environment-first: every helper reads an ARGUS_* or
// OPENAI_* variable and falls back to a default. A .env file in the
// working directory is loaded once, before any lookup.
package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Defaults for the detection backend.
const (
	DefaultServerURL     = "http://localhost:8000"
	DefaultDashboardPort = "8090"
)

var loadEnvOnce sync.Once

// loadEnv loads .env once. Missing files are fine; explicit environment
// variables always win over .env entries (godotenv does not overwrite).
func loadEnv() {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Env returns the value of an environment variable, falling back to def.
func Env(key, def string) string {
	loadEnv()
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns an integer environment variable, falling back to def
// when unset or unparsable.
func EnvInt(key string, def int) int {
	loadEnv()
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvFloat returns a float environment variable, falling back to def
// when unset or unparsable.
func EnvFloat(key string, def float64) float64 {
	loadEnv()
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// ServerURL returns the detection backend base URL from ARGUS_SERVER.
func ServerURL() string {
	return Env("ARGUS_SERVER", DefaultServerURL)
}

// APIKey returns the backend bearer token from ARGUS_API_KEY.
// Empty means the backend runs without authentication.
func APIKey() string {
	return Env("ARGUS_API_KEY", "")
}

// LogLevel returns the log level from ARGUS_LOG_LEVEL.
func LogLevel() string {
	return Env("ARGUS_LOG_LEVEL", "info")
}

// DashboardAddr returns the dashboard listen address from ARGUS_DASHBOARD.
func DashboardAddr() string {
	return ":" + Env("ARGUS_DASHBOARD", DefaultDashboardPort)
}
