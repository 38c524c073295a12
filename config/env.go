package config

import "os"

// Getenv returns the env var or def when empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
