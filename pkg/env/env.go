package env

import "os"

// Get reads an environment variable directly, for the few platform-injected
// values (like PORT) that live outside the prefixed config struct. Empty or
// unset values fall back to the provided default.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
