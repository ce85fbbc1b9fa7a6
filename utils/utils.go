package utils

import (
	"os"
)

// DefaultOutputDir returns the working directory, falling back to the temp dir.
func DefaultOutputDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return os.TempDir()
	}
	return dir
}

func LookupEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultValue
}
