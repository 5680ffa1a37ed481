package util

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

// EnvFile is read by LoadEnv when no file is named.
const EnvFile = ".env"

// LoadEnv copies dotenv files into the process environment. Variables that
// are already set keep their value. A missing file is not an error.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{EnvFile}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			logger.Debug("[Env] No env file loaded, using system environment", "file", file)
		}
	}
}

// GetEnv returns the trimmed value of key, or "" when it is unset.
func GetEnv(key string) string {
	return GetEnvString(key, "")
}

// GetEnvString returns the trimmed value of key. Unset and blank values fall
// back to defaultValue.
func GetEnvString(key string, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	if value = strings.TrimSpace(value); value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(key string, defaultValue int) int {
	value := GetEnv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("[Env] Ignoring non-integer value", "key", key, "value", value)
		return defaultValue
	}
	return n
}

// GetEnvBool accepts the spellings of strconv.ParseBool ("1", "true", "TRUE", ...).
func GetEnvBool(key string, defaultValue bool) bool {
	value := GetEnv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("[Env] Ignoring non-boolean value", "key", key, "value", value)
		return defaultValue
	}
	return b
}
