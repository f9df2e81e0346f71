package env

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable handling utilities for twilight.
// Provides centralized environment variable management with consistent naming and fallbacks

// GetStringWithFallback returns the value of the first non-empty environment variable
// or the default value if all are empty
func GetStringWithFallback(defaultValue string, envVars ...string) string {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	return defaultValue
}

// GetIntWithFallback returns the integer value of the first parseable environment variable
// or the default value if all are empty or unparseable
func GetIntWithFallback(defaultValue int, envVars ...string) int {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
	}
	return defaultValue
}

// GetFloatWithFallback returns the float value of the first parseable environment variable
// or the default value if all are empty or unparseable
func GetFloatWithFallback(defaultValue float64, envVars ...string) float64 {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
				return floatValue
			}
		}
	}
	return defaultValue
}

// GetBoolWithFallback returns the boolean value of the first parseable environment variable
// or the default value if all are empty or unparseable
// Accepts: "true", "1", "yes", "on" (case insensitive) as true
func GetBoolWithFallback(defaultValue bool, envVars ...string) bool {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			switch strings.ToLower(value) {
			case "true", "1", "yes", "on":
				return true
			case "false", "0", "no", "off":
				return false
			}
		}
	}
	return defaultValue
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return GetBoolWithFallback(false, "TWILIGHT_DEBUG")
}

// LogLevel returns the configured log level
// Priority: TWILIGHT_LOG_LEVEL > "info"
func LogLevel() string {
	return strings.ToLower(GetStringWithFallback("info", "TWILIGHT_LOG_LEVEL"))
}

// Latitude returns the configured latitude in degrees
func Latitude(defaultLatitude float64) float64 {
	return GetFloatWithFallback(defaultLatitude, "TWILIGHT_LATITUDE")
}

// Longitude returns the configured longitude in degrees
func Longitude(defaultLongitude float64) float64 {
	return GetFloatWithFallback(defaultLongitude, "TWILIGHT_LONGITUDE")
}

// Timezone returns the configured IANA timezone name
// Priority: TWILIGHT_TIMEZONE > default
func Timezone(defaultTimezone string) string {
	return GetStringWithFallback(defaultTimezone, "TWILIGHT_TIMEZONE")
}
