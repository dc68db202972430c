package common

import (
	"fmt"
	"strconv"
)

// MetadataString returns the first non-empty value among keys.
// Keys are checked in order; later keys act as legacy aliases.
func MetadataString(meta map[string]string, keys ...string) (string, bool) {
	if meta == nil {
		return "", false
	}
	for _, key := range keys {
		if value, ok := meta[key]; ok && value != "" {
			return value, true
		}
	}
	return "", false
}

// MetadataStringWithDefault is MetadataString with a fallback
func MetadataStringWithDefault(meta map[string]string, defaultValue string, keys ...string) string {
	if value, ok := MetadataString(meta, keys...); ok {
		return value
	}
	return defaultValue
}

// MetadataPort reads a TCP/UDP port. Absent keys yield defaultPort; a
// present but invalid value is an error.
func MetadataPort(meta map[string]string, defaultPort int, keys ...string) (int, error) {
	raw, ok := MetadataString(meta, keys...)
	if !ok {
		return defaultPort, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	return port, nil
}
