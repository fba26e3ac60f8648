package supportclient

import (
	"os"
	"strings"
)

const (
	DefaultBaseURL = "http://localhost:3001"
	EnvBaseURL     = "SUPPORT_API_URL"
)

// BaseURLFromEnv returns SUPPORT_API_URL without a trailing slash, or DefaultBaseURL.
func BaseURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return DefaultBaseURL
}
