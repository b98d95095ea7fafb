package api

import (
	"os"
	"strconv"
	"strings"
)

// Config controls routing and request handling.
type Config struct {
	// APIRoot prefixes the administration API, for example "/api/".
	APIRoot string
	// LinksRoot prefixes redirect keys, for example "/" or "/l/".
	LinksRoot string
	// AppName is sent in the X-Redirected-By header.
	AppName      string
	TrustProxy   bool
	MaxBodyBytes int64
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		APIRoot:      "/api/",
		LinksRoot:    "/",
		AppName:      "KwLnk",
		MaxBodyBytes: 1 << 20,
	}
}

// LoadConfigFromEnv loads API config from environment variables with safe
// defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		APIRoot:      envString("KWLNK_API_ROOT", def.APIRoot),
		LinksRoot:    envString("KWLNK_LINKS_ROOT", def.LinksRoot),
		AppName:      def.AppName,
		TrustProxy:   envBool("KWLNK_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("KWLNK_MAX_BODY_BYTES", def.MaxBodyBytes),
	}
	return cfg
}

// routePrefix turns a configured root such as "/api/" into the chi prefix
// "/api". The site root becomes "".
func routePrefix(root string) string {
	root = strings.Trim(strings.TrimSpace(root), "/")
	if root == "" {
		return ""
	}
	return "/" + root
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
