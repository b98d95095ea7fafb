package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

func envValue(key string) string {
	v, _ := lookupEnv(key)
	return strings.TrimSpace(v)
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	if v := envValue(key); v != "" {
		return v
	}
	return def
}

// EnvBool reads a bool env var with a default. Unparseable values give def.
func EnvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(envValue(key))
	if err != nil {
		return def
	}
	return b
}

// EnvInt reads a positive int env var with a default.
func EnvInt(key string, def int) int {
	n, err := strconv.Atoi(envValue(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// EnvInt32 reads a non-negative int32 env var with a default.
func EnvInt32(key string, def int32) int32 {
	n, err := strconv.ParseInt(envValue(key), 10, 32)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}

// EnvDuration reads a positive duration env var with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(envValue(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
