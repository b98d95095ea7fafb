package app

import (
	"time"

	"kwlnk/cmd/internal/api"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	LogFile   string

	// AppConfigPath points at the optional YAML application config file.
	AppConfigPath string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	AutoMigrate bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	RedisURL      string
	RedisCacheTTL time.Duration

	NATSURL           string
	NATSSubjectPrefix string

	OTELEndpoint string

	// If true, KWLNK_TOKEN_FINGERPRINT_KEY must be set (>= 32 bytes) so that
	// token fingerprints in logs are keyed.
	RequireFingerprintKey bool

	API api.Config
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("KWLNK_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("KWLNK_LOG_LEVEL", "info"),
		LogFormat: EnvString("KWLNK_LOG_FORMAT", "json"),
		LogFile:   EnvString("KWLNK_LOG_FILE", ""),

		AppConfigPath: EnvString("KWLNK_APP_CONFIG", ""),

		ReadHeaderTimeout: EnvDuration("KWLNK_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("KWLNK_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("KWLNK_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("KWLNK_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("KWLNK_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("KWLNK_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("KWLNK_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("KWLNK_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("KWLNK_DB_MIN_CONNS", 0),
		AutoMigrate: EnvBool("KWLNK_DB_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("KWLNK_READINESS_REQUIRE_DB", false),

		RedisURL:      EnvString("KWLNK_REDIS_URL", ""),
		RedisCacheTTL: EnvDuration("KWLNK_REDIS_CACHE_TTL", 5*time.Minute),

		NATSURL:           EnvString("KWLNK_NATS_URL", ""),
		NATSSubjectPrefix: EnvString("KWLNK_NATS_SUBJECT_PREFIX", "kwlnk"),

		OTELEndpoint: EnvString("KWLNK_OTEL_ENDPOINT", ""),

		RequireFingerprintKey: EnvBool("KWLNK_REQUIRE_FINGERPRINT_KEY", false),

		API: api.LoadConfigFromEnv(),
	}
}
