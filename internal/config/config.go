package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSessionSecret = "storefront-dev-session-secret"

type Config struct {
	Port int

	DBDriver    string
	DatabaseURL string

	SessionSecret []byte
	SessionStore  string
	SessionDir    string
	SessionMaxAge int
	CookieSecure  bool

	UploadBackend string
	UploadDir     string
	PublicDir     string
	S3Bucket      string
	S3PublicURL   string

	AdminUsername string
	AdminPassword string
	AdminAddress  string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CartIdleTTL time.Duration

	LogLevel string
	LogFile  string
}

// LoadEnv reads .env into the process environment. A missing file is not an error.
func LoadEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("Notice: %s file not found: %v. Using system environment variables", path, err)
	}
}

func Load() Config {
	return Config{
		Port: EnvIntDefault("PORT", 3000),

		DBDriver:    strings.ToLower(EnvDefault("DB_DRIVER", "sqlite")),
		DatabaseURL: EnvDefault("DATABASE_URL", "storefront.db"),

		SessionSecret: []byte(EnvDefault("SESSION_SECRET", devSessionSecret)),
		SessionStore:  strings.ToLower(EnvDefault("SESSION_STORE", "cookie")),
		SessionDir:    EnvDefault("SESSION_DIR", os.TempDir()),
		SessionMaxAge: EnvIntDefault("SESSION_MAX_AGE", 24*60*60),
		CookieSecure:  EnvBoolDefault("COOKIE_SECURE", false),

		UploadBackend: strings.ToLower(EnvDefault("UPLOAD_BACKEND", "local")),
		UploadDir:     EnvDefault("UPLOAD_DIR", "public/uploads"),
		PublicDir:     EnvDefault("PUBLIC_DIR", "public"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3PublicURL:   os.Getenv("S3_PUBLIC_URL"),

		AdminUsername: EnvDefault("ADMIN_USERNAME", "admin"),
		AdminPassword: EnvDefault("ADMIN_PASSWORD", "admin123"),
		AdminAddress:  EnvDefault("ADMIN_ADDRESS", "Admin Address"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		CartIdleTTL: EnvDurationDefault("CART_IDLE_TTL", 2*time.Hour),

		LogLevel: EnvDefault("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

// DevSessionSecret reports whether the built-in development secret is in use.
func (c Config) DevSessionSecret() bool {
	return string(c.SessionSecret) == devSessionSecret
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
