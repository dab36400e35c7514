package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	TemplatesDir string
	StaticDir    string
	CookieSecure bool

	// Backend order/auth/product API consumed by the storefront.
	APIBaseURL string
	APITimeout time.Duration

	// Session-scoped storage. Redis is used when RedisAddr is set,
	// otherwise entries live in the SQLite session_entries table.
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	CheckoutResetDelay time.Duration

	// Sandbox backend (cmd/sandboxapi).
	SandboxPort string
	SandboxDSN  string
	JWTSecret   string
	JWTLifetime time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	// .env is optional; production sets real env vars.
	_ = godotenv.Load()

	cfg := Config{
		Port:               GetEnv("PORT", "8080"),
		DBDSN:              GetEnv("DB_DSN", "storefront.db"), // sqlite file in project root
		LogFile:            GetEnv("LOG_FILE", "./storefront.log"),
		TemplatesDir:       GetEnv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:          GetEnv("STATIC_DIR", "./web/static"),
		CookieSecure:       GetBool("COOKIE_SECURE", false),
		APIBaseURL:         GetEnv("API_BASE_URL", "http://localhost:4000/api"),
		APITimeout:         GetDuration("API_TIMEOUT", 10*time.Second),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		SessionTTL:         GetDuration("SESSION_TTL", 12*time.Hour),
		CheckoutResetDelay: GetDuration("CHECKOUT_RESET_DELAY", 3000*time.Millisecond),
		SandboxPort:        GetEnv("SANDBOX_PORT", "4000"),
		SandboxDSN:         GetEnv("SANDBOX_DB_DSN", "sandbox.db"),
		JWTSecret:          GetEnv("JWT_SECRET", "dev-only-secret"),
		JWTLifetime:        GetDuration("JWT_LIFETIME", 2*time.Hour),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s API_BASE_URL=%s REDIS_ADDR=%q SESSION_TTL=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.APIBaseURL, cfg.RedisAddr, cfg.SessionTTL)
	return cfg
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration accepts Go duration strings ("3s") or plain milliseconds ("3000").
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("[warn] invalid duration %s=%q, using %s", key, raw, defaultValue)
	return defaultValue
}

func GetBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("[warn] invalid bool %s=%q, using %t", key, raw, defaultValue)
		return defaultValue
	}
	return b
}
