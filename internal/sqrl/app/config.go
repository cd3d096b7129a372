package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/sqrl/internal/sqrl/service"
)

type Config struct {
	Issuer string // Optional: issuer claim for session tickets (default: sqrl)

	CheckInterval     time.Duration // Optional: client poll interval, the nut lifetime unit (default: 1s)
	NutMultiplier     int           // Optional: nut lifetime in check intervals (default: 180)
	MaxNuts           int           // Optional: cap on nuts held in memory (default: 100000)
	LoginPaths        []string      // Optional: paths that may request a nut (default: /, /MessageMe)
	AskPaths          []AskPath     // Optional: Ask-eligible paths (default: /MessageMe/Now:false)
	AllowRegistration bool          // Optional: create identities on first login (default: true)
	Diagnostics       bool          // Optional: debug logging and /sqrl/diag (default: false)
	AdminIDs          []string      // Optional: user ids given the admin role

	StoreDriver    string        // Optional: sqlite, postgres or memory (default: sqlite)
	DatabaseFile   string        // Optional: path to SQLite database file (default: ./sqrl.db)
	DatabaseDSN    string        // Required for postgres
	KeyStorageMode string        // Optional: ephemeral or persistent (default: ephemeral)
	MasterKeyPath  string        // Optional: master key file for persistent signing keys
	NumKeys        int           // Optional: active signing keys (default: 2)
	KeyGracePeriod time.Duration // Optional: how long persisted keys stay verifiable (default: 168h)
	SessionTTL     time.Duration // Optional: session ticket lifetime (default: 3h)
	CookieName     string        // Optional: session cookie name, "-" disables (default: sqrl_session)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1m)
}

// AskPath is one SQRL_ASK_PATHS entry.
type AskPath struct {
	Prefix                 string
	AuthenticateSeparately bool
}

func LoadConfig() (Config, error) {
	askPaths, err := parseAskPaths(getEnvListOrDefault("SQRL_ASK_PATHS", []string{"/MessageMe/Now:false"}))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Issuer:               getEnvOrDefault("ISSUER", "sqrl"),
		CheckInterval:        time.Duration(getEnvIntOrDefault("SQRL_CHECK_MS", 1000)) * time.Millisecond,
		NutMultiplier:        getEnvIntOrDefault("SQRL_NUT_MULTIPLIER", service.DefaultNutMultiplier),
		MaxNuts:              getEnvIntOrDefault("SQRL_MAX_NUTS", service.DefaultMaxNuts),
		LoginPaths:           getEnvListOrDefault("SQRL_LOGIN_PATHS", []string{"/", "/MessageMe"}),
		AskPaths:             askPaths,
		AllowRegistration:    getEnvBoolOrDefault("SQRL_ALLOW_REGISTRATION", true),
		Diagnostics:          getEnvBoolOrDefault("SQRL_DIAGNOSTICS", false),
		AdminIDs:             getEnvListOrDefault("SQRL_ADMIN_IDS", nil),
		StoreDriver:          getEnvOrDefault("SQRL_STORE", "sqlite"),
		DatabaseFile:         getEnvOrDefault("SQRL_DATABASE_FILE", "sqrl.db"),
		DatabaseDSN:          os.Getenv("SQRL_DATABASE_DSN"),
		KeyStorageMode:       getEnvOrDefault("SQRL_KEY_STORAGE_MODE", "ephemeral"),
		MasterKeyPath:        os.Getenv("SQRL_MASTER_KEY_PATH"),
		NumKeys:              getEnvIntOrDefault("SQRL_NUM_KEYS", 0),
		KeyGracePeriod:       getEnvDurationOrDefault("SQRL_KEY_GRACE_PERIOD", 7*24*time.Hour),
		SessionTTL:           getEnvDurationOrDefault("SQRL_SESSION_TTL", 3*time.Hour),
		CookieName:           getEnvOrDefault("SQRL_COOKIE_NAME", "sqrl_session"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),
	}

	if cfg.CookieName == "-" {
		cfg.CookieName = ""
	}

	switch cfg.StoreDriver {
	case "sqlite", "memory":
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return Config{}, fmt.Errorf("SQRL_DATABASE_DSN is required for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown SQRL_STORE %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// PathRules builds the login and Ask path table from the configuration.
func (c Config) PathRules() *service.PathRules {
	rules := make([]service.PathRule, 0, len(c.LoginPaths)+len(c.AskPaths))
	for _, p := range c.LoginPaths {
		rules = append(rules, service.PathRule{Prefix: p})
	}
	for _, p := range c.AskPaths {
		rules = append(rules, service.PathRule{
			Prefix:                 p.Prefix,
			AskEligible:            true,
			AuthenticateSeparately: p.AuthenticateSeparately,
		})
	}
	return service.NewPathRules(c.AllowRegistration, rules...)
}

// parseAskPaths reads "path[:authenticateSeparately]" entries.
func parseAskPaths(entries []string) ([]AskPath, error) {
	out := make([]AskPath, 0, len(entries))
	for _, e := range entries {
		prefix, flag, hasFlag := strings.Cut(e, ":")
		p := AskPath{Prefix: strings.TrimSpace(prefix)}
		if p.Prefix == "" {
			return nil, fmt.Errorf("SQRL_ASK_PATHS: empty path in %q", e)
		}
		if hasFlag {
			sep, err := strconv.ParseBool(strings.TrimSpace(flag))
			if err != nil {
				return nil, fmt.Errorf("SQRL_ASK_PATHS: %q: %w", e, err)
			}
			p.AuthenticateSeparately = sep
		}
		out = append(out, p)
	}
	return out, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

// getEnvListOrDefault splits a comma separated variable, dropping blanks.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
