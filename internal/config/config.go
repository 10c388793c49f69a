package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSensitivePaths are the request paths whose access is always reported
// by the anomaly job.
var DefaultSensitivePaths = []string{"/admin", "/login", "/wp-login.php", "/staff/login"}

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	LogDir       string
	Debug        bool
	Security     SecurityConfig
	Geo          GeoConfig
	Anomaly      AnomalyConfig
	Notify       NotifyConfig
}

// SecurityConfig configures the request pipeline and the admin surface.
type SecurityConfig struct {
	// ForwardHeader names the proxy header carrying the originating address.
	ForwardHeader          string
	AdminToken             string
	LoginRatePerMinute     int
	SensitiveRatePerMinute int
}

// GeoConfig configures geolocation of audited requests.
type GeoConfig struct {
	Enabled     bool
	ProviderURL string
	ProviderKey string
	FallbackURL string
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// AnomalyConfig configures the periodic anomaly detection job.
type AnomalyConfig struct {
	Schedule       string
	Window         time.Duration
	RateThreshold  int
	SensitivePaths []string
	RunTimeout     time.Duration
}

// NotifyConfig lists shoutrrr destinations alerted on new findings.
type NotifyConfig struct {
	URLs []string
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:  getEnv("IPGUARD_ENV", "development"),
		HTTPPort:     getEnv("IPGUARD_HTTP_PORT", "8080"),
		DatabasePath: getEnv("IPGUARD_DB_PATH", filepath.Join("data", "ipguard.db")),
		LogDir:       getEnv("IPGUARD_LOG_DIR", filepath.Join("data", "logs")),
		Debug:        getEnvBool("IPGUARD_DEBUG", false),
		Security: SecurityConfig{
			ForwardHeader:          getEnv("IPGUARD_TRUSTED_FORWARD_HEADER", "X-Forwarded-For"),
			AdminToken:             getEnv("IPGUARD_ADMIN_TOKEN", ""),
			LoginRatePerMinute:     getEnvInt("IPGUARD_LOGIN_RATE_PER_MINUTE", 5),
			SensitiveRatePerMinute: getEnvInt("IPGUARD_SENSITIVE_RATE_PER_MINUTE", 10),
		},
		Geo: GeoConfig{
			Enabled:     getEnvBool("IPGUARD_GEO_ENABLED", true),
			ProviderURL: getEnv("IPGUARD_GEO_PROVIDER_URL", ""),
			ProviderKey: getEnv("IPGUARD_GEO_PROVIDER_KEY", ""),
			FallbackURL: getEnv("IPGUARD_GEO_FALLBACK_URL", "http://ip-api.com/json/%s"),
			Timeout:     getEnvDuration("IPGUARD_GEO_TIMEOUT", 3*time.Second),
			CacheTTL:    getEnvDuration("IPGUARD_GEO_CACHE_TTL", 24*time.Hour),
		},
		Anomaly: AnomalyConfig{
			Schedule:       getEnv("IPGUARD_ANOMALY_SCHEDULE", "@hourly"),
			Window:         getEnvDuration("IPGUARD_ANOMALY_WINDOW", time.Hour),
			RateThreshold:  getEnvInt("IPGUARD_ANOMALY_RATE_THRESHOLD", 100),
			SensitivePaths: getEnvList("IPGUARD_ANOMALY_SENSITIVE_PATHS", DefaultSensitivePaths),
			RunTimeout:     getEnvDuration("IPGUARD_ANOMALY_RUN_TIMEOUT", 5*time.Minute),
		},
		Notify: NotifyConfig{
			URLs: getEnvList("IPGUARD_NOTIFY_URLS", nil),
		},
	}

	if cfg.Anomaly.Window <= 0 {
		return Config{}, fmt.Errorf("anomaly window must be positive, got %s", cfg.Anomaly.Window)
	}
	if cfg.Anomaly.RateThreshold < 0 {
		return Config{}, fmt.Errorf("anomaly rate threshold must not be negative, got %d", cfg.Anomaly.RateThreshold)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
