package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/statfuse/statfuse/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the ingestion service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	DBURL          string
	LogLevel       logging.Level

	AliasTablePath    string
	PriorityTablePath string

	CacheEnabled bool
	CacheTTL     time.Duration

	CoordinatorWorkers int

	AlertWebhookEnabled             bool
	AlertWebhookURL                 string
	AlertWebhookToken               string
	AlertWebhookTimeout             time.Duration
	AlertWebhookCircuitEnabled      bool
	AlertWebhookCircuitFailureCount int
	AlertWebhookCircuitOpenTimeout  time.Duration
	AlertWebhookCircuitHalfOpenReq  int

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	dbURL := strings.TrimSpace(getEnv("DATABASE_URL", ""))
	if dbURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	coordinatorWorkers, err := getEnvAsInt("COORDINATOR_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse COORDINATOR_WORKERS: %w", err)
	}
	if coordinatorWorkers <= 0 {
		return Config{}, fmt.Errorf("COORDINATOR_WORKERS must be > 0")
	}

	alertEnabled, err := strconv.ParseBool(getEnv("ALERT_WEBHOOK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_ENABLED: %w", err)
	}
	alertURL := strings.TrimSpace(getEnv("ALERT_WEBHOOK_URL", ""))
	if alertEnabled && alertURL == "" {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_URL is required when ALERT_WEBHOOK_ENABLED=true")
	}
	alertTimeout, err := time.ParseDuration(getEnv("ALERT_WEBHOOK_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_TIMEOUT: %w", err)
	}
	if alertTimeout <= 0 {
		return Config{}, fmt.Errorf("ALERT_WEBHOOK_TIMEOUT must be > 0")
	}
	alertCircuitEnabled, err := strconv.ParseBool(getEnv("ALERT_WEBHOOK_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_CIRCUIT_ENABLED: %w", err)
	}
	alertCircuitFailureCount, err := getEnvAsInt("ALERT_WEBHOOK_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	alertCircuitOpenTimeout, err := time.ParseDuration(getEnv("ALERT_WEBHOOK_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	alertCircuitHalfOpenReq, err := getEnvAsInt("ALERT_WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALERT_WEBHOOK_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	serviceName := getEnv("SERVICE_NAME", "statfuse")

	return Config{
		AppEnv:         appEnv,
		ServiceName:    serviceName,
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		DBURL:          dbURL,
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),

		AliasTablePath:    strings.TrimSpace(getEnv("ALIAS_TABLE_PATH", "config/aliases.yaml")),
		PriorityTablePath: strings.TrimSpace(getEnv("PRIORITY_TABLE_PATH", "config/priorities.yaml")),

		CacheEnabled: cacheEnabled,
		CacheTTL:     cacheTTL,

		CoordinatorWorkers: coordinatorWorkers,

		AlertWebhookEnabled:             alertEnabled,
		AlertWebhookURL:                 alertURL,
		AlertWebhookToken:               strings.TrimSpace(getEnv("ALERT_WEBHOOK_TOKEN", "")),
		AlertWebhookTimeout:             alertTimeout,
		AlertWebhookCircuitEnabled:      alertCircuitEnabled,
		AlertWebhookCircuitFailureCount: alertCircuitFailureCount,
		AlertWebhookCircuitOpenTimeout:  alertCircuitOpenTimeout,
		AlertWebhookCircuitHalfOpenReq:  alertCircuitHalfOpenReq,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAppName:           getEnv("PYROSCOPE_APP_NAME", serviceName),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}
