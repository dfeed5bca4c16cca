package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config stores runtime configuration for the registry pipeline.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	LogLevel                logging.Level
	LogFormat               logging.Format
	StoreDriver             string
	DBURL                   string
	DBDisablePreparedBinary bool
	DBTrace                 bool
	MigrationsDir           string
	CacheEnabled            bool
	CacheTTL                time.Duration
	PipelineActor           string
	IngestBatchSize         int
	IngestSeasonYear        int
	Dedup                   dedup.Thresholds
	DedupSampleSize         int
	MergeWorkers            int
	UptraceEnabled          bool
	UptraceDSN              string
	PyroscopeEnabled        bool
	PyroscopeServerAddress  string
	PyroscopeAppName        string
	PyroscopeAuthToken      string
	PyroscopeBasicAuthUser  string
	PyroscopeBasicAuthPass  string
	PyroscopeUploadRate     time.Duration
}

func Load() (Config, error) {
	return load(time.Now().UTC())
}

func load(now time.Time) (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    strings.TrimSpace(getEnv("APP_SERVICE_NAME", "soccer-registry")),
		ServiceVersion: strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		LogLevel:       logging.ParseLevel(strings.ToLower(strings.TrimSpace(getEnv("APP_LOG_LEVEL", "info")))),
		MigrationsDir:  strings.TrimSpace(getEnv("MIGRATIONS_DIR", "")),
		PipelineActor:  strings.TrimSpace(getEnv("PIPELINE_ACTOR", "registry-pipeline")),
	}

	cfg.LogFormat, err = parseLogFormat(getEnv("APP_LOG_FORMAT", string(logging.FormatJSON)))
	if err != nil {
		return Config{}, err
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", StoreDriverPostgres)))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.DBURL = strings.TrimSpace(getEnv("DB_URL", ""))
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
		if appEnv == EnvProd {
			return Config{}, fmt.Errorf("STORE_DRIVER=%s is not allowed in %s", StoreDriverMemory, EnvProd)
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q: valid values are %s, %s", cfg.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	if cfg.DBDisablePreparedBinary, err = strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "false")); err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	if cfg.DBTrace, err = strconv.ParseBool(getEnv("DB_TRACE_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parse DB_TRACE_ENABLED: %w", err)
	}

	if cfg.CacheEnabled, err = strconv.ParseBool(getEnv("CACHE_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "5m")); err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cfg.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	if cfg.IngestBatchSize, err = getEnvAsInt("INGEST_BATCH_SIZE", 500); err != nil {
		return Config{}, fmt.Errorf("parse INGEST_BATCH_SIZE: %w", err)
	}
	if cfg.IngestBatchSize < 1 {
		return Config{}, fmt.Errorf("INGEST_BATCH_SIZE must be >= 1")
	}
	if cfg.IngestSeasonYear, err = getEnvAsInt("INGEST_SEASON_YEAR", defaultSeasonYear(now)); err != nil {
		return Config{}, fmt.Errorf("parse INGEST_SEASON_YEAR: %w", err)
	}
	if cfg.IngestSeasonYear < 2000 || cfg.IngestSeasonYear > 2100 {
		return Config{}, fmt.Errorf("INGEST_SEASON_YEAR must be between 2000 and 2100")
	}

	cfg.Dedup = dedup.DefaultThresholds
	if cfg.Dedup.AutoMerge, err = getEnvAsFloat("DEDUP_AUTO_MERGE_THRESHOLD", cfg.Dedup.AutoMerge); err != nil {
		return Config{}, fmt.Errorf("parse DEDUP_AUTO_MERGE_THRESHOLD: %w", err)
	}
	if cfg.Dedup.Review, err = getEnvAsFloat("DEDUP_REVIEW_THRESHOLD", cfg.Dedup.Review); err != nil {
		return Config{}, fmt.Errorf("parse DEDUP_REVIEW_THRESHOLD: %w", err)
	}
	if cfg.Dedup.SameName, err = getEnvAsFloat("DEDUP_SAME_NAME_THRESHOLD", cfg.Dedup.SameName); err != nil {
		return Config{}, fmt.Errorf("parse DEDUP_SAME_NAME_THRESHOLD: %w", err)
	}
	if err := cfg.Dedup.Validate(); err != nil {
		return Config{}, fmt.Errorf("dedup thresholds: %w", err)
	}
	if cfg.DedupSampleSize, err = getEnvAsInt("DEDUP_SAMPLE_SIZE", 5); err != nil {
		return Config{}, fmt.Errorf("parse DEDUP_SAMPLE_SIZE: %w", err)
	}
	if cfg.DedupSampleSize < 0 {
		return Config{}, fmt.Errorf("DEDUP_SAMPLE_SIZE must be >= 0")
	}

	if cfg.MergeWorkers, err = getEnvAsInt("MERGE_WORKERS", 1); err != nil {
		return Config{}, fmt.Errorf("parse MERGE_WORKERS: %w", err)
	}
	if cfg.MergeWorkers < 1 || cfg.MergeWorkers > 64 {
		return Config{}, fmt.Errorf("MERGE_WORKERS must be between 1 and 64")
	}

	if cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	if cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false")); err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPass = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	if cfg.PyroscopeUploadRate, err = time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s")); err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if cfg.PyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	return cfg, nil
}

// defaultSeasonYear is the start year of the youth season running at now.
// Seasons start on August 1.
func defaultSeasonYear(now time.Time) int {
	if now.Month() >= time.August {
		return now.Year()
	}
	return now.Year() - 1
}

func parseLogFormat(v string) (logging.Format, error) {
	switch logging.Format(strings.ToLower(strings.TrimSpace(v))) {
	case logging.FormatJSON:
		return logging.FormatJSON, nil
	case logging.FormatConsole:
		return logging.FormatConsole, nil
	default:
		return "", fmt.Errorf("invalid APP_LOG_FORMAT %q: valid values are %s, %s", v, logging.FormatJSON, logging.FormatConsole)
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

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.ParseFloat(value, 64)
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
