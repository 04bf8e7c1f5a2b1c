package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"visioncloud-backend/internal/shared/telemetry"
)

// Minimum pacing between provider calls. Env overrides below these are raised to them.
const (
	MinSectionDelay      = 1 * time.Second
	MinRetryDelay        = 1500 * time.Millisecond
	MinTwoStepDelay      = 1 * time.Second
	MinFinalAttemptDelay = 2 * time.Second
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	PublicBaseURL   string
	UIBaseURL       string
	MaxUploadBytes  int64

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	S3PublicURL     string
	GCSBucket       string

	RecordStoreType string
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string

	VisionProvider        string
	VisionCredentialsFile string
	LLMProvider           string
	GeminiAPIKey          string
	GeminiTextModel       string
	GeminiImageModel      string
	OpenAIAPIKey          string
	OpenAIModel           string

	PipelineTimeout     time.Duration
	ProviderCallTimeout time.Duration
	SectionDelay        time.Duration
	RetryDelay          time.Duration
	TwoStepDelay        time.Duration
	FinalAttemptDelay   time.Duration
	// ProviderRatePerMinute caps generative calls across all pipelines; 0 disables the cap.
	ProviderRatePerMinute int
	ProxyCacheTTL         time.Duration

	PinterestAppID       string
	PinterestAppSecret   string
	PinterestRedirectURL string
	SessionTTL           time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			telemetry.Warn("config.dotenv_failed", map[string]any{"path": path, "error": err.Error()})
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	recordStore := normalizeRecordStore(getEnv("RECORD_STORE", ""), dbURL)

	if env == "production" && recordStore == "memory" {
		telemetry.Warn("config.memory_store", map[string]any{"env": env, "reason": "artworks will not survive restarts"})
	}

	port := getEnv("PORT", "8080")
	return Config{
		Port:            port,
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+strings.TrimPrefix(port, ":")), "/"),
		UIBaseURL:       strings.TrimRight(getEnv("UI_BASE_URL", "http://localhost:5173"), "/"),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		S3PublicURL:     getEnv("S3_PUBLIC_URL", ""),
		GCSBucket:       getEnv("GCS_BUCKET", ""),

		RecordStoreType: recordStore,
		DatabaseURL:     dbURL,
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "visioncloud"),

		VisionProvider:        strings.ToLower(getEnv("VISION_PROVIDER", "google")),
		VisionCredentialsFile: getEnv("VISION_CREDENTIALS_FILE", ""),
		LLMProvider:           strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", os.Getenv("GEMINI_KEY")),
		GeminiTextModel:       getEnv("GEMINI_TEXT_MODEL", "gemini-2.0-flash"),
		GeminiImageModel:      getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-exp-image-generation"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		PipelineTimeout:       getEnvDuration("PIPELINE_TIMEOUT", 10*time.Minute),
		ProviderCallTimeout:   getEnvDuration("PROVIDER_CALL_TIMEOUT", 90*time.Second),
		SectionDelay:          atLeast(getEnvDuration("SECTION_DELAY", MinSectionDelay), MinSectionDelay),
		RetryDelay:            atLeast(getEnvDuration("RETRY_DELAY", MinRetryDelay), MinRetryDelay),
		TwoStepDelay:          atLeast(getEnvDuration("TWO_STEP_DELAY", MinTwoStepDelay), MinTwoStepDelay),
		FinalAttemptDelay:     atLeast(getEnvDuration("FINAL_ATTEMPT_DELAY", MinFinalAttemptDelay), MinFinalAttemptDelay),
		ProviderRatePerMinute: int(getEnvInt64("PROVIDER_RATE_PER_MINUTE", 0)),
		ProxyCacheTTL:         getEnvDuration("PROXY_CACHE_TTL", 10*time.Minute),

		PinterestAppID:       getEnv("PINTEREST_APP_ID", ""),
		PinterestAppSecret:   getEnv("PINTEREST_APP_SECRET", ""),
		PinterestRedirectURL: getEnv("PINTEREST_REDIRECT_URI", getEnv("REDIRECT_URI", "")),
		SessionTTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func atLeast(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	default:
		return "local"
	}
}

func normalizeRecordStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "mongo", "mongodb":
		return "mongo"
	case "memory":
		return "memory"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "memory"
}
