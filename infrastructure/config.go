package infrastructure

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// Config holds all runtime settings, read from the environment.
type Config struct {
	Port        int
	BaseURL     string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	DatabaseDSN    string
	DatabaseDriver string

	AccessKey     string
	AdminUsername string
	AdminPassword string

	// Telephony provider credentials, used to fetch recordings and verify webhooks.
	AccountSID       string
	AuthToken        string
	ValidateWebhooks bool
	RecordingHosts   []string
	Greeting         string
	MaxRecordLength  int

	AudioStore     string
	AudioDir       string
	GCSBucket      string
	AzureAccount   string
	AzureKey       string
	AzureContainer string
	MaxUploadSize  int64

	SpeechEnabled  bool
	SpeechLanguage string

	DetectionRulesFile string

	Workers         int
	QueueBuffer     int
	JobTimeout      time.Duration
	ShutdownTimeout time.Duration

	NotificationService string
	NotificationToken   string
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		Port:        getEnvInt("PORT", 8000),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		AccessKey:     getEnv("ACCESS_KEY", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		AccountSID:       getEnv("TWILIO_ACCOUNT_SID", ""),
		AuthToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
		ValidateWebhooks: getEnvBool("VALIDATE_WEBHOOKS", true),
		RecordingHosts:   getEnvList("RECORDING_HOSTS", []string{"api.twilio.com"}),
		Greeting:         getEnv("CALL_GREETING", "Please state your name and the reason for your call after the beep."),
		MaxRecordLength:  getEnvInt("MAX_RECORD_LENGTH", 30),

		AudioStore:     getEnv("AUDIO_STORE", "local"),
		AudioDir:       getEnv("AUDIO_DIR", "./recordings"),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		AzureAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		AzureKey:       getEnv("AZURE_STORAGE_KEY", ""),
		AzureContainer: getEnv("AZURE_CONTAINER", "recordings"),

		SpeechEnabled:  getEnvBool("SPEECH_ENABLED", true),
		SpeechLanguage: getEnv("SPEECH_LANGUAGE", "en-US"),

		DetectionRulesFile: getEnv("DETECTION_RULES_FILE", ""),

		Workers:         getEnvInt("WORKERS", 4),
		QueueBuffer:     getEnvInt("QUEUE_BUFFER", 64),
		JobTimeout:      getEnvDuration("JOB_TIMEOUT", 5*time.Minute),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		NotificationService: strings.TrimRight(getEnv("NOTIFICATION_SERVICE", ""), "/"),
		NotificationToken:   getEnv("NOTIFICATION_TOKEN", ""),
	}

	size, err := units.FromHumanSize(getEnv("MAX_UPLOAD_SIZE", "25MB"))
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE: %w", err)
	}
	cfg.MaxUploadSize = size

	cfg.DatabaseDriver, cfg.DatabaseDSN, err = parseDSN(getEnv("DATABASE_DSN", getEnv("DB_CONNECTION_STRING", "sqlite3://./call-filter.db")))
	if err != nil {
		return nil, fmt.Errorf("DATABASE_DSN: %w", err)
	}

	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("ACCESS_KEY is required")
	}
	switch cfg.AudioStore {
	case "local":
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when AUDIO_STORE=gcs")
		}
	case "azure":
		if cfg.AzureAccount == "" || cfg.AzureKey == "" {
			return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required when AUDIO_STORE=azure")
		}
	default:
		return nil, fmt.Errorf("unsupported AUDIO_STORE %q", cfg.AudioStore)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("WORKERS must be at least 1")
	}

	return cfg, nil
}

// parseDSN detects the driver and returns a DSN the driver accepts.
// postgres:// URLs are converted to key/value form.
func parseDSN(dsn string) (driver, clean string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		clean, err = pq.ParseURL(dsn)
		return "postgres", clean, err
	case strings.HasPrefix(dsn, "sqlite3://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite3://"), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return "sqlite", dsn, nil
	default:
		return "postgres", dsn, nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
