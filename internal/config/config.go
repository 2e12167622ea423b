package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	ModelPath          string
	ConfidenceMin      float64
	NMSThreshold       float64
	ProcessingWorkers  int
	VideoFrameInterval int // process every Nth frame of an uploaded video

	UploadDirectory   string
	EvidenceDirectory string
	DatabasePath      string
	LogDirectory      string
	MaxUploadSizeMB   int64

	EvidenceBufferLimit   int
	EvidenceFlushInterval int // seconds

	PlateReader    string // "tesseract" or "remote"
	PlateAPIURL    string
	PlateAPIToken  string
	PlateRegions   string // comma separated region hints for the remote reader
	PlateLanguage  string // tesseract language code
	DefaultStation string // fallback location when the upload carries none

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func Load() *Config {
	// Optional .env, everything can also come straight from the environment.
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("PASSWORD", "trafficwatch"),

		ModelPath:          getEnv("MODEL_PATH", filepath.Join(".", "weights", "best.onnx")),
		ConfidenceMin:      getEnvAsFloat("CONFIDENCE_MIN", 0.25),
		NMSThreshold:       getEnvAsFloat("NMS_THRESHOLD", 0.45),
		ProcessingWorkers:  getEnvAsInt("PROCESSING_WORKERS", 3),
		VideoFrameInterval: getEnvAsInt("VIDEO_FRAME_INTERVAL", 15),

		UploadDirectory:   getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		EvidenceDirectory: getEnv("EVIDENCE_DIR", filepath.Join(".", "evidence")),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "violations.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		MaxUploadSizeMB:   getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 200),

		EvidenceBufferLimit:   getEnvAsInt("EVIDENCE_BUFFER_LIMIT", 16),
		EvidenceFlushInterval: getEnvAsInt("EVIDENCE_FLUSH_INTERVAL", 10),

		PlateReader:    getEnv("PLATE_READER", "tesseract"),
		PlateAPIURL:    getEnv("PLATE_API_URL", "https://api.platerecognizer.com/v1/plate-reader/"),
		PlateAPIToken:  getEnv("PLATE_API_TOKEN", ""),
		PlateRegions:   getEnv("PLATE_REGIONS", "in"),
		PlateLanguage:  getEnv("PLATE_LANGUAGE", "eng"),
		DefaultStation: getEnv("DEFAULT_STATION", "Traffic Point 1"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "challan@trafficwatch.local"),
	}
}

// MailerConfigured reports whether challan delivery has enough SMTP settings to work.
func (c *Config) MailerConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
