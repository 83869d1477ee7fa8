package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port string

	DBDriver   string // postgres, mysql or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBLogLevel string

	JWTKey      string
	JWTTTLHours int
	SaltRound   int

	UploadDir            string
	MaxCertificateSizeMB int
	MaxSyllabusSizeMB    int
	SearchPhonetic       bool
	PublicBaseURL        string
	OrgName              string
	SweepSchedule        string
	NotifyWebhookURL     string
	SendGridAPIKey       string
	EmailSender          string
	DefaultAdminUsername string
	DefaultAdminPassword string
	DefaultAdminEmail    string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port: getEnv("PORT", "3000"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "certhub"),
		DBLogLevel: strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),

		JWTKey:      getEnv("JWT_SECRET_KEY", "defaultSecret"),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),
		SaltRound:   getEnvInt("SALT_ROUND", 10),

		UploadDir:            getEnv("UPLOAD_DIR", "uploads"),
		MaxCertificateSizeMB: getEnvInt("MAX_CERTIFICATE_SIZE_MB", 5),
		MaxSyllabusSizeMB:    getEnvInt("MAX_SYLLABUS_SIZE_MB", 10),
		SearchPhonetic:       getEnvBool("SEARCH_PHONETIC", true),
		PublicBaseURL:        strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		OrgName:              getEnv("ORG_NAME", "Gyanhub"),
		SweepSchedule:        getEnv("SWEEP_SCHEDULE", "0 3 * * *"),
		NotifyWebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
		SendGridAPIKey:       getEnv("SENDGRID_API_KEY", ""),
		EmailSender:          getEnv("EMAIL_SENDER", ""),
		DefaultAdminUsername: getEnv("ADMIN_USERNAME", ""),
		DefaultAdminPassword: getEnv("ADMIN_PASSWORD", ""),
		DefaultAdminEmail:    getEnv("ADMIN_EMAIL", ""),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	switch AppConfig.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		log.Printf("Warning: unknown DB_DRIVER %q, falling back to postgres.", AppConfig.DBDriver)
		AppConfig.DBDriver = "postgres"
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to bool: %v", key, err)
		return defaultValue
	}
	return boolValue
}
