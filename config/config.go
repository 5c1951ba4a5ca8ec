package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBName    string
	JWTKey    string
	SaltRound int

	UploadDir string // local media storage directory

	EmailSender string
	Password    string // SMTP Password

	ChapaApiURL        string // payment gateway base URL
	ChapaSecretKey     string // payment gateway secret key
	ChapaCurrency      string // charge currency
	ChapaTimeoutSec    int    // outbound gateway call timeout (seconds)
	PaymentCallbackURL string // public URL the gateway calls back to
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	// Initialize AppConfig with values from environment variables
	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		DBName:    getEnv("DB_NAME", "learnhub"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		UploadDir: getEnv("UPLOAD_DIR", "./public/uploads"),

		EmailSender: getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:    getEnv("PASSWORD", "defaultSecret"),

		ChapaApiURL:        getEnv("CHAPA_API_URL", "https://api.chapa.co/v1"),
		ChapaSecretKey:     getEnv("CHAPA_SECRET_KEY", "defaultSecret"),
		ChapaCurrency:      getEnv("CHAPA_CURRENCY", "ETB"),
		ChapaTimeoutSec:    getEnvInt("CHAPA_TIMEOUT_SEC", 5),
		PaymentCallbackURL: getEnv("PAYMENT_CALLBACK_URL", "http://localhost:3000/payment/callback"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.ChapaSecretKey == "defaultSecret" {
		log.Println("Warning: Using default CHAPA_SECRET_KEY. Gateway calls will be rejected.")
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
