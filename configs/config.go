package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type OAuthApp struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Gemini struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// Costs is the credit price table applied by the metered operations.
type Costs struct {
	Text  int64
	Image int64
	Post  int64
}

type Config struct {
	Port                  string
	LogLevel              string
	DBDriver              string
	PostgresURI           string
	SQLitePath            string
	RedisURI              string
	FrontendURL           string
	SupportEmail          string
	SecretKey             string
	TokenEncryptionKey    string
	Gemini                Gemini
	XCom                  OAuthApp
	LinkedIn              OAuthApp
	RazorpayWebhookSecret string
	StripeWebhookSecret   string
	R2                    R2
	DefaultCredits        int64
	Costs                 Costs
	ExternalCallTimeout   time.Duration
	PendingTxnTTL         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Port:               getEnv("PORT", "3000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "data/aygentx.db"),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		SupportEmail:       getEnv("SUPPORT_EMAIL", "support@aygentx.aydie.in"),
		SecretKey:          getEnv("SECRET_KEY", ""),
		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		Gemini: Gemini{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			TextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-pro"),
			ImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		},
		XCom: OAuthApp{
			ClientID:     getEnv("X_CLIENT_ID", ""),
			ClientSecret: getEnv("X_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("X_REDIRECT_URI", ""),
		},
		LinkedIn: OAuthApp{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		},
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		DefaultCredits: getEnvInt("DEFAULT_CREDITS", 10),
		Costs: Costs{
			Text:  getEnvInt("TEXT_COST", 1),
			Image: getEnvInt("IMAGE_COST", 3),
			Post:  getEnvInt("POST_COST", 1),
		},
		ExternalCallTimeout: getEnvDuration("EXTERNAL_CALL_TIMEOUT", 30*time.Second),
		PendingTxnTTL:       getEnvDuration("PENDING_TXN_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
