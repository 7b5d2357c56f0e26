package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	VAPIDPublicKey          string
	VAPIDPrivateKey         string
	VAPIDSubject            string
	WebhookToken            string
	PushWorkers             int
	PushMaxRetries          int
	PushQueueSize           int
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		VAPIDPublicKey:          getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:         getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:            getEnv("VAPID_SUBJECT", "mailto:admin@gemini-community.com"),
		WebhookToken:            getEnv("WEBHOOK_TOKEN", ""),
		PushWorkers:             getEnvInt("PUSH_WORKERS", 4),
		PushMaxRetries:          getEnvInt("PUSH_MAX_RETRIES", 3),
		PushQueueSize:           getEnvInt("PUSH_QUEUE_SIZE", 256),
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
