package config

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
}

type EmbeddingsConfig struct {
	URL       string
	APIKey    string
	Model     string
	Dimension int
}

type RedisConfig struct {
	Addr     string
	Password string
}

type Config struct {
	DB_URL             string
	Port               string
	JWTSecret          string
	TokenExpireMinutes int
	Environment        string
	CorsConfig         cors.Options
	S3                 S3Config
	Redis              RedisConfig
	Embeddings         EmbeddingsConfig
	WorkerConcurrency  int
}

// Load reads configuration from the environment, falling back to an optional
// .env file. Callers own the returned Config and pass it down explicitly.
func Load() *Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return &Config{
		DB_URL:             getEnv("DB_URL", ""),
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		TokenExpireMinutes: getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTE", 30),
		Environment:        getEnv("ENV", "development"),
		CorsConfig:         CorsConfig(),
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", "http://127.0.0.1:9000"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
			BucketName:      getEnv("S3_BUCKET_NAME", "files"),
			Region:          getEnv("S3_REGION", "auto"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Embeddings: EmbeddingsConfig{
			URL:       getEnv("EMBEDDINGS_URL", "https://openrouter.ai/api/v1/embeddings"),
			APIKey:    getEnv("OPENROUTER_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "qwen/qwen3-embedding-8b"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 4096),
		},
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, fallback)
		return fallback
	}
	return n
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
