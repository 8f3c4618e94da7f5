package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadENV loads environment variables from .env unless GO_ENV says otherwise
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// Inference gateway configuration
	INFERENCE_API_KEY string
	INFERENCE_MODEL   string
	INFERENCE_TIMEOUT time.Duration
	// Chunked generation configuration
	MAX_CONCURRENT_CHUNKS int
	PAGES_PER_CHUNK       int
	// Prompt template configuration
	PROMPT_DIR     string
	PROMPT_VERSION string
	// Output language for generated artifacts
	OUTPUT_LANGUAGE string
	// Spaces (S3-compatible) object storage
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_BUCKET     string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	maxConcurrent, err := strconv.Atoi(os.Getenv("MAX_CONCURRENT_CHUNKS"))
	if err != nil || maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	pagesPerChunk, err := strconv.Atoi(os.Getenv("PAGES_PER_CHUNK"))
	if err != nil || pagesPerChunk <= 0 {
		pagesPerChunk = 40
	}

	inferenceTimeout := 300 * time.Second
	if secs, err := strconv.Atoi(os.Getenv("INFERENCE_TIMEOUT_SECONDS")); err == nil && secs > 0 {
		inferenceTimeout = time.Duration(secs) * time.Second
	}

	promptDir := os.Getenv("PROMPT_DIR")
	if promptDir == "" {
		promptDir = "prompts"
	}

	promptVersion := os.Getenv("PROMPT_VERSION")
	if promptVersion == "" {
		promptVersion = "latest"
	}

	language := os.Getenv("OUTPUT_LANGUAGE")
	if language == "" {
		language = "English"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// Inference
		INFERENCE_API_KEY: os.Getenv("INFERENCE_API_KEY"),
		INFERENCE_MODEL:   os.Getenv("INFERENCE_MODEL"),
		INFERENCE_TIMEOUT: inferenceTimeout,
		// Chunking
		MAX_CONCURRENT_CHUNKS: maxConcurrent,
		PAGES_PER_CHUNK:       pagesPerChunk,
		// Prompts
		PROMPT_DIR:     promptDir,
		PROMPT_VERSION: promptVersion,
		// Language
		OUTPUT_LANGUAGE: language,
		// Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_BUCKET:     os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:     os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
	}

	return envVariables, nil
}
