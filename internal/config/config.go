package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-large"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1024"`

	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-2.0-flash"`

	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"10s"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"30s"`

	ChunkThreshold int `envconfig:"CHUNK_THRESHOLD" default:"2000"`
	ChunkSize      int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap   int `envconfig:"CHUNK_OVERLAP" default:"200"`

	RetrieveLimit    int `envconfig:"RETRIEVE_LIMIT" default:"4"`
	MaxQuestionChars int `envconfig:"MAX_QUESTION_CHARS" default:"2000"`

	IngestWorkers   int     `envconfig:"INGEST_WORKERS" default:"4"`
	EmbedRatePerSec float64 `envconfig:"EMBED_RATE_PER_SEC" default:"5"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"sentra-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Bootstrap: create initial user and access token on startup
	InitUserName string `envconfig:"INIT_USER_NAME"`
	InitToken    string `envconfig:"INIT_TOKEN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SENTRA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	// envconfig's required tag only fires when the variable is absent, not
	// when it is set to an empty string.
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ChunkSize <= cfg.ChunkOverlap {
		return nil, fmt.Errorf("chunk size (%d) must be greater than overlap (%d)", cfg.ChunkSize, cfg.ChunkOverlap)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}
