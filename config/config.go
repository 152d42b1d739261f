package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultHuggingFaceURL = "https://m6rebwzf26vlh38c.us-east-1.aws.endpoints.huggingface.cloud"

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// News-Provider. Der API-Key wird erst beim Aufruf validiert, damit der
	// Fehler die fehlende Einstellung beim Namen nennen kann.
	NewsAPIKey  string `envconfig:"NEWS_API_KEY"`
	NewsBaseURL string `envconfig:"NEWS_API_BASE_URL" default:"https://newsapi.org/v2/everything"`
	NewsPage    string `envconfig:"NEWSDATA_PAGE"`
	MaxArticles int    `envconfig:"MAX_ARTICLES_PER_TOPIC" default:"5"`
	Topics      string `envconfig:"TOPICS" default:"Technology,Climate,Economy,Health,Diplomacy,Culture"`

	// S3-Ablage für Artikeltexte.
	S3Bucket   string `envconfig:"AWS_S3_BUCKET"`
	S3Region   string `envconfig:"AWS_REGION"`
	S3Endpoint string `envconfig:"AWS_S3_ENDPOINT"`
	S3Key      string `envconfig:"AWS_S3_KEY"`
	S3Secret   string `envconfig:"AWS_S3_SECRET"`
	PresignTTL string `envconfig:"S3_PRESIGN_TTL"`

	// Hugging-Face-Inference-Endpoint für das Bias-Scoring.
	HFToken       string `envconfig:"HF_TOKEN"`
	HFLegacyToken string `envconfig:"HUGGINGFACE_API_TOKEN"`
	HFEndpointURL string `envconfig:"HUGGINGFACE_ENDPOINT_URL"`
	HFModelURL    string `envconfig:"HUGGINGFACE_MODEL_URL"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 0 * * *"`
}

// ConfigError meldet eine fehlende Pflicht-Einstellung beim Namen.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s must be set", e.Setting)
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// TopicList zerlegt die konfigurierte Topic-Liste in einzelne Topics.
func (c *Config) TopicList() []string {
	var topics []string
	for _, topic := range strings.Split(c.Topics, ",") {
		if trimmed := strings.TrimSpace(topic); trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	return topics
}

// PresignDuration parst die konfigurierte Gültigkeitsdauer der Abruf-URLs.
// Unlesbare oder fehlende Werte fallen auf 24h zurück.
func (c *Config) PresignDuration() time.Duration {
	if ttlStr := strings.TrimSpace(c.PresignTTL); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil && ttl > 0 {
			return ttl
		}
	}
	return 24 * time.Hour
}

// ValidateIngest prüft die für einen Ingest-Lauf nötigen Einstellungen.
func (c *Config) ValidateIngest() error {
	if strings.TrimSpace(c.NewsAPIKey) == "" {
		return &ConfigError{Setting: "NEWS_API_KEY"}
	}
	if strings.TrimSpace(c.S3Bucket) == "" || strings.TrimSpace(c.S3Region) == "" {
		return &ConfigError{Setting: "AWS_S3_BUCKET and AWS_REGION"}
	}
	return nil
}

// HuggingFaceToken liefert den Inference-Token; der ältere Variablenname
// bleibt als Fallback unterstützt.
func (c *Config) HuggingFaceToken() string {
	if token := strings.TrimSpace(c.HFToken); token != "" {
		return token
	}
	return strings.TrimSpace(c.HFLegacyToken)
}

// HuggingFaceURL liefert die Endpoint-URL mit eingebautem Default.
func (c *Config) HuggingFaceURL() string {
	if url := strings.TrimSpace(c.HFEndpointURL); url != "" {
		return url
	}
	if url := strings.TrimSpace(c.HFModelURL); url != "" {
		return url
	}
	return defaultHuggingFaceURL
}

// ValidateBias prüft die für das Bias-Scoring nötigen Einstellungen.
func (c *Config) ValidateBias() error {
	if c.HuggingFaceToken() == "" {
		return &ConfigError{Setting: "HF_TOKEN or HUGGINGFACE_API_TOKEN"}
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
