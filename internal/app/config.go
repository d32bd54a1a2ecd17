package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/mentorbridge-backend/internal/data/db"
	"github.com/yungbote/mentorbridge-backend/internal/observability"
	"github.com/yungbote/mentorbridge-backend/internal/platform/openai"
	"github.com/yungbote/mentorbridge-backend/internal/platform/qdrant"
)

type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Postgres PostgresConfig           `mapstructure:"postgres"`
	Redis    RedisConfig              `mapstructure:"redis"`
	Vector   VectorConfig             `mapstructure:"vector"`
	OpenAI   OpenAIConfig             `mapstructure:"openai"`
	Chunking ChunkingConfig           `mapstructure:"chunking"`
	Matching MatchingConfig           `mapstructure:"matching"`
	Metrics  MetricsConfig            `mapstructure:"metrics"`
	Otel     observability.OtelConfig `mapstructure:"otel"`
	Log      LogConfig                `mapstructure:"log"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Manifest is read by POST /api/admin/rag/process-all.
	Manifest string `mapstructure:"manifest"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// SQLitePath replaces Postgres with an embedded database when set.
	SQLitePath string `mapstructure:"sqlite_path"`
}

func (c PostgresConfig) DB() db.Config {
	return db.Config{
		Host:       c.Host,
		Port:       c.Port,
		User:       c.User,
		Password:   c.Password,
		Name:       c.Name,
		SSLMode:    c.SSLMode,
		SQLitePath: c.SQLitePath,
	}
}

func (c PostgresConfig) Validate() error {
	if c.SQLitePath != "" {
		return nil
	}
	if strings.TrimSpace(c.Host) == "" || strings.TrimSpace(c.Name) == "" {
		return errors.New("postgres.host and postgres.name are required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("postgres.port must be positive, got %d", c.Port)
	}
	return nil
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	LockWait time.Duration `mapstructure:"lock_wait"`
}

type VectorConfig struct {
	Provider string         `mapstructure:"provider"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Pgvector PgvectorConfig `mapstructure:"pgvector"`
}

type QdrantConfig struct {
	URL              string        `mapstructure:"url"`
	APIKey           string        `mapstructure:"api_key"`
	Collection       string        `mapstructure:"collection"`
	VectorDim        int           `mapstructure:"vector_dim"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CreateCollection bool          `mapstructure:"create_collection"`
}

func (c QdrantConfig) Client() qdrant.Config {
	return qdrant.Config{
		URL:              strings.TrimSpace(c.URL),
		APIKey:           strings.TrimSpace(c.APIKey),
		Collection:       strings.TrimSpace(c.Collection),
		VectorDim:        c.VectorDim,
		Timeout:          c.Timeout,
		CreateCollection: c.CreateCollection,
	}
}

type PgvectorConfig struct {
	Table     string `mapstructure:"table"`
	VectorDim int    `mapstructure:"vector_dim"`
}

type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	EmbedModel        string        `mapstructure:"embed_model"`
	EmbedDims         int           `mapstructure:"embed_dims"`
	EmbedBatchSize    int           `mapstructure:"embed_batch_size"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
}

func (c OpenAIConfig) Client() openai.Config {
	return openai.Config{
		APIKey:         strings.TrimSpace(c.APIKey),
		BaseURL:        strings.TrimSpace(c.BaseURL),
		Model:          c.Model,
		EmbedModel:     c.EmbedModel,
		EmbedDims:      c.EmbedDims,
		EmbedBatchSize: c.EmbedBatchSize,
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
	}
}

type ChunkingConfig struct {
	MaxWords          int `mapstructure:"max_words"`
	IngestConcurrency int `mapstructure:"ingest_concurrency"`
}

type MatchingConfig struct {
	TopK int `mapstructure:"top_k"`
	// KeywordSeedFile adds keyword mappings on top of the built-in set.
	KeywordSeedFile string `mapstructure:"keyword_seed_file"`
}

type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ScrapeInterval time.Duration `mapstructure:"scrape_interval"`
}

type LogConfig struct {
	Mode      string `mapstructure:"mode"`
	Level     string `mapstructure:"level"`
	Redaction bool   `mapstructure:"redaction"`
	HashSalt  string `mapstructure:"hash_salt"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_bytes", int64(50<<20))
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.manifest", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.name", "mentorbridge")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.sqlite_path", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 5*time.Minute)
	v.SetDefault("redis.lock_wait", 2*time.Minute)

	v.SetDefault("vector.provider", string(VectorProviderQdrant))
	v.SetDefault("vector.qdrant.url", "http://localhost:6333")
	v.SetDefault("vector.qdrant.api_key", "")
	v.SetDefault("vector.qdrant.collection", qdrant.DefaultCollection)
	v.SetDefault("vector.qdrant.vector_dim", 1536)
	v.SetDefault("vector.qdrant.timeout", qdrant.DefaultTimeout)
	v.SetDefault("vector.qdrant.create_collection", true)
	v.SetDefault("vector.pgvector.table", "module_chunks")
	v.SetDefault("vector.pgvector.vector_dim", 1536)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", openai.DefaultBaseURL)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embed_model", "text-embedding-3-small")
	v.SetDefault("openai.embed_dims", 0)
	v.SetDefault("openai.embed_batch_size", 64)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.max_retries", 3)
	v.SetDefault("openai.generation_timeout", 60*time.Second)

	v.SetDefault("chunking.max_words", 800)
	v.SetDefault("chunking.ingest_concurrency", 2)

	v.SetDefault("matching.top_k", 5)
	v.SetDefault("matching.keyword_seed_file", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.scrape_interval", 10*time.Second)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "mentorbridge")
	v.SetDefault("otel.environment", "development")
	v.SetDefault("otel.version", "")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.sample_ratio", 0.1)

	v.SetDefault("log.mode", "auto")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.redaction", true)
	v.SetDefault("log.hash_salt", "")
}

// LoadConfig reads defaults, then the optional file at path, then the
// environment. Environment keys are the upper-cased config keys with dots
// replaced by underscores (VECTOR_QDRANT_URL, POSTGRES_HOST, ...).
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the sections every command needs. The OpenAI key is
// checked separately by commands that embed or generate.
func (c Config) Validate() error {
	if err := c.Postgres.Validate(); err != nil {
		return err
	}
	if _, err := resolveVectorProviderConfig(c.Vector, c.Postgres.SQLitePath == ""); err != nil {
		return err
	}
	if c.Chunking.MaxWords <= 0 {
		return fmt.Errorf("chunking.max_words must be positive, got %d", c.Chunking.MaxWords)
	}
	if c.Matching.TopK <= 0 {
		return fmt.Errorf("matching.top_k must be positive, got %d", c.Matching.TopK)
	}
	return nil
}
