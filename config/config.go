// Package config loads the application configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// LECTERN_* environment variables. A .env file in the working directory is
// loaded into the environment first when present. The result is validated
// before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/chunk"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/quiz"
	"github.com/poiesic/lectern/rag"
	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/topics"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LECTERN_"

// Index kinds.
const (
	IndexQdrant = "qdrant"
	IndexMemory = "memory"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the application configuration.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	VectorIndex VectorIndexConfig `toml:"vector_index"`
	AI          AIConfig          `toml:"ai"`
	Ingestion   IngestionConfig   `toml:"ingestion"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
}

type StorageConfig struct {
	Path     string `toml:"path" validate:"required_without=InMemory"`
	InMemory bool   `toml:"in_memory"`
}

type VectorIndexConfig struct {
	Kind      string `toml:"kind" validate:"oneof=qdrant memory"`
	URL       string `toml:"url" validate:"required_if=Kind qdrant"`
	APIKey    string `toml:"api_key"`
	Dimension int    `toml:"dimension" validate:"gte=1"`
}

type AIConfig struct {
	EmbeddingHost     string  `toml:"embedding_host" validate:"required,url"`
	ChatHost          string  `toml:"chat_host" validate:"required,url"`
	EmbeddingModel    string  `toml:"embedding_model" validate:"required"`
	ChatModel         string  `toml:"chat_model" validate:"required"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
}

type IngestionConfig struct {
	BatchSize    int `toml:"batch_size" validate:"gte=1"`
	Concurrency  int `toml:"concurrency" validate:"gte=1"`
	MaxAttempts  int `toml:"max_attempts" validate:"gte=1"`
	ChunkSize    int `toml:"chunk_size" validate:"gte=1"`
	ChunkOverlap int `toml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	Workers      int `toml:"workers" validate:"gte=1"`
	TopicChunks  int `toml:"topic_chunks" validate:"gte=1"`
	TopicWorkers int `toml:"topic_workers" validate:"gte=1"`
}

type RetrievalConfig struct {
	ChatBudget    int  `toml:"chat_budget" validate:"gte=1"`
	MinPerQuery   int  `toml:"min_per_query" validate:"gte=1"`
	Expansions    int  `toml:"expansions" validate:"gte=0"`
	Expand        bool `toml:"expand"`
	PartialResult bool `toml:"partial_results"`
	HistoryLimit  int  `toml:"history_limit" validate:"gte=0"`
	QuizBudget    int  `toml:"quiz_budget" validate:"gte=1"`
	SummaryChunks int  `toml:"summary_chunks" validate:"gte=1"`
}

// Default returns the built-in configuration: a local badger store, a local
// Qdrant and the default AI hosts.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return &Config{
		Storage: StorageConfig{Path: "lectern.db"},
		VectorIndex: VectorIndexConfig{
			Kind:      IndexQdrant,
			URL:       "http://localhost:6333",
			Dimension: ingestion.DefaultDimension,
		},
		AI: AIConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			ChatHost:       aiDefaults.ChatHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ChatModel:      aiDefaults.ChatModel,
		},
		Ingestion: IngestionConfig{
			BatchSize:    ingestion.DefaultBatchSize,
			Concurrency:  ingestion.DefaultConcurrency,
			MaxAttempts:  ingestion.DefaultMaxAttempts,
			ChunkSize:    chunk.DefaultSize,
			ChunkOverlap: chunk.DefaultOverlap,
			Workers:      workers,
			TopicChunks:  topics.DefaultLeadingChunks,
			TopicWorkers: topics.DefaultConcurrency,
		},
		Retrieval: RetrievalConfig{
			ChatBudget:    rag.DefaultBudget,
			MinPerQuery:   retrieval.DefaultMinPerQuery,
			Expansions:    retrieval.DefaultExpansions,
			Expand:        true,
			HistoryLimit:  rag.DefaultHistoryLimit,
			QuizBudget:    quiz.DefaultBudget,
			SummaryChunks: rag.DefaultSummaryChunks,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig converts the [ai] section into a normalized provider config.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithRequestsPerSecond(c.AI.RequestsPerSecond),
	)
	cfg.Normalize()
	return cfg
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"STORAGE_PATH":       &cfg.Storage.Path,
		"INDEX_KIND":         &cfg.VectorIndex.Kind,
		"QDRANT_URL":         &cfg.VectorIndex.URL,
		"QDRANT_API_KEY":     &cfg.VectorIndex.APIKey,
		"AI_EMBEDDING_HOST":  &cfg.AI.EmbeddingHost,
		"AI_CHAT_HOST":       &cfg.AI.ChatHost,
		"AI_EMBEDDING_MODEL": &cfg.AI.EmbeddingModel,
		"AI_CHAT_MODEL":      &cfg.AI.ChatModel,
		"AI_API_KEY":         &cfg.AI.APIKey,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"EMBEDDING_DIMENSION": &cfg.VectorIndex.Dimension,
		"BATCH_SIZE":          &cfg.Ingestion.BatchSize,
		"CONCURRENCY":         &cfg.Ingestion.Concurrency,
		"MAX_ATTEMPTS":        &cfg.Ingestion.MaxAttempts,
		"WORKERS":             &cfg.Ingestion.Workers,
		"TOPIC_WORKERS":       &cfg.Ingestion.TopicWorkers,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "AI_REQUESTS_PER_SECOND"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sAI_REQUESTS_PER_SECOND: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.AI.RequestsPerSecond = rps
	}
	if v, ok := lookup(EnvPrefix + "STORAGE_IN_MEMORY"); ok && v != "" {
		inMemory, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sSTORAGE_IN_MEMORY: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		cfg.Storage.InMemory = inMemory
	}
	return nil
}
