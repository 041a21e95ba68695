package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	JWTSecret  string           `json:"jwt_secret"`
	CORSOrigin []string         `json:"cors_origin"`
	LogConfig  logger.LogConfig `json:"log_config"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	FileStore  FileStoreConfig  `json:"file_store"`
	AI         AIConfig         `json:"ai"`
	Fetch      FetchConfig      `json:"fetch"`
	Scoring    ScoringConfig    `json:"scoring"`
	Summarizer SummarizerConfig `json:"summarizer"`
	Workers    WorkerConfig     `json:"workers"`
	Jobs       JobConfig        `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider     string      `json:"provider"`
	Data         interface{} `json:"data"`
	Model        string      `json:"model"`
	EmbedModel   string      `json:"embed_model"`
	EmbeddingDim int         `json:"embedding_dim"`
	Temperature  float64     `json:"temperature"`
	Timeout      int         `json:"timeout"`
}

type FetchConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RenderRetries     int     `json:"render_retries"`
	UserAgent         string  `json:"user_agent"`
	MaxBodyBytes      int64   `json:"max_body_bytes"`
	MinMarkupLength   int     `json:"min_markup_length"`
	MinVisibleChars   int     `json:"min_visible_chars"`
	MinTextDensity    float64 `json:"min_text_density"`
	ExtractionTimeout int     `json:"extraction_timeout_seconds"`
}

type ScoringConfig struct {
	HeuristicWeight    float64 `json:"heuristic_weight"`
	DynamicWeight      float64 `json:"dynamic_weight"`
	PrototypeWeight    float64 `json:"prototype_weight"`
	CentroidWeight     float64 `json:"centroid_weight"`
	MinContentLength   int     `json:"min_content_length"`
	MaxEmbeddingLength int     `json:"max_embedding_length"`
	EmbedCacheSize     int     `json:"embed_cache_size"`
	DuplicateThreshold float64 `json:"duplicate_threshold"`
}

type SummarizerConfig struct {
	ChunkSize   int     `json:"chunk_size"`
	MaxRetries  int     `json:"max_retries"`
	Temperature float64 `json:"temperature"`
	MergeBatch  int     `json:"merge_batch"`
}

type WorkerConfig struct {
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	ReuseWindowHours    int `json:"reuse_window_hours"`
}

type JobConfig struct {
	DocumentPurgeSpec     string `json:"document_purge_spec"`
	DocumentKeepDays      int    `json:"document_keep_days"`
	PrototypePruneSpec    string `json:"prototype_prune_spec"`
	PrototypeMaxRows      int    `json:"prototype_max_rows"`
	EmbedCacheCleanupSpec string `json:"embed_cache_cleanup_spec"`
	EmbedCacheMaxAgeDays  int    `json:"embed_cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbeddingDim == 0 {
		// sizes the vector columns at migration time; changing it on an
		// existing database requires rebuilding those columns
		cfg.AI.EmbeddingDim = 384
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.3
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 120
	}
	applyFetchDefaults(&cfg.Fetch)
	applyScoringDefaults(&cfg.Scoring)
	applySummarizerDefaults(&cfg.Summarizer)
	if cfg.Workers.PollIntervalSeconds == 0 {
		cfg.Workers.PollIntervalSeconds = 300
	}
	if cfg.Workers.ReuseWindowHours == 0 {
		cfg.Workers.ReuseWindowHours = 24
	}
	if cfg.Jobs.DocumentKeepDays == 0 {
		cfg.Jobs.DocumentKeepDays = 30
	}
	if cfg.Jobs.PrototypeMaxRows == 0 {
		cfg.Jobs.PrototypeMaxRows = 1000
	}
	if cfg.Jobs.DocumentPurgeSpec == "" {
		cfg.Jobs.DocumentPurgeSpec = "0 4 * * *"
	}
	if cfg.Jobs.PrototypePruneSpec == "" {
		cfg.Jobs.PrototypePruneSpec = "30 4 * * *"
	}
	if cfg.Jobs.EmbedCacheCleanupSpec == "" {
		cfg.Jobs.EmbedCacheCleanupSpec = "0 5 * * *"
	}
	if cfg.Jobs.EmbedCacheMaxAgeDays == 0 {
		cfg.Jobs.EmbedCacheMaxAgeDays = 30
	}
	return &cfg, nil
}

func applyFetchDefaults(c *FetchConfig) {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.RenderRetries == 0 {
		c.RenderRetries = 2
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 5 * 1024 * 1024
	}
	if c.MinMarkupLength == 0 {
		c.MinMarkupLength = 200
	}
	if c.MinVisibleChars == 0 {
		c.MinVisibleChars = 300
	}
	if c.MinTextDensity == 0 {
		c.MinTextDensity = 0.05
	}
	if c.ExtractionTimeout == 0 {
		c.ExtractionTimeout = 45
	}
}

func applyScoringDefaults(c *ScoringConfig) {
	if c.HeuristicWeight == 0 && c.DynamicWeight == 0 && c.PrototypeWeight == 0 && c.CentroidWeight == 0 {
		c.HeuristicWeight = 0.40
		c.DynamicWeight = 0.30
		c.PrototypeWeight = 0.20
		c.CentroidWeight = 0.10
	}
	if c.MinContentLength == 0 {
		c.MinContentLength = 50
	}
	if c.MaxEmbeddingLength == 0 {
		c.MaxEmbeddingLength = 800
	}
	if c.EmbedCacheSize == 0 {
		c.EmbedCacheSize = 500
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = 0.98
	}
}

func applySummarizerDefaults(c *SummarizerConfig) {
	if c.ChunkSize == 0 {
		c.ChunkSize = 90000
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MergeBatch == 0 {
		c.MergeBatch = 5
	}
}
