package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"
)

const DefaultPath = "config.yaml"

var ErrInvalidConfig = errors.New("invalid configuration")

type IndexConfig struct {
	Name      string `yaml:"name"`
	Dimension uint   `yaml:"dimension"`
	Metric    string `yaml:"metric"`
	Cloud     string `yaml:"cloud"`
	Region    string `yaml:"region"`
}

type PineconeConfig struct {
	ControllerURL       string `yaml:"controller_url"`
	Namespace           string `yaml:"namespace"`
	ReadyTimeoutSeconds int    `yaml:"ready_timeout_seconds"`
}

type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	UseTLS bool   `yaml:"use_tls"`
}

type VectorStoreConfig struct {
	Type     string         `yaml:"type"`
	Pinecone PineconeConfig `yaml:"pinecone"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
}

type IngestConfig struct {
	CSVPath      string `yaml:"csv_path"`
	TextColumn   string `yaml:"text_column"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size"`
	Segmenter    string `yaml:"segmenter"`
}

// ProviderConfig selects a provider by name. Model fields left empty
// fall back to the provider's own defaults.
type ProviderConfig struct {
	Provider      string `yaml:"provider"`
	BaseURL       string `yaml:"base_url"`
	DocumentModel string `yaml:"document_model"`
	QueryModel    string `yaml:"query_model"`
	Model         string `yaml:"model"`
	Dimensions    uint   `yaml:"dimensions"`
}

type RetrievalConfig struct {
	SearchType string  `yaml:"search_type"`
	K          int     `yaml:"k"`
	FetchK     int     `yaml:"fetch_k"`
	Lambda     float64 `yaml:"lambda"`
}

type EvaluationConfig struct {
	Fixture string         `yaml:"fixture"`
	Judge   ProviderConfig `yaml:"judge"`
	Metrics []string       `yaml:"metrics"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type TraceConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

type Config struct {
	Index       IndexConfig       `yaml:"index"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Embedding   ProviderConfig    `yaml:"embedding"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Evaluation  EvaluationConfig  `yaml:"evaluation"`
	Trace       TraceConfig       `yaml:"trace"`

	Keys Keys `yaml:"-"`
}

// Default returns the configuration both pipelines run with
// when no config file is present.
func Default() *Config {
	conf := preset()
	conf.applyDefaults()
	return &conf
}

// ReadConfig reads the yaml config at path and fills unset fields with defaults.
// A missing file at the default path is not an error.
func ReadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
			return Default(), nil
		}
		return nil, err
	}

	return Parse(file)
}

func Parse(data []byte) (*Config, error) {
	conf := preset()
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) Validate() error {
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			ErrInvalidConfig, c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Retrieval.FetchK < c.Retrieval.K {
		return fmt.Errorf("%w: fetch_k (%d) must not be smaller than k (%d)",
			ErrInvalidConfig, c.Retrieval.FetchK, c.Retrieval.K)
	}
	if c.Retrieval.Lambda < 0 || c.Retrieval.Lambda > 1 {
		return fmt.Errorf("%w: lambda must be within [0, 1], got %v", ErrInvalidConfig, c.Retrieval.Lambda)
	}
	return nil
}

// preset fills the fields whose zero value is a valid setting, so that
// only a missing key falls back to the default.
func preset() Config {
	var c Config
	c.Ingest.ChunkOverlap = 100
	c.Retrieval.Lambda = 0.5
	return c
}

func (c *Config) applyDefaults() {
	setDefault(&c.Index.Name, "drug-safety-index")
	setDefault(&c.Index.Dimension, 4096)
	setDefault(&c.Index.Metric, "cosine")
	setDefault(&c.Index.Cloud, "aws")
	setDefault(&c.Index.Region, "us-east-1")

	setDefault(&c.VectorStore.Type, "pinecone")
	setDefault(&c.VectorStore.Pinecone.ControllerURL, "https://api.pinecone.io")
	setDefault(&c.VectorStore.Pinecone.ReadyTimeoutSeconds, 300)
	setDefault(&c.VectorStore.Qdrant.Host, "localhost")
	setDefault(&c.VectorStore.Qdrant.Port, 6334)

	setDefault(&c.Ingest.CSVPath, "comprehensive_drug_safety_docs.csv")
	setDefault(&c.Ingest.TextColumn, "text")
	setDefault(&c.Ingest.ChunkSize, 1000)
	setDefault(&c.Ingest.BatchSize, 32)
	setDefault(&c.Ingest.Segmenter, "recursive")

	setDefault(&c.Embedding.Provider, "upstage")
	if c.Embedding.Provider == "upstage" {
		// the existing index embeds documents and queries with
		// different models
		setDefault(&c.Embedding.DocumentModel, "embedding-query")
		setDefault(&c.Embedding.QueryModel, "solar-embedding-1-large-query")
		setDefault(&c.Embedding.Dimensions, c.Index.Dimension)
	}

	setDefault(&c.Retrieval.SearchType, "mmr")
	setDefault(&c.Retrieval.K, 3)
	setDefault(&c.Retrieval.FetchK, max(20, c.Retrieval.K))

	setDefault(&c.Evaluation.Judge.Provider, "upstage")
	if c.Evaluation.Judge.Provider == "upstage" {
		setDefault(&c.Evaluation.Judge.Model, "solar-mini")
	}
	if len(c.Evaluation.Metrics) == 0 {
		c.Evaluation.Metrics = []string{"context_precision", "context_recall"}
	}

	setDefault(&c.Trace.Redis.TTLSeconds, 7*24*60*60)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
