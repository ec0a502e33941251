package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alan-mat/drugrag/internal/config"
)

func TestDefault(t *testing.T) {
	conf := config.Default()

	if conf.Index.Name != "drug-safety-index" {
		t.Errorf("unexpected index name '%s'", conf.Index.Name)
	}
	if conf.Index.Dimension != 4096 {
		t.Errorf("expected dimension 4096, got %d", conf.Index.Dimension)
	}
	if conf.Index.Metric != "cosine" || conf.Index.Cloud != "aws" || conf.Index.Region != "us-east-1" {
		t.Errorf("unexpected index deployment %+v", conf.Index)
	}
	if conf.Ingest.ChunkSize != 1000 || conf.Ingest.ChunkOverlap != 100 {
		t.Errorf("unexpected chunking %d/%d", conf.Ingest.ChunkSize, conf.Ingest.ChunkOverlap)
	}
	if conf.Ingest.TextColumn != "text" {
		t.Errorf("unexpected text column '%s'", conf.Ingest.TextColumn)
	}
	if conf.Retrieval.SearchType != "mmr" || conf.Retrieval.K != 3 {
		t.Errorf("unexpected retrieval config %+v", conf.Retrieval)
	}
	if len(conf.Evaluation.Metrics) != 2 {
		t.Errorf("expected two default metrics, got %v", conf.Evaluation.Metrics)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
index:
  name: test-index
  dimension: 1024
vector_store:
  type: qdrant
  qdrant:
    host: qdrant.local
retrieval:
  k: 5
evaluation:
  judge:
    provider: cohere
`)

	conf, err := config.Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conf.Index.Name != "test-index" {
		t.Errorf("expected index 'test-index', got '%s'", conf.Index.Name)
	}
	if conf.Index.Dimension != 1024 {
		t.Errorf("expected dimension 1024, got %d", conf.Index.Dimension)
	}
	if conf.Embedding.Dimensions != 1024 {
		t.Errorf("embedding dimensions should follow the index, got %d", conf.Embedding.Dimensions)
	}
	if conf.VectorStore.Type != "qdrant" || conf.VectorStore.Qdrant.Host != "qdrant.local" {
		t.Errorf("unexpected vector store %+v", conf.VectorStore)
	}
	if conf.VectorStore.Qdrant.Port != 6334 {
		t.Errorf("expected default qdrant port, got %d", conf.VectorStore.Qdrant.Port)
	}
	if conf.Retrieval.K != 5 || conf.Retrieval.FetchK != 20 {
		t.Errorf("unexpected retrieval config %+v", conf.Retrieval)
	}
	if conf.Evaluation.Judge.Model != "" {
		t.Errorf("judge model must be left to the provider default, got '%s'", conf.Evaluation.Judge.Model)
	}
	if conf.Index.Metric != "cosine" {
		t.Errorf("unset fields must keep defaults, got metric '%s'", conf.Index.Metric)
	}
}

func TestParseExplicitZero(t *testing.T) {
	conf, err := config.Parse([]byte("ingest:\n  chunk_overlap: 0\nretrieval:\n  lambda: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Ingest.ChunkOverlap != 0 {
		t.Errorf("expected an explicit chunk overlap of 0 to be kept, got %d", conf.Ingest.ChunkOverlap)
	}
	if conf.Retrieval.Lambda != 0 {
		t.Errorf("expected an explicit lambda of 0 to be kept, got %v", conf.Retrieval.Lambda)
	}

	conf, err = config.Parse([]byte("retrieval:\n  search_type: mmr\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Ingest.ChunkOverlap != 100 || conf.Retrieval.Lambda != 0.5 {
		t.Errorf("missing keys must keep their defaults, got overlap %d, lambda %v",
			conf.Ingest.ChunkOverlap, conf.Retrieval.Lambda)
	}
}

func TestParseFetchKFollowsK(t *testing.T) {
	conf, err := config.Parse([]byte("retrieval:\n  k: 30\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Retrieval.FetchK != 30 {
		t.Errorf("expected fetch_k to grow with k, got %d", conf.Retrieval.FetchK)
	}

	if _, err := config.Parse([]byte("retrieval:\n  k: 30\n  fetch_k: 10\n")); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for an explicit fetch_k below k, got %v", err)
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := config.Parse([]byte("ingest:\n  chunk_size: 100\n  chunk_overlap: 200\n"))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = config.Parse([]byte("index: [not, a, map]"))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for malformed yaml, got %v", err)
	}
}

func TestReadConfigMissing(t *testing.T) {
	_, err := config.ReadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config path")
	}
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drugrag.yaml")
	if err := os.WriteFile(path, []byte("ingest:\n  csv_path: data/docs.csv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	conf, err := config.ReadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Ingest.CSVPath != "data/docs.csv" {
		t.Errorf("expected csv path 'data/docs.csv', got '%s'", conf.Ingest.CSVPath)
	}
}

func TestKeysForProvider(t *testing.T) {
	t.Setenv("UPSTAGE_API_KEY", "up-key")
	t.Setenv("PINECONE_API_KEY", "pc-key")

	keys := config.KeysFromEnv()
	if keys.ForProvider("upstage") != "up-key" {
		t.Errorf("unexpected upstage key '%s'", keys.ForProvider("upstage"))
	}
	if keys.ForProvider("pinecone") != "pc-key" {
		t.Errorf("unexpected pinecone key '%s'", keys.ForProvider("pinecone"))
	}
	if keys.ForProvider("unknown") != "" {
		t.Error("expected empty key for unknown provider")
	}
}
