package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/ingest"
	"github.com/alan-mat/drugrag/internal/textsplit"
	"github.com/alan-mat/drugrag/internal/vector"
)

type fakeStore struct {
	exists   bool
	listed   int
	created  []vector.Collection
	upserts  [][]*vector.Point
	queries  int
	closeErr error
}

func (s *fakeStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	s.listed++
	return s.exists, nil
}

func (s *fakeStore) CreateCollection(ctx context.Context, c vector.Collection) error {
	s.created = append(s.created, c)
	s.exists = true
	return nil
}

func (s *fakeStore) Upsert(ctx context.Context, name string, points []*vector.Point) error {
	s.upserts = append(s.upserts, points)
	return nil
}

func (s *fakeStore) Query(ctx context.Context, params *vector.QueryParams) ([]*vector.ScoredPoint, error) {
	s.queries++
	return nil, nil
}

func (s *fakeStore) Close() error {
	return s.closeErr
}

func (s *fakeStore) calls() int {
	return s.listed + len(s.created) + len(s.upserts) + s.queries
}

type fakeEmbedder struct {
	dims  int
	calls int
	// reported overrides dims in GetDimensions when set
	reported int
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	e.calls++
	return make([]float32, e.dims), nil
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	e.calls++
	out := make([]*api.DocumentEmbedding, 0, len(docs))
	for _, d := range docs {
		vals := make([][]float32, len(d.Chunks))
		for i := range vals {
			vals[i] = make([]float32, e.dims)
		}
		out = append(out, &api.DocumentEmbedding{Title: d.Title, Chunks: d.Chunks, Values: vals})
	}
	return out, nil
}

func (e *fakeEmbedder) GetDimensions() uint {
	if e.reported != 0 {
		return uint(e.reported)
	}
	return uint(e.dims)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drugs.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return path
}

func newPipeline(t *testing.T, store *fakeStore, emb *fakeEmbedder, out *bytes.Buffer) *ingest.Pipeline {
	t.Helper()
	splitter, err := textsplit.NewRecursiveCharacter(1000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &ingest.Pipeline{
		Store:     store,
		Embedder:  emb,
		Segmenter: splitter,
		Collection: vector.Collection{
			Name:       "drug-safety-index",
			Dimensions: 8,
			Metric:     vector.MetricCosine,
			Cloud:      "aws",
			Region:     "us-east-1",
		},
		BatchSize: 2,
		Out:       out,
	}
}

func TestRunMissingColumnMakesNoCalls(t *testing.T) {
	path := writeCSV(t, "title,body\nAspirin,Do not combine with warfarin.\n")
	store := &fakeStore{}
	emb := &fakeEmbedder{dims: 8}
	var out bytes.Buffer

	_, err := newPipeline(t, store, emb, &out).Run(context.Background(), path)

	var missing ingest.ErrMissingColumn
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if missing.Column != "text" || len(missing.Available) != 2 {
		t.Errorf("unexpected error fields %+v", missing)
	}
	if store.calls() != 0 || emb.calls != 0 {
		t.Errorf("expected no store or embedder calls, got %d and %d", store.calls(), emb.calls)
	}
	if strings.Contains(out.String(), "end") {
		t.Errorf("end must not be printed on failure, got %q", out.String())
	}
}

func TestRunCreatesMissingCollectionOnce(t *testing.T) {
	// blank lines are not rows
	path := writeCSV(t, "text\nAspirin may cause bleeding.\nIbuprofen should be avoided in pregnancy.\n\nParacetamol overdose damages the liver.\n")
	store := &fakeStore{}
	emb := &fakeEmbedder{dims: 8}
	var out bytes.Buffer

	stats, err := newPipeline(t, store, emb, &out).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(store.created))
	}
	c := store.created[0]
	if c.Name != "drug-safety-index" || c.Dimensions != 8 || c.Metric != "cosine" || c.Cloud != "aws" || c.Region != "us-east-1" {
		t.Errorf("unexpected collection %+v", c)
	}
	if !stats.CollectionCreated {
		t.Errorf("expected stats to report the created collection")
	}

	if stats.Records != 3 || stats.Chunks != 3 || stats.Points != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}

	// batch size 2
	if len(store.upserts) != 2 || len(store.upserts[0]) != 2 || len(store.upserts[1]) != 1 {
		t.Errorf("unexpected upsert batches %d", len(store.upserts))
	}

	p := store.upserts[1][0]
	if p.Payload[vector.PayloadText] != "Paracetamol overdose damages the liver." {
		t.Errorf("unexpected chunk text %v", p.Payload[vector.PayloadText])
	}
	if p.Payload[vector.PayloadRow] != 2 || p.Payload[vector.PayloadTitle] != "drugs.csv#2" {
		t.Errorf("unexpected payload %v", p.Payload)
	}

	if out.String() != "start\nend\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunExistingCollectionIsNotCreated(t *testing.T) {
	path := writeCSV(t, "text\nAspirin may cause bleeding.\n")
	store := &fakeStore{exists: true}
	emb := &fakeEmbedder{dims: 8}

	stats, err := newPipeline(t, store, emb, &bytes.Buffer{}).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 0 || stats.CollectionCreated {
		t.Errorf("create must not be called for an existing collection")
	}
	if store.listed != 1 {
		t.Errorf("expected one listing, got %d", store.listed)
	}
}

func TestRunConfiguredDimensionMismatch(t *testing.T) {
	path := writeCSV(t, "text\nAspirin may cause bleeding.\n")
	store := &fakeStore{}
	emb := &fakeEmbedder{dims: 4}

	_, err := newPipeline(t, store, emb, &bytes.Buffer{}).Run(context.Background(), path)
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if store.calls() != 0 || emb.calls != 0 {
		t.Errorf("expected the mismatch before any store or embedder call, got %d and %d", store.calls(), emb.calls)
	}
}

func TestRunDimensionMismatch(t *testing.T) {
	path := writeCSV(t, "text\nAspirin may cause bleeding.\n")
	store := &fakeStore{exists: true}
	emb := &fakeEmbedder{dims: 4, reported: 8}

	_, err := newPipeline(t, store, emb, &bytes.Buffer{}).Run(context.Background(), path)
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if len(store.upserts) != 0 {
		t.Errorf("nothing may be upserted after a dimension mismatch")
	}
}

func TestRunLongRowIsChunked(t *testing.T) {
	long := strings.Repeat("금기 약물 정보 ", 300)
	path := writeCSV(t, "text\n\""+long+"\"\n")
	store := &fakeStore{exists: true}
	emb := &fakeEmbedder{dims: 8}

	stats, err := newPipeline(t, store, emb, &bytes.Buffer{}).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Chunks < 3 {
		t.Errorf("expected the row to be split into several chunks, got %d", stats.Chunks)
	}
	for _, batch := range store.upserts {
		for _, p := range batch {
			text := p.Payload[vector.PayloadText].(string)
			if n := len([]rune(text)); n > 1000 {
				t.Errorf("chunk of %d characters exceeds the chunk size", n)
			}
		}
	}
}
