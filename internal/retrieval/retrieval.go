package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/config"
	"github.com/alan-mat/drugrag/internal/provider"
	"github.com/alan-mat/drugrag/internal/vector"
)

const (
	SearchTypeSimilarity = "similarity"
	SearchTypeMMR        = "mmr"

	DefaultK      = 3
	DefaultFetchK = 20
	DefaultLambda = 0.5
)

var ErrInvalidSearchType = errors.New("unknown search type")

// Retriever returns the documents most relevant to a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]*api.ScoredDocument, error)
}

// New builds the retriever selected by conf.SearchType.
func New(conf config.RetrievalConfig, store vector.Store, embedder provider.Embedder, collection string) (Retriever, error) {
	switch conf.SearchType {
	case SearchTypeSimilarity:
		return &SimilarityRetriever{
			Store:      store,
			Embedder:   embedder,
			Collection: collection,
			K:          conf.K,
		}, nil
	case "", SearchTypeMMR:
		lambda := conf.Lambda
		return &MMRRetriever{
			Store:      store,
			Embedder:   embedder,
			Collection: collection,
			K:          conf.K,
			FetchK:     conf.FetchK,
			Lambda:     &lambda,
		}, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidSearchType, conf.SearchType)
	}
}

type SimilarityRetriever struct {
	Store      vector.Store
	Embedder   provider.Embedder
	Collection string
	K          int
}

func (r *SimilarityRetriever) Retrieve(ctx context.Context, query string) ([]*api.ScoredDocument, error) {
	k := r.K
	if k <= 0 {
		k = DefaultK
	}

	vec, err := r.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query '%s': %w", query, err)
	}

	points, err := r.Store.Query(ctx, vector.NewQueryParams(
		r.Collection,
		vec,
		vector.WithPayload(true),
		vector.WithLimit(uint(k)),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to get results for query '%s': %w", query, err)
	}

	return documents(points), nil
}

// MMRRetriever fetches FetchK candidates and selects K of them by maximal
// marginal relevance. Lambda 1 ranks by relevance only, lambda 0 by
// diversity only. Unset fields fall back to the defaults.
type MMRRetriever struct {
	Store      vector.Store
	Embedder   provider.Embedder
	Collection string
	K          int
	FetchK     int
	Lambda     *float64
}

func (r *MMRRetriever) Retrieve(ctx context.Context, query string) ([]*api.ScoredDocument, error) {
	k, fetchK := r.K, r.FetchK
	if k <= 0 {
		k = DefaultK
	}
	if fetchK < k {
		fetchK = max(DefaultFetchK, k)
	}
	lambda := DefaultLambda
	if r.Lambda != nil {
		lambda = *r.Lambda
	}

	vec, err := r.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query '%s': %w", query, err)
	}

	points, err := r.Store.Query(ctx, vector.NewQueryParams(
		r.Collection,
		vec,
		vector.WithPayload(true),
		vector.WithVectors(true),
		vector.WithLimit(uint(fetchK)),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to get results for query '%s': %w", query, err)
	}

	candidates := make([][]float32, 0, len(points))
	usable := make([]*vector.ScoredPoint, 0, len(points))
	for _, p := range points {
		if len(p.Vector) == 0 {
			slog.Warn("retrieved point has no vector, skipping...", "id", p.ID)
			continue
		}
		candidates = append(candidates, p.Vector)
		usable = append(usable, p)
	}

	selected := MaximalMarginalRelevance(vec, candidates, lambda, k)

	picked := make([]*vector.ScoredPoint, 0, len(selected))
	for _, i := range selected {
		picked = append(picked, usable[i])
	}

	slog.Debug("mmr selection", "query", query, "candidates", len(usable), "selected", selected)
	return documents(picked), nil
}

func documents(points []*vector.ScoredPoint) []*api.ScoredDocument {
	docs := make([]*api.ScoredDocument, 0, len(points))
	for _, p := range points {
		if _, ok := p.Payload[vector.PayloadText]; !ok {
			slog.Warn("malformed retrieved context point: missing 'text' field in payload", "id", p.ID, "payload", p.Payload)
			continue
		}
		docs = append(docs, p.Document())
	}
	return docs
}
