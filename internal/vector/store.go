// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/config"
	"github.com/alan-mat/drugrag/internal/registry"
	"github.com/google/uuid"
)

var (
	ErrInvalidStoreType      = errors.New("no vector store found for given type")
	ErrFailedStoreInitialize = errors.New("failed to initialise vector store")
	ErrDimensionMismatch     = errors.New("vector dimension does not match index dimension")
)

const (
	MetricCosine     = "cosine"
	MetricDotProduct = "dotproduct"
	MetricEuclidean  = "euclidean"
)

// Payload keys written for every point.
const (
	PayloadText   = "text"
	PayloadTitle  = "title"
	PayloadSource = "source"
	PayloadRow    = "row"
)

type Store interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, collection Collection) error

	Upsert(ctx context.Context, collectionName string, points []*Point) error

	Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error)

	Close() error
}

type StoreFactory func(conf config.VectorStoreConfig, keys config.Keys) (Store, error)

var stores = registry.New[string, StoreFactory]()

func init() {
	stores.RegisterMany(
		registry.Entry[string, StoreFactory]{Key: "pinecone", Value: newPineconeFromConfig},
		registry.Entry[string, StoreFactory]{Key: "qdrant", Value: newQdrantFromConfig},
	)
}

// NewStore builds the store named by conf.Type.
func NewStore(conf config.VectorStoreConfig, keys config.Keys) (Store, error) {
	factory, ok := stores.Get(conf.Type)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (available: %v)", ErrInvalidStoreType, conf.Type, stores.List())
	}

	store, err := factory(conf, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedStoreInitialize, err)
	}
	return store, nil
}

func newPineconeFromConfig(conf config.VectorStoreConfig, keys config.Keys) (Store, error) {
	return NewPineconeStore(PineconeConfig{
		APIKey:        keys.Pinecone,
		ControllerURL: conf.Pinecone.ControllerURL,
		Namespace:     conf.Pinecone.Namespace,
		ReadyTimeout:  time.Duration(conf.Pinecone.ReadyTimeoutSeconds) * time.Second,
	})
}

func newQdrantFromConfig(conf config.VectorStoreConfig, keys config.Keys) (Store, error) {
	return NewQdrantStore(QdrantConfig{
		Host:   conf.Qdrant.Host,
		Port:   conf.Qdrant.Port,
		APIKey: keys.Qdrant,
		UseTLS: conf.Qdrant.UseTLS,
	})
}

// Collection describes an index. Cloud and Region are only used
// by hosted stores that place indexes explicitly.
type Collection struct {
	Name       string
	Dimensions uint
	Metric     string
	Cloud      string
	Region     string
}

type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type ScoredPoint struct {
	ID      string
	Score   float32
	Vector  []float32
	Payload map[string]string
}

// Text returns the chunk text stored with the point.
func (sp ScoredPoint) Text() string {
	return sp.Payload[PayloadText]
}

// Document converts the point into a scored document.
func (sp ScoredPoint) Document() *api.ScoredDocument {
	return &api.ScoredDocument{
		Content: sp.Payload[PayloadText],
		Score:   float64(sp.Score),
		Title:   sp.Payload[PayloadTitle],
		Source:  sp.Payload[PayloadSource],
	}
}

// CreatePoints builds one point per embedded chunk. The row is taken from
// rows by document index when present.
func CreatePoints(docs []*api.DocumentEmbedding, source string, rows []int) []*Point {
	n := 0
	for _, doc := range docs {
		n += len(doc.Chunks)
	}

	points := make([]*Point, 0, n)
	for di, doc := range docs {
		for i := range len(doc.Chunks) {
			payload := map[string]any{
				PayloadTitle: doc.Title,
				PayloadText:  doc.Chunks[i],
			}
			if source != "" {
				payload[PayloadSource] = source
			}
			if di < len(rows) {
				payload[PayloadRow] = rows[di]
			}

			points = append(points, &Point{
				ID:      uuid.NewString(),
				Vector:  doc.Values[i],
				Payload: payload,
			})
		}
	}
	return points
}

// ValidateDimensions checks that every chunk has exactly one vector
// of the given dimension.
func ValidateDimensions(docs []*api.DocumentEmbedding, dims uint) error {
	for _, doc := range docs {
		if len(doc.Values) != len(doc.Chunks) {
			return fmt.Errorf("document '%s' has %d chunks but %d vectors", doc.Title, len(doc.Chunks), len(doc.Values))
		}
		for i, v := range doc.Values {
			if uint(len(v)) != dims {
				return fmt.Errorf("%w: document '%s' chunk %d has %d dimensions, index expects %d",
					ErrDimensionMismatch, doc.Title, i, len(v), dims)
			}
		}
	}
	return nil
}

type QueryParams struct {
	collection  string
	query       []float32
	withPayload bool
	withVectors bool
	limit       uint
}

type QueryParamsOption func(*QueryParams)

func NewQueryParams(collection string, query []float32, opts ...QueryParamsOption) *QueryParams {
	qp := &QueryParams{
		collection:  collection,
		query:       query,
		withPayload: false,
		withVectors: false,
		limit:       0,
	}

	for _, opt := range opts {
		opt(qp)
	}
	return qp
}

func (qp QueryParams) Collection() string {
	return qp.collection
}

func (qp QueryParams) Limit() uint {
	return qp.limit
}

func WithPayload(w bool) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.withPayload = w
	}
}

// WithVectors requests the stored vectors of every match.
func WithVectors(w bool) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.withVectors = w
	}
}

func WithLimit(limit uint) QueryParamsOption {
	return func(qp *QueryParams) {
		qp.limit = limit
	}
}
