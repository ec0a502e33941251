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
	"log/slog"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	PineconeControllerURL = "https://api.pinecone.io"

	defaultReadyTimeout = 5 * time.Minute
	defaultPollInterval = 2 * time.Second
	defaultTopK         = 10
)

var ErrIndexNotReady = errors.New("pinecone index did not become ready")

// PineconeIndex is the data plane of a single index.
// *pinecone.IndexConnection implements it.
type PineconeIndex interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	Close() error
}

type PineconeConfig struct {
	APIKey        string
	ControllerURL string
	Namespace     string

	// ReadyTimeout bounds the wait for a newly created index.
	ReadyTimeout time.Duration
	PollInterval time.Duration

	// Connect opens the data plane of the index served at host.
	// Defaults to a connection of the SDK client.
	Connect func(host, namespace string) (PineconeIndex, error)
}

// PineconeStore manages indexes through the control plane of the Pinecone
// client and keeps one data plane connection per index, opened on first use.
type PineconeStore struct {
	client *pinecone.Client
	conf   PineconeConfig

	mu      sync.Mutex
	indexes map[string]PineconeIndex
}

func NewPineconeStore(conf PineconeConfig) (*PineconeStore, error) {
	if conf.ControllerURL == "" {
		conf.ControllerURL = PineconeControllerURL
	}
	if conf.ReadyTimeout <= 0 {
		conf.ReadyTimeout = defaultReadyTimeout
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = defaultPollInterval
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: conf.APIKey,
		Host:   conf.ControllerURL,
	})
	if err != nil {
		return nil, err
	}

	s := &PineconeStore{
		client:  client,
		conf:    conf,
		indexes: make(map[string]PineconeIndex),
	}
	if s.conf.Connect == nil {
		s.conf.Connect = s.connect
	}
	return s, nil
}

func (s *PineconeStore) connect(host, namespace string) (PineconeIndex, error) {
	return s.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})
}

func (s *PineconeStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == collectionName {
			return true, nil
		}
	}
	return false, nil
}

// CreateCollection creates a serverless index and blocks until it is ready.
func (s *PineconeStore) CreateCollection(ctx context.Context, collection Collection) error {
	metric := pinecone.IndexMetric(collection.Metric)
	if metric == "" {
		metric = pinecone.Cosine
	}
	dimension := int32(collection.Dimensions)

	idx, err := s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      collection.Name,
		Dimension: &dimension,
		Metric:    &metric,
		Cloud:     pinecone.Cloud(collection.Cloud),
		Region:    collection.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create index '%s': %w", collection.Name, err)
	}

	slog.Info("created index, waiting until ready", "name", collection.Name, "dimension", dimension, "metric", metric)
	if ready(idx) {
		return nil
	}

	return s.waitReady(ctx, collection.Name)
}

func (s *PineconeStore) Upsert(ctx context.Context, collectionName string, points []*Point) error {
	if len(points) == 0 {
		return nil
	}

	index, err := s.dataPlane(ctx, collectionName)
	if err != nil {
		return err
	}

	vectors := make([]*pinecone.Vector, 0, len(points))
	for _, p := range points {
		metadata, err := structpb.NewStruct(p.Payload)
		if err != nil {
			return fmt.Errorf("invalid payload of point '%s': %w", p.ID, err)
		}

		values := p.Vector
		vectors = append(vectors, &pinecone.Vector{
			Id:       p.ID,
			Values:   &values,
			Metadata: metadata,
		})
	}

	count, err := index.UpsertVectors(ctx, vectors)
	if err != nil {
		return fmt.Errorf("failed to upsert into '%s': %w", collectionName, err)
	}

	slog.Debug("upserted vectors", "index", collectionName, "count", count)
	return nil
}

func (s *PineconeStore) Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error) {
	index, err := s.dataPlane(ctx, params.collection)
	if err != nil {
		return nil, err
	}

	topK := uint32(params.limit)
	if topK == 0 {
		topK = defaultTopK
	}

	resp, err := index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          params.query,
		TopK:            topK,
		IncludeValues:   params.withVectors,
		IncludeMetadata: params.withPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query '%s': %w", params.collection, err)
	}

	scoredPoints := make([]*ScoredPoint, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}

		sp := &ScoredPoint{
			ID:      m.Vector.Id,
			Score:   m.Score,
			Payload: make(map[string]string),
		}
		if m.Vector.Values != nil {
			sp.Vector = *m.Vector.Values
		}
		if m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				sp.Payload[k] = metadataString(v)
			}
		}
		scoredPoints = append(scoredPoints, sp)
	}

	return scoredPoints, nil
}

func (s *PineconeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name, index := range s.indexes {
		if err := index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close index '%s': %w", name, err))
		}
		delete(s.indexes, name)
	}
	return errors.Join(errs...)
}

func (s *PineconeStore) waitReady(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.conf.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(s.conf.PollInterval)
	defer ticker.Stop()

	for {
		idx, err := s.client.DescribeIndex(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to describe index '%s': %w", name, err)
		}
		if ready(idx) {
			return nil
		}

		if idx.Status != nil {
			slog.Debug("index not ready", "name", name, "state", idx.Status.State)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: '%s' after %s", ErrIndexNotReady, name, s.conf.ReadyTimeout)
		case <-ticker.C:
		}
	}
}

// dataPlane returns the connection of the named index, resolving its
// host on first use.
func (s *PineconeStore) dataPlane(ctx context.Context, name string) (PineconeIndex, error) {
	s.mu.Lock()
	index, ok := s.indexes[name]
	s.mu.Unlock()
	if ok {
		return index, nil
	}

	idx, err := s.client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index '%s': %w", name, err)
	}
	if idx.Host == "" {
		return nil, fmt.Errorf("index '%s' has no host", name)
	}

	index, err = s.conf.Connect(idx.Host, s.conf.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index '%s': %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.indexes[name]; ok {
		index.Close()
		return existing, nil
	}
	s.indexes[name] = index
	return index, nil
}

func ready(idx *pinecone.Index) bool {
	return idx != nil && idx.Status != nil && idx.Status.Ready && idx.Host != ""
}

func metadataString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprint(val)
	}
}
