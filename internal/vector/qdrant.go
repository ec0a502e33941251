package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

type QdrantStore struct {
	client     *qdrant.Client
	host       string
	port       int
	waitUpsert bool
}

func NewQdrantStore(conf QdrantConfig) (*QdrantStore, error) {
	if conf.Host == "" {
		conf.Host = "localhost"
	}
	if conf.Port == 0 {
		conf.Port = 6334
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   conf.Host,
		Port:   conf.Port,
		APIKey: conf.APIKey,
		UseTLS: conf.UseTLS,
	})
	if err != nil {
		return nil, err
	}

	s := &QdrantStore{
		client:     c,
		host:       conf.Host,
		port:       conf.Port,
		waitUpsert: true,
	}
	return s, nil
}

func (s QdrantStore) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	return s.client.CollectionExists(ctx, collectionName)
}

func (s QdrantStore) CreateCollection(ctx context.Context, collection Collection) error {
	distance, err := qdrantDistance(collection.Metric)
	if err != nil {
		return err
	}

	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(collection.Dimensions),
			Distance: distance,
		}),
	})
}

func (s QdrantStore) Upsert(ctx context.Context, collectionName string, points []*Point) error {
	upsertPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		upsertPoints = append(upsertPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(point.Payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Wait:           &s.waitUpsert,
		Points:         upsertPoints,
	})

	return err
}

func (s QdrantStore) Query(ctx context.Context, params *QueryParams) ([]*ScoredPoint, error) {
	queryPoints := &qdrant.QueryPoints{
		CollectionName: params.collection,
		Query:          qdrant.NewQuery(params.query...),
		WithPayload:    qdrant.NewWithPayload(params.withPayload),
		WithVectors:    qdrant.NewWithVectors(params.withVectors),
	}

	if params.limit > 0 {
		limit := uint64(params.limit)
		queryPoints.Limit = &limit
	}

	res, err := s.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, err
	}

	scoredPoints := make([]*ScoredPoint, 0, len(res))
	for _, sp := range res {
		scoredPoints = append(scoredPoints, &ScoredPoint{
			ID:      sp.GetId().GetUuid(),
			Score:   sp.GetScore(),
			Vector:  sp.GetVectors().GetVector().GetData(),
			Payload: qdrantPayload(sp.GetPayload()),
		})
	}

	return scoredPoints, nil
}

func (s QdrantStore) Close() error {
	return s.client.Close()
}

func qdrantDistance(metric string) (qdrant.Distance, error) {
	switch metric {
	case "", MetricCosine:
		return qdrant.Distance_Cosine, nil
	case MetricDotProduct:
		return qdrant.Distance_Dot, nil
	case MetricEuclidean:
		return qdrant.Distance_Euclid, nil
	default:
		return 0, fmt.Errorf("unsupported metric '%s'", metric)
	}
}

// qdrantPayload flattens scalar payload values into strings.
func qdrantPayload(p map[string]*qdrant.Value) map[string]string {
	payload := make(map[string]string, len(p))
	for k, v := range p {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			payload[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			payload[k] = strconv.FormatInt(kind.IntegerValue, 10)
		case *qdrant.Value_DoubleValue:
			payload[k] = strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
		case *qdrant.Value_BoolValue:
			payload[k] = strconv.FormatBool(kind.BoolValue)
		}
	}
	return payload
}
