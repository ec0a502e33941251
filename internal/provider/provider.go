package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/config"
	"github.com/alan-mat/drugrag/internal/registry"
)

var (
	ErrInvalidProviderType  = errors.New("no provider found for given type")
	ErrInvalidSegmenterType = errors.New("no segmenter found for given type")
)

type Embedder interface {
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
	EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error)
	GetDimensions() uint
}

type Generator interface {
	Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error)
}

type Segmenter interface {
	ChunkDocument(ctx context.Context, doc *api.DocumentContent) ([]string, error)
}

// Options carries everything a provider factory needs to build a client.
// Empty fields are filled by the provider's defaults.
type Options struct {
	APIKey        string
	BaseURL       string
	DocumentModel string
	QueryModel    string
	Model         string
	Dimensions    uint
}

func OptionsFromConfig(conf config.ProviderConfig, keys config.Keys) Options {
	return Options{
		APIKey:        keys.ForProvider(conf.Provider),
		BaseURL:       conf.BaseURL,
		DocumentModel: conf.DocumentModel,
		QueryModel:    conf.QueryModel,
		Model:         conf.Model,
		Dimensions:    conf.Dimensions,
	}
}

type (
	EmbedderFactory  func(ctx context.Context, opts Options) (Embedder, error)
	GeneratorFactory func(ctx context.Context, opts Options) (Generator, error)
	SegmenterFactory func(ctx context.Context, conf config.IngestConfig, keys config.Keys) (Segmenter, error)
)

var (
	embedders  = registry.New[string, EmbedderFactory]()
	generators = registry.New[string, GeneratorFactory]()
	segmenters = registry.New[string, SegmenterFactory]()
)

func RegisterEmbedder(name string, f EmbedderFactory) {
	embedders.Register(name, f)
}

func RegisterGenerator(name string, f GeneratorFactory) {
	generators.Register(name, f)
}

func RegisterSegmenter(name string, f SegmenterFactory) {
	segmenters.Register(name, f)
}

func NewEmbedder(ctx context.Context, conf config.ProviderConfig, keys config.Keys) (Embedder, error) {
	factory, ok := embedders.Get(conf.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: embedder '%s' (available: %v)", ErrInvalidProviderType, conf.Provider, embedders.List())
	}
	return factory(ctx, OptionsFromConfig(conf, keys))
}

func NewGenerator(ctx context.Context, conf config.ProviderConfig, keys config.Keys) (Generator, error) {
	factory, ok := generators.Get(conf.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: generator '%s' (available: %v)", ErrInvalidProviderType, conf.Provider, generators.List())
	}
	return factory(ctx, OptionsFromConfig(conf, keys))
}

func NewSegmenter(ctx context.Context, conf config.IngestConfig, keys config.Keys) (Segmenter, error) {
	factory, ok := segmenters.Get(conf.Segmenter)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (available: %v)", ErrInvalidSegmenterType, conf.Segmenter, segmenters.List())
	}
	return factory(ctx, conf, keys)
}
