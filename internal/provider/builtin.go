package provider

import (
	"context"

	"github.com/alan-mat/drugrag/internal/config"
	drugragcohere "github.com/alan-mat/drugrag/internal/provider/cohere"
	"github.com/alan-mat/drugrag/internal/provider/gemini"
	"github.com/alan-mat/drugrag/internal/provider/jina"
	"github.com/alan-mat/drugrag/internal/provider/ollama"
	"github.com/alan-mat/drugrag/internal/provider/openai"
	"github.com/alan-mat/drugrag/internal/textsplit"
)

func init() {
	RegisterEmbedder("upstage", func(_ context.Context, o Options) (Embedder, error) {
		return openai.NewUpstage(upstageConfig(o)), nil
	})
	RegisterGenerator("upstage", func(_ context.Context, o Options) (Generator, error) {
		return openai.NewUpstage(upstageConfig(o)), nil
	})

	RegisterEmbedder("openai", func(_ context.Context, o Options) (Embedder, error) {
		return openai.New(openaiConfig(o)), nil
	})
	RegisterGenerator("openai", func(_ context.Context, o Options) (Generator, error) {
		return openai.New(openaiConfig(o)), nil
	})

	RegisterEmbedder("cohere", func(_ context.Context, o Options) (Embedder, error) {
		return drugragcohere.New(cohereConfig(o)), nil
	})
	RegisterGenerator("cohere", func(_ context.Context, o Options) (Generator, error) {
		return drugragcohere.New(cohereConfig(o)), nil
	})

	RegisterEmbedder("gemini", func(ctx context.Context, o Options) (Embedder, error) {
		return gemini.New(ctx, geminiConfig(o))
	})
	RegisterGenerator("gemini", func(ctx context.Context, o Options) (Generator, error) {
		return gemini.New(ctx, geminiConfig(o))
	})

	RegisterEmbedder("jina", func(_ context.Context, o Options) (Embedder, error) {
		return jina.New(jinaConfig(o)), nil
	})

	RegisterEmbedder("ollama", func(_ context.Context, o Options) (Embedder, error) {
		return ollama.New(ollamaConfig(o)), nil
	})
	RegisterGenerator("ollama", func(_ context.Context, o Options) (Generator, error) {
		return ollama.New(ollamaConfig(o)), nil
	})

	RegisterSegmenter("recursive", func(_ context.Context, conf config.IngestConfig, _ config.Keys) (Segmenter, error) {
		return textsplit.NewRecursiveCharacter(conf.ChunkSize, conf.ChunkOverlap)
	})
	RegisterSegmenter("jina", func(_ context.Context, conf config.IngestConfig, keys config.Keys) (Segmenter, error) {
		return jina.New(jina.Config{APIKey: keys.Jina, MaxChunkLength: conf.ChunkSize}), nil
	})
}

func upstageConfig(o Options) openai.Config {
	return openai.Config{
		APIKey:        o.APIKey,
		BaseURL:       o.BaseURL,
		DocumentModel: o.DocumentModel,
		QueryModel:    o.QueryModel,
		ChatModel:     o.Model,
		Dimensions:    o.Dimensions,
	}
}

func openaiConfig(o Options) openai.Config {
	return upstageConfig(o)
}

func cohereConfig(o Options) drugragcohere.Config {
	return drugragcohere.Config{
		APIKey:        o.APIKey,
		DocumentModel: o.DocumentModel,
		QueryModel:    o.QueryModel,
		ChatModel:     o.Model,
		Dimensions:    o.Dimensions,
	}
}

func geminiConfig(o Options) gemini.Config {
	return gemini.Config{
		APIKey:        o.APIKey,
		DocumentModel: o.DocumentModel,
		QueryModel:    o.QueryModel,
		ChatModel:     o.Model,
		Dimensions:    o.Dimensions,
	}
}

func jinaConfig(o Options) jina.Config {
	return jina.Config{
		APIKey:     o.APIKey,
		Endpoint:   o.BaseURL,
		Model:      o.DocumentModel,
		Dimensions: o.Dimensions,
	}
}

func ollamaConfig(o Options) ollama.Config {
	return ollama.Config{
		Endpoint:   o.BaseURL,
		ChatModel:  o.Model,
		EmbedModel: o.DocumentModel,
		Dimensions: o.Dimensions,
	}
}
