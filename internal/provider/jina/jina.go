package jina

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/http"
)

const (
	Endpoint                = "https://api.jina.ai"
	SegmentMaxContentLength = 64000
	EmbedItemsMaxLength     = 2048
)

const (
	defaultModel          = "jina-embeddings-v3"
	defaultDimensions     = 1024
	defaultMaxChunkLength = 1000
)

var (
	ErrEmptyResponse = errors.New("jina returned no embeddings")

	wordPattern = regexp.MustCompile(`\w+`)
)

type Config struct {
	APIKey   string
	Endpoint string

	Model          string
	Dimensions     uint
	MaxChunkLength int
}

type segmentResponse struct {
	NumTokens      int      `json:"num_tokens"`
	Tokenizer      string   `json:"tokenizer"`
	NumChunks      int      `json:"num_chunks"`
	ChunkPositions [][]int  `json:"chunk_positions"`
	Chunks         []string `json:"chunks"`
}

type embeddingResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type JinaAIProvider struct {
	client         http.Client
	model          string
	vectorDims     uint
	maxChunkLength int
}

func New(conf Config) *JinaAIProvider {
	if conf.Endpoint == "" {
		conf.Endpoint = Endpoint
	}

	c := http.NewClient(
		conf.Endpoint,
		http.WithMaxRetries(3),
		http.WithApiKey(conf.APIKey),
	)
	p := &JinaAIProvider{
		client:         c,
		model:          conf.Model,
		vectorDims:     conf.Dimensions,
		maxChunkLength: conf.MaxChunkLength,
	}
	if p.model == "" {
		p.model = defaultModel
	}
	if p.vectorDims == 0 {
		p.vectorDims = defaultDimensions
	}
	if p.maxChunkLength <= 0 {
		p.maxChunkLength = defaultMaxChunkLength
	}
	return p
}

// ChunkDocument segments the document with the Jina segmenter API. Chunks
// without any word characters are dropped and markdown headings are merged
// into the chunk that follows them.
func (p JinaAIProvider) ChunkDocument(ctx context.Context, doc *api.DocumentContent) ([]string, error) {
	contents := splitContentLen(SegmentMaxContentLength, doc)

	chunks := make([]string, 0, len(contents))
	var acc string
	for _, content := range contents {
		resp, err := p.requestSegmenter(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("segment request failed for document '%s': %w", doc.Title, err)
		}

		for _, c := range resp.Chunks {
			if !wordPattern.MatchString(c) {
				continue
			}

			acc += c
			if strings.HasPrefix(strings.TrimSpace(c), "#") {
				continue
			}
			chunks = append(chunks, strings.TrimSpace(acc))
			acc = ""
		}
	}

	// a trailing heading still carries content
	if s := strings.TrimSpace(acc); s != "" {
		chunks = append(chunks, s)
	}

	return chunks, nil
}

func (p JinaAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vectors, err := p.requestEmbedding(ctx, "retrieval.query", []string{q})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p JinaAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		slog.Debug("embedding document", "name", doc.Title, "chunks", len(doc.Chunks))

		vals := make([][]float32, 0, len(doc.Chunks))
		for start := 0; start < len(doc.Chunks); start += EmbedItemsMaxLength {
			end := min(start+EmbedItemsMaxLength, len(doc.Chunks))

			vectors, err := p.requestEmbedding(ctx, "retrieval.passage", doc.Chunks[start:end])
			if err != nil {
				return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
			}
			vals = append(vals, vectors...)
		}

		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vals,
		})
	}

	return embeddings, nil
}

func (p JinaAIProvider) GetDimensions() uint {
	return p.vectorDims
}

func (p JinaAIProvider) requestSegmenter(ctx context.Context, content string) (*segmentResponse, error) {
	requestData := map[string]any{
		"return_chunks":    true,
		"max_chunk_length": p.maxChunkLength,
		"content":          content,
	}

	var resp segmentResponse
	if err := p.client.Request(ctx, http.MethodPost, "/v1/segment", requestData, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// requestEmbedding returns one vector per input, ordered like the input.
func (p JinaAIProvider) requestEmbedding(ctx context.Context, task string, input []string) ([][]float32, error) {
	requestData := map[string]any{
		"input":      input,
		"model":      p.model,
		"task":       task,
		"dimensions": p.vectorDims,
	}

	var resp embeddingResponse
	if err := p.client.Request(ctx, http.MethodPost, "/v1/embeddings", requestData, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("%w: sent %d inputs, received %d", ErrEmptyResponse, len(input), len(resp.Data))
	}

	vals := make([][]float32, len(resp.Data))
	for _, e := range resp.Data {
		if e.Index < 0 || e.Index >= len(vals) {
			return nil, fmt.Errorf("embedding index %d out of range", e.Index)
		}
		vals[e.Index] = e.Embedding
	}
	return vals, nil
}

// splitContentLen groups the document pages into contents below maxLen bytes.
func splitContentLen(maxLen int, doc *api.DocumentContent) []string {
	full := doc.Text()
	if len(full) < maxLen {
		return []string{full}
	}

	cts := make([]string, 0, len(full)/maxLen+1)
	acc := ""
	for _, page := range doc.Pages {
		if acc != "" && len(acc)+len(page.Text) >= maxLen {
			cts = append(cts, acc)
			acc = ""
		}
		acc += page.Text
	}
	if acc != "" {
		cts = append(cts, acc)
	}

	return cts
}
