package drugrag_cohere

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alan-mat/drugrag/internal/api"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	coherecore "github.com/cohere-ai/cohere-go/v2/core"
	"golang.org/x/sync/errgroup"
)

const (
	EmbedMaxTexts = 96

	// maximum number of embed requests in flight
	embedConcurrency = 4
	embedTimeout     = 30 * time.Second
)

const (
	defaultEmbedModel = "embed-multilingual-v3.0"
	defaultChatModel  = "command-r-08-2024"
	defaultDimensions = 1024
)

type Config struct {
	APIKey string

	DocumentModel string
	QueryModel    string
	ChatModel     string
	Dimensions    uint
}

type CohereProvider struct {
	client *cohereclient.Client

	documentModel string
	queryModel    string
	chatModel     string
	vectorDims    uint
}

func New(conf Config) *CohereProvider {
	c := cohereclient.NewClient(
		cohereclient.WithToken(conf.APIKey),
		cohereclient.WithHTTPClient(
			&http.Client{
				Timeout: 60 * time.Second,
			},
		),
	)

	p := &CohereProvider{
		client:        c,
		documentModel: conf.DocumentModel,
		queryModel:    conf.QueryModel,
		chatModel:     conf.ChatModel,
		vectorDims:    conf.Dimensions,
	}
	if p.documentModel == "" {
		p.documentModel = defaultEmbedModel
	}
	if p.queryModel == "" {
		p.queryModel = p.documentModel
	}
	if p.chatModel == "" {
		p.chatModel = defaultChatModel
	}
	if p.vectorDims == 0 {
		p.vectorDims = defaultDimensions
	}
	return p
}

func (p CohereProvider) Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("completion request failed: missing parameter 'prompt' in request")
	}

	temp := float64(req.Temperature)
	cohereReq := &cohere.V2ChatStreamRequest{
		Model:       p.chatModel,
		Temperature: &temp,
	}

	if req.ModelName != "" {
		cohereReq.Model = req.ModelName
	}

	if req.SystemPrompt != "" {
		cohereReq.Messages = append(cohereReq.Messages, &cohere.ChatMessageV2{
			Role: "system",
			System: &cohere.SystemMessage{Content: &cohere.SystemMessageContent{
				String: req.SystemPrompt,
			}},
		})
	}

	cohereReq.Messages = append(cohereReq.Messages, &cohere.ChatMessageV2{
		Role: "user",
		User: &cohere.UserMessage{Content: &cohere.UserMessageContent{
			String: req.Prompt,
		}},
	})

	stream, err := p.client.V2.ChatStream(ctx, cohereReq)
	if err != nil {
		return nil, fmt.Errorf("chat streaming request failed: %w", err)
	}

	return &CohereCompletionStream{stream: stream}, nil
}

func (p CohereProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vectors, err := p.embed(ctx, p.queryModel, cohere.EmbedInputTypeSearchQuery, []string{q})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed request failed: empty response")
	}
	return vectors[0], nil
}

// EmbedDocuments splits every document into requests of at most EmbedMaxTexts
// chunks and sends them concurrently. Vectors keep the order of the chunks.
func (p CohereProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, doc := range docs {
		docEmbeddings[i] = &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: make([][]float32, len(doc.Chunks)),
		}

		for start := 0; start < len(doc.Chunks); start += EmbedMaxTexts {
			end := min(start+EmbedMaxTexts, len(doc.Chunks))
			values := docEmbeddings[i].Values[start:end]
			texts := doc.Chunks[start:end]
			title := doc.Title

			g.Go(func() error {
				ctx, cancel := context.WithTimeout(gctx, embedTimeout)
				defer cancel()

				vectors, err := p.embed(ctx, p.documentModel, cohere.EmbedInputTypeSearchDocument, texts)
				if err != nil {
					return fmt.Errorf("failed to create embeddings for document '%s': %w", title, err)
				}
				if len(vectors) != len(texts) {
					return fmt.Errorf("failed to create embeddings for document '%s': sent %d texts, received %d vectors", title, len(texts), len(vectors))
				}
				// each goroutine owns a disjoint window of the values slice
				copy(values, vectors)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docEmbeddings, nil
}

func (p CohereProvider) GetDimensions() uint {
	return p.vectorDims
}

func (p CohereProvider) embed(ctx context.Context, model string, inputType cohere.EmbedInputType, texts []string) ([][]float32, error) {
	resp, err := p.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          texts,
			Model:          model,
			InputType:      inputType,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if resp.Embeddings == nil {
		return nil, fmt.Errorf("embed request failed: response carries no float embeddings")
	}

	vectors := make([][]float32, 0, len(resp.Embeddings.Float))
	for _, cohereVector := range resp.Embeddings.Float {
		vector := make([]float32, 0, len(cohereVector))
		for _, f64 := range cohereVector {
			vector = append(vector, float32(f64))
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

type CohereCompletionStream struct {
	stream *coherecore.Stream[cohere.StreamedChatResponseV2]
}

func (s CohereCompletionStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}

		if text, ok := contentDelta(resp); ok {
			return text, nil
		}
	}
}

func (s CohereCompletionStream) Close() error {
	return s.stream.Close()
}

func contentDelta(resp cohere.StreamedChatResponseV2) (string, bool) {
	cd := resp.ContentDelta
	if cd == nil || cd.Delta == nil || cd.Delta.Message == nil || cd.Delta.Message.Content == nil {
		return "", false
	}
	if cd.Delta.Message.Content.Text == nil {
		return "", false
	}
	return *cd.Delta.Message.Content.Text, true
}
