package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/alan-mat/drugrag/internal/api"
	"google.golang.org/genai"
)

const embedMaxDocsLength = 100

const (
	defaultEmbedModel = "gemini-embedding-001"
	defaultChatModel  = "gemini-2.0-flash"
	defaultDimensions = 1536
)

type Config struct {
	APIKey string

	DocumentModel string
	QueryModel    string
	ChatModel     string
	Dimensions    uint
}

type GeminiProvider struct {
	client *genai.Client

	documentModel string
	queryModel    string
	chatModel     string
	vectorDims    *int32
}

func New(ctx context.Context, conf Config) (*GeminiProvider, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	p := &GeminiProvider{
		client:        c,
		documentModel: conf.DocumentModel,
		queryModel:    conf.QueryModel,
		chatModel:     conf.ChatModel,
		vectorDims:    new(int32),
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

	*(p.vectorDims) = defaultDimensions
	if conf.Dimensions != 0 {
		*(p.vectorDims) = int32(conf.Dimensions)
	}
	return p, nil
}

func (p GeminiProvider) Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error) {
	config := &genai.GenerateContentConfig{
		Temperature: &req.Temperature,
	}

	modelName := p.chatModel
	if req.ModelName != "" {
		modelName = req.ModelName
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, "")
	}

	if req.ResponseSchema != nil {
		config.ResponseSchema = parseResponseSchema(req.ResponseSchema)
		config.ResponseMIMEType = "application/json"
	}

	contents := genai.Text(req.Prompt)
	i := p.client.Models.GenerateContentStream(ctx, modelName, contents, config)

	next, stop := iter.Pull2(i)
	return &GeminiCompletionStream{
		next: next,
		stop: stop,
	}, nil
}

func (p GeminiProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	config := &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: p.vectorDims,
	}

	res, err := p.client.Models.EmbedContent(ctx, p.queryModel, genai.Text(q), config)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("embed request failed: empty response")
	}

	return res.Embeddings[0].Values, nil
}

func (p GeminiProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		values := make([][]float32, 0, len(doc.Chunks))

		for start := 0; start < len(doc.Chunks); start += embedMaxDocsLength {
			end := min(start+embedMaxDocsLength, len(doc.Chunks))

			contents := make([]*genai.Content, 0, end-start)
			for _, chunk := range doc.Chunks[start:end] {
				contents = append(contents, genai.NewContentFromText(chunk, genai.RoleUser))
			}

			config := &genai.EmbedContentConfig{
				TaskType:             "RETRIEVAL_DOCUMENT",
				Title:                doc.Title,
				OutputDimensionality: p.vectorDims,
			}

			res, err := p.client.Models.EmbedContent(ctx, p.documentModel, contents, config)
			if err != nil {
				return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
			}
			if len(res.Embeddings) != len(contents) {
				return nil, fmt.Errorf("failed to create embeddings for document '%s': sent %d texts, received %d vectors", doc.Title, len(contents), len(res.Embeddings))
			}

			for _, e := range res.Embeddings {
				values = append(values, e.Values)
			}
		}

		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Values: values,
			Chunks: doc.Chunks,
		})
	}

	return embeddings, nil
}

func (p GeminiProvider) GetDimensions() uint {
	return uint(*p.vectorDims)
}

func parseResponseSchema(s *api.Schema) *genai.Schema {
	schema := &genai.Schema{
		Description: s.Description,
		Title:       s.Title,
		Required:    s.Required,
		Type:        genai.Type(strings.ToUpper(string(s.Type))),
	}

	if s.Items != nil {
		schema.Items = parseResponseSchema(s.Items)
	}

	if s.Properties != nil {
		properties := make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			properties[k] = parseResponseSchema(v)
		}
		schema.Properties = properties
	}

	return schema
}

type GeminiCompletionStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s GeminiCompletionStream) Recv() (string, error) {
	res, err, valid := s.next()
	if !valid {
		// iterator is finished
		return "", io.EOF
	}

	if err != nil {
		return "", err
	}

	return res.Text(), nil
}

func (s GeminiCompletionStream) Close() error {
	s.stop()
	return nil
}
