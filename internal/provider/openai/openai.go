package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/sashabaranov/go-openai"
)

const embedMaxDocsLength = 100

const (
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultChatModel      = openai.GPT4Dot1Mini
	defaultDimensions     = 1536
)

var ErrEmbeddingCount = errors.New("embedding count does not match input count")

type Config struct {
	APIKey  string
	BaseURL string

	DocumentModel string
	QueryModel    string
	ChatModel     string
	Dimensions    uint
}

type OpenAIProvider struct {
	client *openai.Client

	documentModel string
	queryModel    string
	chatModel     string
	vectorDims    uint

	// sendDimensions requests truncated vectors from the API,
	// only models of the text-embedding-3 family accept it.
	sendDimensions bool
	// jsonMode sets response_format to json_object when a schema is requested.
	jsonMode bool
}

func New(conf Config) *OpenAIProvider {
	if conf.DocumentModel == "" {
		conf.DocumentModel = defaultEmbeddingModel
	}
	if conf.QueryModel == "" {
		conf.QueryModel = conf.DocumentModel
	}
	if conf.ChatModel == "" {
		conf.ChatModel = defaultChatModel
	}
	if conf.Dimensions == 0 {
		conf.Dimensions = defaultDimensions
	}

	p := newProvider(conf)
	p.sendDimensions = true
	p.jsonMode = true
	return p
}

func newProvider(conf Config) *OpenAIProvider {
	oc := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		oc.BaseURL = conf.BaseURL
	}

	return &OpenAIProvider{
		client:        openai.NewClientWithConfig(oc),
		documentModel: conf.DocumentModel,
		queryModel:    conf.QueryModel,
		chatModel:     conf.ChatModel,
		vectorDims:    conf.Dimensions,
	}
}

func (p OpenAIProvider) Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	openaiReq := openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Temperature: req.Temperature,
		Messages:    messages,
		Stream:      true,
	}

	if req.ModelName != "" {
		openaiReq.Model = req.ModelName
	}

	if req.ResponseSchema != nil && p.jsonMode {
		openaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	s, err := p.client.CreateChatCompletionStream(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}

	return &OpenAIChatStream{stream: s}, nil
}

func (p OpenAIProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vectors, err := p.embed(ctx, p.queryModel, []string{q})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds the chunks of each document, sending at most
// embedMaxDocsLength chunks per request.
func (p OpenAIProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	docEmbeddings := make([]*api.DocumentEmbedding, 0, len(docs))

	for _, doc := range docs {
		vals := make([][]float32, 0, len(doc.Chunks))
		for start := 0; start < len(doc.Chunks); start += embedMaxDocsLength {
			end := min(start+embedMaxDocsLength, len(doc.Chunks))

			vectors, err := p.embed(ctx, p.documentModel, doc.Chunks[start:end])
			if err != nil {
				return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
			}
			vals = append(vals, vectors...)
		}

		docEmbeddings = append(docEmbeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vals,
		})
	}

	return docEmbeddings, nil
}

func (p OpenAIProvider) GetDimensions() uint {
	return p.vectorDims
}

func (p OpenAIProvider) embed(ctx context.Context, model string, input []string) ([][]float32, error) {
	openaiReq := &openai.EmbeddingRequestStrings{
		Input:          input,
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.sendDimensions {
		openaiReq.Dimensions = int(p.vectorDims)
	}

	res, err := p.client.CreateEmbeddings(ctx, openaiReq)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}

	if len(res.Data) != len(input) {
		return nil, fmt.Errorf("%w: sent %d, received %d", ErrEmbeddingCount, len(input), len(res.Data))
	}

	// the API is not required to return embeddings in input order
	sort.Slice(res.Data, func(i, j int) bool {
		return res.Data[i].Index < res.Data[j].Index
	})

	vectors := make([][]float32, 0, len(res.Data))
	for _, e := range res.Data {
		vectors = append(vectors, e.Embedding)
	}
	return vectors, nil
}

type OpenAIChatStream struct {
	stream *openai.ChatCompletionStream
}

func (s OpenAIChatStream) Recv() (string, error) {
	for {
		res, err := s.stream.Recv()
		if err != nil {
			return "", err
		}

		if len(res.Choices) == 0 {
			continue
		}
		return res.Choices[0].Delta.Content, nil
	}
}

func (s OpenAIChatStream) Close() error {
	return s.stream.Close()
}
