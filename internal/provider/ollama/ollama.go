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

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/http"
)

const (
	Endpoint = "http://localhost:11434"
)

const (
	defaultChatModel  = "gemma3:4b"
	defaultEmbedModel = "bge-m3"
	defaultDimensions = 1024
)

type Config struct {
	Endpoint string

	ChatModel  string
	EmbedModel string
	Dimensions uint
}

type OllamaProvider struct {
	client     http.Client
	chatModel  string
	embedModel string
	vectorDims uint
}

type streamResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	Error     string `json:"error"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func New(conf Config) *OllamaProvider {
	if conf.Endpoint == "" {
		conf.Endpoint = Endpoint
	}

	c := http.NewClient(
		conf.Endpoint,
		http.WithMaxRetries(3),
	)
	p := &OllamaProvider{
		client:     c,
		chatModel:  conf.ChatModel,
		embedModel: conf.EmbedModel,
		vectorDims: conf.Dimensions,
	}
	if p.chatModel == "" {
		p.chatModel = defaultChatModel
	}
	if p.embedModel == "" {
		p.embedModel = defaultEmbedModel
	}
	if p.vectorDims == 0 {
		p.vectorDims = defaultDimensions
	}
	return p
}

func (p OllamaProvider) Generate(ctx context.Context, req api.GenerationRequest) (api.CompletionStream, error) {
	model := p.chatModel
	if req.ModelName != "" {
		model = req.ModelName
	}

	requestData := map[string]any{
		"model":  model,
		"prompt": req.Prompt,
		"options": map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		requestData["system"] = req.SystemPrompt
	}
	if req.ResponseSchema != nil {
		requestData["format"] = req.ResponseSchema
	}

	respBody, err := p.client.RequestStream(ctx, http.MethodPost, "/api/generate", requestData)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	return NewOllamaCompletionStream(respBody), nil
}

func (p OllamaProvider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	vectors, err := p.embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p OllamaProvider) EmbedDocuments(ctx context.Context, docs []*api.EmbedDocumentRequest) ([]*api.DocumentEmbedding, error) {
	embeddings := make([]*api.DocumentEmbedding, 0, len(docs))
	for _, doc := range docs {
		vectors, err := p.embed(ctx, doc.Chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for document '%s': %w", doc.Title, err)
		}
		embeddings = append(embeddings, &api.DocumentEmbedding{
			Title:  doc.Title,
			Chunks: doc.Chunks,
			Values: vectors,
		})
	}
	return embeddings, nil
}

func (p OllamaProvider) GetDimensions() uint {
	return p.vectorDims
}

func (p OllamaProvider) embed(ctx context.Context, input []string) ([][]float32, error) {
	requestData := map[string]any{
		"model": p.embedModel,
		"input": input,
	}

	var resp embedResponse
	if err := p.client.Request(ctx, http.MethodPost, "/api/embed", requestData, &resp); err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	if len(resp.Embeddings) != len(input) {
		return nil, fmt.Errorf("embed request failed: sent %d inputs, received %d vectors", len(input), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

type OllamaCompletionStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

func NewOllamaCompletionStream(body io.ReadCloser) *OllamaCompletionStream {
	return &OllamaCompletionStream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

func (s OllamaCompletionStream) Recv() (string, error) {
	var line []byte
	for {
		var err error
		line, err = s.reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) != 0 {
			break
		}
		if err != nil {
			return "", err
		}
	}

	var response streamResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return "", fmt.Errorf("failed to deserialize completion stream response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("completion stream failed: %s", response.Error)
	}

	return response.Response, nil
}

func (s OllamaCompletionStream) Close() error {
	return s.body.Close()
}
