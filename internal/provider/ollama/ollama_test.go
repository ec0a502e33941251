package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/provider/ollama"
)

func TestGenerateStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path '%s'", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req["system"] != "be brief" {
			t.Errorf("expected system prompt, got %v", req["system"])
		}
		if _, ok := req["format"]; !ok {
			t.Errorf("expected format to be set for schema requests")
		}

		w.Write([]byte(`{"response":"{\"verdict\"","done":false}` + "\n"))
		w.Write([]byte(`{"response":": 1}","done":false}` + "\n"))
		w.Write([]byte(`{"response":"","done":true}`))
	}))
	defer ts.Close()

	p := ollama.New(ollama.Config{Endpoint: ts.URL})
	stream, err := p.Generate(context.Background(), api.GenerationRequest{
		Prompt:         "judge",
		SystemPrompt:   "be brief",
		ResponseSchema: api.PrimitiveSchema(api.TypeObject, ""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := api.StreamReadAll(context.Background(), stream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"verdict": 1}` {
		t.Errorf("unexpected output '%s'", out)
	}
}

func TestEmbed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path '%s'", r.URL.Path)
		}
		w.Write([]byte(`{"model":"bge-m3","embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer ts.Close()

	p := ollama.New(ollama.Config{Endpoint: ts.URL})
	res, err := p.EmbedDocuments(context.Background(), []*api.EmbedDocumentRequest{
		{Title: "doc", Chunks: []string{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Len() != 2 || res[0].Values[1][0] != 0.3 {
		t.Errorf("unexpected embeddings %v", res[0].Values)
	}

	if _, err := p.EmbedQuery(context.Background(), "q"); err == nil {
		t.Errorf("expected an error when the vector count does not match")
	}
}
