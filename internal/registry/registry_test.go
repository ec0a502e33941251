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

package registry_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/alan-mat/drugrag/internal/registry"
)

type embedFunc func(ctx context.Context, text string) ([]float32, error)

func newEmbedders() *registry.Registry[string, embedFunc] {
	r := registry.New[string, embedFunc]()
	r.RegisterMany(
		registry.Entry[string, embedFunc]{Key: "upstage", Value: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 4096), nil
		}},
		registry.Entry[string, embedFunc]{Key: "ollama", Value: func(_ context.Context, _ string) ([]float32, error) {
			return make([]float32, 768), nil
		}},
	)
	return r
}

func TestRegistryFactoryLookup(t *testing.T) {
	r := newEmbedders()

	f, ok := r.Get("upstage")
	if !ok {
		t.Fatal("upstage factory not found")
	}
	vec, err := f(context.Background(), "아스피린")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 4096 {
		t.Errorf("expected 4096 dimensions, got %d", len(vec))
	}

	if f, ok := r.Get("pinecone"); ok || f != nil {
		t.Error("got a factory for an unregistered name")
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := newEmbedders()
	boom := errors.New("upstage disabled")
	r.Register("upstage", func(_ context.Context, _ string) ([]float32, error) {
		return nil, boom
	})

	f, ok := r.Get("upstage")
	if !ok {
		t.Fatal("upstage factory not found")
	}
	if _, err := f(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("expected the replacement factory, got err %v", err)
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("overwriting must not add an entry, got %d keys", got)
	}
}

func TestRegistryList(t *testing.T) {
	r := newEmbedders()

	keys := r.List()
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"ollama", "upstage"}) {
		t.Errorf("unexpected keys %v", keys)
	}

	if got := registry.New[string, embedFunc]().List(); len(got) != 0 {
		t.Errorf("expected no keys in an empty registry, got %v", got)
	}
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := registry.New[int, string]()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(i, "store")
			r.Get(i)
			r.List()
		}()
	}
	wg.Wait()

	if got := len(r.List()); got != 50 {
		t.Errorf("expected 50 keys, got %d", got)
	}
}
