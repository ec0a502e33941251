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

package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/provider"
	"github.com/alan-mat/drugrag/internal/vector"
)

const DefaultBatchSize = 32

type Stats struct {
	Records           int
	Chunks            int
	Points            int
	CollectionCreated bool
}

// Pipeline reads a CSV, splits every row into chunks, embeds them and
// upserts the vectors into the collection. The collection is created
// when it does not exist.
type Pipeline struct {
	Store      vector.Store
	Embedder   provider.Embedder
	Segmenter  provider.Segmenter
	Collection vector.Collection

	TextColumn string
	BatchSize  int
	// Source is stored with every point, defaults to the CSV path.
	Source string
	// Out receives the start and end markers.
	Out io.Writer
}

func (p *Pipeline) Run(ctx context.Context, csvPath string) (*Stats, error) {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, "start")

	column := p.TextColumn
	if column == "" {
		column = DefaultTextColumn
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	records, err := ReadRecords(f, column)
	f.Close()
	if err != nil {
		return nil, err
	}
	slog.Info("read records", "path", csvPath, "count", len(records))

	stats := &Stats{Records: len(records)}

	if dims := p.Embedder.GetDimensions(); dims != 0 && dims != p.Collection.Dimensions {
		return stats, fmt.Errorf("%w: embedder produces %d dimensions, index '%s' expects %d",
			vector.ErrDimensionMismatch, dims, p.Collection.Name, p.Collection.Dimensions)
	}

	created, err := p.EnsureCollection(ctx)
	if err != nil {
		return stats, err
	}
	stats.CollectionCreated = created

	docRequests, rows, err := p.segment(ctx, filepath.Base(csvPath), records)
	if err != nil {
		return stats, err
	}
	for _, req := range docRequests {
		stats.Chunks += len(req.Chunks)
	}

	if len(docRequests) > 0 {
		embeddings, err := p.Embedder.EmbedDocuments(ctx, docRequests)
		if err != nil {
			return stats, fmt.Errorf("failed to embed %d documents: %w", len(docRequests), err)
		}

		if err := vector.ValidateDimensions(embeddings, p.Collection.Dimensions); err != nil {
			return stats, err
		}

		source := p.Source
		if source == "" {
			source = csvPath
		}
		points := vector.CreatePoints(embeddings, source, rows)

		if err := p.upsert(ctx, points); err != nil {
			return stats, err
		}
		stats.Points = len(points)
	} else {
		slog.Warn("no chunks to index", "path", csvPath)
	}

	slog.Info("indexing finished", "collection", p.Collection.Name,
		"records", stats.Records, "chunks", stats.Chunks, "points", stats.Points)
	fmt.Fprintln(out, "end")
	return stats, nil
}

// EnsureCollection creates the collection if the store does not list it
// and reports whether it was created.
func (p *Pipeline) EnsureCollection(ctx context.Context) (bool, error) {
	exists, err := p.Store.CollectionExists(ctx, p.Collection.Name)
	if err != nil {
		return false, fmt.Errorf("failed to communicate with vector store: %w", err)
	}
	if exists {
		return false, nil
	}

	slog.Info("requested collection not found", "name", p.Collection.Name)
	if err := p.Store.CreateCollection(ctx, p.Collection); err != nil {
		return false, fmt.Errorf("failed to create collection: %w", err)
	}
	slog.Info("successfully created collection", "name", p.Collection.Name)
	return true, nil
}

func (p *Pipeline) segment(ctx context.Context, name string, records []Record) ([]*api.EmbedDocumentRequest, []int, error) {
	docRequests := make([]*api.EmbedDocumentRequest, 0, len(records))
	rows := make([]int, 0, len(records))

	for _, rec := range records {
		doc := api.TextDocument(fmt.Sprintf("%s#%d", name, rec.Row), rec.Text)

		chunks, err := p.Segmenter.ChunkDocument(ctx, doc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to segment row %d: %w", rec.Row, err)
		}
		if len(chunks) == 0 {
			slog.Warn("row produced no chunks, skipping...", "row", rec.Row)
			continue
		}

		docRequests = append(docRequests, &api.EmbedDocumentRequest{
			Title:  doc.Title,
			Chunks: chunks,
		})
		rows = append(rows, rec.Row)
	}

	return docRequests, rows, nil
}

func (p *Pipeline) upsert(ctx context.Context, points []*vector.Point) error {
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for start := 0; start < len(points); start += size {
		end := min(start+size, len(points))
		if err := p.Store.Upsert(ctx, p.Collection.Name, points[start:end]); err != nil {
			return fmt.Errorf("failed to upsert points %d-%d to vector store: %w", start, end, err)
		}
		slog.Debug("upserted batch", "collection", p.Collection.Name, "from", start, "to", end)
	}
	return nil
}
