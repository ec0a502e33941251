package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alan-mat/drugrag/internal/config"
	"github.com/alan-mat/drugrag/internal/eval"
	"github.com/alan-mat/drugrag/internal/ingest"
	"github.com/alan-mat/drugrag/internal/provider"
	"github.com/alan-mat/drugrag/internal/retrieval"
	"github.com/alan-mat/drugrag/internal/scoring"
	"github.com/alan-mat/drugrag/internal/trace"
	"github.com/alan-mat/drugrag/internal/vector"
)

func runIngest(ctx context.Context, cmd *ingestCmd, conf *config.Config, tr *trace.Trace) error {
	if cmd.CSV != "" {
		conf.Ingest.CSVPath = cmd.CSV
	}
	if cmd.Index != "" {
		conf.Index.Name = cmd.Index
	}
	tr.Set("csv", conf.Ingest.CSVPath)
	tr.Set("index", conf.Index.Name)

	store, err := vector.NewStore(conf.VectorStore, conf.Keys)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := provider.NewEmbedder(ctx, conf.Embedding, conf.Keys)
	if err != nil {
		return err
	}

	segmenter, err := provider.NewSegmenter(ctx, conf.Ingest, conf.Keys)
	if err != nil {
		return err
	}

	p := &ingest.Pipeline{
		Store:     store,
		Embedder:  embedder,
		Segmenter: segmenter,
		Collection: vector.Collection{
			Name:       conf.Index.Name,
			Dimensions: conf.Index.Dimension,
			Metric:     conf.Index.Metric,
			Cloud:      conf.Index.Cloud,
			Region:     conf.Index.Region,
		},
		TextColumn: conf.Ingest.TextColumn,
		BatchSize:  conf.Ingest.BatchSize,
	}

	stats, err := p.Run(ctx, conf.Ingest.CSVPath)
	if stats != nil {
		tr.Set("records", strconv.Itoa(stats.Records))
		tr.Set("chunks", strconv.Itoa(stats.Chunks))
		tr.Set("points", strconv.Itoa(stats.Points))
	}
	return err
}

func runEvaluate(ctx context.Context, cmd *evaluateCmd, conf *config.Config, tr *trace.Trace) error {
	if cmd.Index != "" {
		conf.Index.Name = cmd.Index
	}
	if cmd.Fixture != "" {
		conf.Evaluation.Fixture = cmd.Fixture
	}
	tr.Set("index", conf.Index.Name)

	fixture, err := loadFixture(conf.Evaluation.Fixture)
	if err != nil {
		return err
	}

	store, err := vector.NewStore(conf.VectorStore, conf.Keys)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := provider.NewEmbedder(ctx, conf.Embedding, conf.Keys)
	if err != nil {
		return err
	}

	retriever, err := retrieval.New(conf.Retrieval, store, embedder, conf.Index.Name)
	if err != nil {
		return err
	}

	judge, err := provider.NewGenerator(ctx, conf.Evaluation.Judge, conf.Keys)
	if err != nil {
		return fmt.Errorf("failed to create judge: %w", err)
	}

	metrics, err := scoring.MetricsByName(conf.Evaluation.Metrics, judge)
	if err != nil {
		return err
	}

	p := &eval.Pipeline{
		Retriever: retriever,
		Metrics:   metrics,
		Fixture:   fixture,
		Label:     storeLabel(conf),
	}

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	tr.Set("records", strconv.Itoa(len(report.Records)))
	tr.Set(scoring.NameContextPrecision, formatFloat(report.Precision))
	tr.Set(scoring.NameContextRecall, formatFloat(report.Recall))
	return nil
}

func loadFixture(path string) (*eval.Fixture, error) {
	if path == "" {
		return eval.DefaultFixture()
	}
	return eval.LoadFixture(path)
}
