// Package scoring judges retrieved contexts with a language model and
// aggregates the per record scores.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/provider"
)

const (
	NameContextPrecision = "context_precision"
	NameContextRecall    = "context_recall"
)

var ErrUnknownMetric = errors.New("unknown metric")

// Record is one evaluated question. Answer stays empty when only the
// retrieval is evaluated.
type Record struct {
	Question    string
	Answer      string
	Contexts    []string
	GroundTruth string
}

type Metric interface {
	Name() string
	// Score returns NaN when the judge output could not be interpreted.
	Score(ctx context.Context, rec Record) (float64, error)
}

// MetricsByName builds the named metrics, all judged by gen.
func MetricsByName(names []string, gen provider.Generator) ([]Metric, error) {
	metrics := make([]Metric, 0, len(names))
	for _, name := range names {
		switch name {
		case NameContextPrecision:
			metrics = append(metrics, &ContextPrecision{Generator: gen})
		case NameContextRecall:
			metrics = append(metrics, &ContextRecall{Generator: gen})
		default:
			return nil, fmt.Errorf("%w: '%s'", ErrUnknownMetric, name)
		}
	}
	return metrics, nil
}

type Result struct {
	Metrics []string
	// Scores holds one map of metric name to score per record,
	// in record order.
	Scores []map[string]float64
}

// Mean is the arithmetic mean of a metric over all records, NaN scores are
// left out. It is NaN when no record has a score.
func (r Result) Mean(name string) float64 {
	var sum float64
	var n int
	for _, s := range r.Scores {
		v, ok := s[name]
		if !ok || math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Evaluate scores every record with every metric, one judge call at a time.
func Evaluate(ctx context.Context, records []Record, metrics ...Metric) (*Result, error) {
	res := &Result{
		Metrics: make([]string, 0, len(metrics)),
		Scores:  make([]map[string]float64, 0, len(records)),
	}
	for _, m := range metrics {
		res.Metrics = append(res.Metrics, m.Name())
	}

	for i, rec := range records {
		scores := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			v, err := m.Score(ctx, rec)
			if err != nil {
				return nil, fmt.Errorf("failed to score record %d with '%s': %w", i, m.Name(), err)
			}
			scores[m.Name()] = v
		}
		slog.Debug("scored record", "index", i, "question", rec.Question, "scores", scores)
		res.Scores = append(res.Scores, scores)
	}

	return res, nil
}

// judge sends the prompt to the generator and decodes the first JSON value
// of the reply into out. The returned bool is false if the reply carries no
// usable JSON.
func judge(ctx context.Context, gen provider.Generator, prompt string, schema *api.Schema, out any) (bool, error) {
	stream, err := gen.Generate(ctx, api.GenerationRequest{
		Prompt:         prompt,
		SystemPrompt:   judgeSystemPrompt,
		ResponseSchema: schema,
		Temperature:    0,
	})
	if err != nil {
		return false, fmt.Errorf("judge request failed: %w", err)
	}

	reply, err := api.StreamReadAll(ctx, stream)
	if err != nil {
		return false, fmt.Errorf("judge request failed: %w", err)
	}

	if err := DecodeFirstJSON(reply, out); err != nil {
		slog.Warn("failed to parse judge output", "err", err, "reply", reply)
		return false, nil
	}
	return true, nil
}
