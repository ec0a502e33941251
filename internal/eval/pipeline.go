package eval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/retrieval"
	"github.com/alan-mat/drugrag/internal/scoring"
)

const DefaultLabel = "pinecone_vectorstore"

type Report struct {
	Records   []scoring.Record
	Result    *scoring.Result
	Precision float64
	Recall    float64
}

// Pipeline retrieves contexts for every fixture question, scores them and
// prints the mean precision and recall under Label.
type Pipeline struct {
	Retriever retrieval.Retriever
	Metrics   []scoring.Metric
	Fixture   *Fixture
	Label     string
	Out       io.Writer
}

func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	records, err := BuildRecords(ctx, p.Retriever, p.Fixture)
	if err != nil {
		return nil, err
	}

	res, err := scoring.Evaluate(ctx, records, p.Metrics...)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Records:   records,
		Result:    res,
		Precision: res.Mean(scoring.NameContextPrecision),
		Recall:    res.Mean(scoring.NameContextRecall),
	}

	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	label := p.Label
	if label == "" {
		label = DefaultLabel
	}
	if err := report.Print(out, label); err != nil {
		return nil, err
	}

	return report, nil
}

// BuildRecords retrieves the contexts of every question in fixture order.
// The answer is left empty, only the retrieval is evaluated.
func BuildRecords(ctx context.Context, r retrieval.Retriever, f *Fixture) ([]scoring.Record, error) {
	records := make([]scoring.Record, 0, len(f.Questions))
	for _, q := range f.Questions {
		docs, err := r.Retrieve(ctx, q)
		if err != nil {
			return nil, err
		}

		gt := f.GroundTruth(q)
		if gt == "" {
			slog.Warn("no reference answer for question", "question", q)
		}

		records = append(records, scoring.Record{
			Question:    q,
			Answer:      "",
			Contexts:    api.Contents(docs),
			GroundTruth: gt,
		})
	}
	return records, nil
}

func (r Report) Print(w io.Writer, label string) error {
	_, err := fmt.Fprintf(w, "=== %s ===\nPrecision mean: %s\nRecall mean: %s\n\n",
		label, FormatScore(r.Precision), FormatScore(r.Recall))
	return err
}

// FormatScore prints the shortest exact representation of v, whole
// numbers keep one decimal.
func FormatScore(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
