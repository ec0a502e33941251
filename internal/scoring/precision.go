package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/provider"
)

const judgeSystemPrompt = `You are a strict evaluator of retrieval results. Answer only with JSON that follows the requested format, without any other text.`

const precisionPrompt = `Given a question, an answer and a context, verify if the context was useful in arriving at the given answer. Give the verdict as 1 if useful and 0 if not, with a short reason.
Respond with a JSON object of the form {"reason": "...", "verdict": 1}.

question: %s

context: %s

answer: %s
`

var precisionSchema = api.ObjectSchema("Context verification", map[string]*api.Schema{
	"reason":  api.PrimitiveSchema(api.TypeString, "why the context is or is not useful"),
	"verdict": api.PrimitiveSchema(api.TypeInteger, "1 if the context is useful, 0 if not"),
})

type precisionVerdict struct {
	Reason  string  `json:"reason"`
	Verdict *binary `json:"verdict"`
}

// ContextPrecision asks the judge for every context whether it helps to
// arrive at the ground truth and scores the ranking of the useful contexts
// by average precision.
type ContextPrecision struct {
	Generator provider.Generator
}

func (m *ContextPrecision) Name() string {
	return NameContextPrecision
}

func (m *ContextPrecision) Score(ctx context.Context, rec Record) (float64, error) {
	reference := rec.GroundTruth
	if strings.TrimSpace(reference) == "" {
		reference = rec.Answer
	}

	verdicts := make([]int, 0, len(rec.Contexts))
	for _, c := range rec.Contexts {
		var v precisionVerdict
		prompt := fmt.Sprintf(precisionPrompt, rec.Question, c, reference)

		ok, err := judge(ctx, m.Generator, prompt, precisionSchema, &v)
		if err != nil {
			return 0, err
		}
		if !ok || v.Verdict == nil {
			return math.NaN(), nil
		}
		verdicts = append(verdicts, int(*v.Verdict))
	}

	return AveragePrecision(verdicts), nil
}

// AveragePrecision is sum(precision@i * v[i]) / (sum(v) + 1e-10) over a
// list of 0/1 verdicts in rank order.
func AveragePrecision(verdicts []int) float64 {
	var numerator float64
	var relevant int
	for i, v := range verdicts {
		relevant += v
		precisionAtI := float64(relevant) / float64(i+1)
		numerator += precisionAtI * float64(v)
	}
	return numerator / (float64(relevant) + 1e-10)
}
