package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/alan-mat/drugrag/internal/api"
	"github.com/alan-mat/drugrag/internal/provider"
)

const recallPrompt = `Given a context and an answer, analyze each sentence in the answer and classify if the sentence can be attributed to the given context or not. Use only 1 (yes) or 0 (no) as a binary classification and give a short reason.
Respond with a JSON object of the form {"classifications": [{"statement": "...", "reason": "...", "attributed": 1}]} with one entry per sentence of the answer.

question: %s

context: %s

answer: %s
`

var recallSchema = api.ObjectSchema("Sentence attribution", map[string]*api.Schema{
	"classifications": api.ArraySchema(api.ObjectSchema("Classification", map[string]*api.Schema{
		"statement":  api.PrimitiveSchema(api.TypeString, "a sentence of the answer"),
		"reason":     api.PrimitiveSchema(api.TypeString, "why the sentence can or cannot be attributed"),
		"attributed": api.PrimitiveSchema(api.TypeInteger, "1 if attributable to the context, 0 if not"),
	})),
})

type classification struct {
	Statement  string  `json:"statement"`
	Reason     string  `json:"reason"`
	Attributed *binary `json:"attributed"`
}

// classifications also accepts a bare list, some judges drop the wrapper.
type classifications []classification

func (c *classifications) UnmarshalJSON(data []byte) error {
	var list []classification
	if err := json.Unmarshal(data, &list); err == nil {
		*c = list
		return nil
	}

	var wrapped struct {
		Classifications []classification `json:"classifications"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Classifications == nil {
		return fmt.Errorf("missing classifications")
	}
	*c = wrapped.Classifications
	return nil
}

// ContextRecall asks the judge which sentences of the ground truth can be
// attributed to the retrieved contexts. The score is the attributed share.
type ContextRecall struct {
	Generator provider.Generator
}

func (m *ContextRecall) Name() string {
	return NameContextRecall
}

func (m *ContextRecall) Score(ctx context.Context, rec Record) (float64, error) {
	if strings.TrimSpace(rec.GroundTruth) == "" {
		return math.NaN(), nil
	}

	prompt := fmt.Sprintf(recallPrompt, rec.Question, strings.Join(rec.Contexts, "\n"), rec.GroundTruth)

	var cls classifications
	ok, err := judge(ctx, m.Generator, prompt, recallSchema, &cls)
	if err != nil {
		return 0, err
	}
	if !ok {
		return math.NaN(), nil
	}

	verdicts := make([]int, 0, len(cls))
	for _, c := range cls {
		if c.Attributed == nil {
			return math.NaN(), nil
		}
		verdicts = append(verdicts, int(*c.Attributed))
	}
	return AttributedRatio(verdicts), nil
}

// AttributedRatio is the share of 1 verdicts, NaN for an empty list.
func AttributedRatio(verdicts []int) float64 {
	if len(verdicts) == 0 {
		return math.NaN()
	}
	var sum int
	for _, v := range verdicts {
		sum += v
	}
	return float64(sum) / float64(len(verdicts))
}
