package eval

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

//go:embed fixtures/drug_safety.yaml
var defaultFixture []byte

type Reference struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Fixture is the ordered list of questions to evaluate and the reference
// answers used as their ground truth.
type Fixture struct {
	Questions  []string    `yaml:"questions"`
	References []Reference `yaml:"references"`
}

// GroundTruth returns the reference answer for q, or "" if there is none.
func (f Fixture) GroundTruth(q string) string {
	for _, ref := range f.References {
		if ref.Question == q {
			return ref.Answer
		}
	}
	return ""
}

// DefaultFixture returns the bundled drug safety questions.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultFixture)
}

func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("fixture has no questions")
	}
	return &f, nil
}
